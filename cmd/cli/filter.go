package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosarica/rule-resolver/internal/backend/odoo"
	"github.com/kosarica/rule-resolver/internal/backend/postgres"
	"github.com/kosarica/rule-resolver/internal/rules"
)

var (
	filterPricelists []int64
	filterVariant    int64
	filterTemplate   int64
	filterCategory   int64
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Print the candidate rule filter for a product",
	Long: `Build the candidate rule filter for the given active price lists and product
identifiers, and print it in readable form along with the Odoo domain and the SQL
condition each backend would send.`,
	Example: `  rule-resolver filter --pricelists 1,2 --variant 10 --template 5 --category 2
  rule-resolver filter --pricelists 1 --variant 10 --template 5`,
	Args: cobra.NoArgs,
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().Int64SliceVar(&filterPricelists, "pricelists", nil, "Active price list ids (required)")
	filterCmd.Flags().Int64Var(&filterVariant, "variant", 0, "Product variant id (required)")
	filterCmd.Flags().Int64Var(&filterTemplate, "template", 0, "Product template id (required)")
	filterCmd.Flags().Int64Var(&filterCategory, "category", 0, "Product category id, omit when the product has none")
	filterCmd.MarkFlagRequired("pricelists")
	filterCmd.MarkFlagRequired("variant")
	filterCmd.MarkFlagRequired("template")
}

func runFilter(cmd *cobra.Command, args []string) error {
	var categoryID *int64
	if cmd.Flags().Changed("category") {
		categoryID = &filterCategory
	}

	filter, err := rules.BuildFilter(filterPricelists, filterVariant, filterTemplate, categoryID)
	if err != nil {
		return err
	}

	domain, err := odoo.Domain(filter)
	if err != nil {
		return fmt.Errorf("render domain: %w", err)
	}
	domainJSON, err := json.Marshal(domain)
	if err != nil {
		return err
	}

	where, whereArgs, err := postgres.Where(filter)
	if err != nil {
		return fmt.Errorf("render sql: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Filter: %s\n", filter)
	fmt.Fprintf(out, "Domain: %s\n", domainJSON)
	fmt.Fprintf(out, "SQL:    %s %v\n", where, whereArgs)
	return nil
}
