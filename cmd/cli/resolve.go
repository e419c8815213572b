package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/rule-resolver/internal/app"
	"github.com/kosarica/rule-resolver/internal/export"
	"github.com/kosarica/rule-resolver/internal/handlers"
	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
)

var (
	resolveJSON    bool
	resolveXLSX    string
	resolveTimeout time.Duration
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <code>",
	Short: "Resolve a product code to its applicable pricelist rules",
	Long: `Look a product up by barcode in the configured backend and print the rules of
all active price lists that apply to it, grouped by scope. Exits non-zero when the
product is not found or the backend fails.`,
	Example: `  rule-resolver resolve 5901234123457
  rule-resolver resolve 5901234123457 --json
  rule-resolver resolve 5901234123457 --xlsx lamp-rules.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the result as JSON")
	resolveCmd.Flags().StringVar(&resolveXLSX, "xlsx", "", "Also write the result to this .xlsx file")
	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 30*time.Second, "Overall timeout")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
	defer cancel()

	res, _, cleanup, err := app.NewResolver(ctx, cfg, logger)
	defer cleanup()
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}

	result, err := res.Resolve(ctx, args[0])
	if errors.Is(err, resolver.ErrNotFound) {
		return fmt.Errorf("no product with code %s", args[0])
	}
	if err != nil {
		return err
	}

	if resolveXLSX != "" {
		if err := writeXLSXFile(resolveXLSX, result); err != nil {
			return err
		}
		logger.Info().Str("file", resolveXLSX).Msg("Wrote spreadsheet")
	}

	if resolveJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(handlers.NewRulesResponse(result))
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func writeXLSXFile(path string, result *resolver.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteXLSX(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printResult(out io.Writer, result *resolver.Result) {
	category := "-"
	if result.CategoryID != nil {
		category = strconv.FormatInt(*result.CategoryID, 10)
	}

	fmt.Fprintf(out, "Product:     %s\n", result.ProductName)
	fmt.Fprintf(out, "Code:        %s\n", result.Code)
	fmt.Fprintf(out, "Variant:     %d (template %d, category %s)\n", result.VariantID, result.TemplateID, category)
	fmt.Fprintf(out, "List price:  %s\n", result.ListPrice.String())
	fmt.Fprintf(out, "Candidates:  %d, kept %d\n\n", result.CandidateRuleCount, result.Buckets.Len())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCOPE\tRULE\tPRICELIST\tMIN QTY\tCOMPUTE\tVALUE")
	for _, scope := range rules.Scopes {
		for _, r := range result.Buckets.Get(scope) {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
				scope, r.ID, r.PricelistID, r.MinQuantity.String(), r.ComputePrice, ruleValue(r))
		}
	}
	w.Flush()
}

func ruleValue(r rules.Rule) string {
	switch {
	case r.FixedPrice != nil:
		return r.FixedPrice.String()
	case r.PercentPrice != nil:
		return r.PercentPrice.String() + "%"
	case r.Formula != nil:
		return fmt.Sprintf("%s -%s%% +%s", r.Formula.Base, r.Formula.Discount.String(), r.Formula.Surcharge.String())
	}
	return "-"
}
