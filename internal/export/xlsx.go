// Package export writes resolution results to spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
)

const (
	SummarySheet = "Summary"
	RulesSheet   = "Rules"
)

var ruleHeader = []any{
	"Scope", "Rule ID", "Pricelist ID", "Target ID", "Min Quantity", "Compute",
	"Fixed Price", "Percent", "Base", "Discount", "Surcharge", "Rounding", "Product",
}

// WriteXLSX writes result as a workbook with a summary sheet and one row per
// classified rule, broadest scope first.
func WriteXLSX(w io.Writer, result *resolver.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, result); err != nil {
		return err
	}

	if _, err := f.NewSheet(RulesSheet); err != nil {
		return fmt.Errorf("create rules sheet: %w", err)
	}
	if err := writeRules(f, result); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, result *resolver.Result) error {
	category := ""
	if result.CategoryID != nil {
		category = strconv.FormatInt(*result.CategoryID, 10)
	}
	rows := [][]any{
		{"Code", result.Code},
		{"Product", result.ProductName},
		{"Variant ID", result.VariantID},
		{"Template ID", result.TemplateID},
		{"Category ID", category},
		{"List Price", result.ListPrice.String()},
		{"Candidate Rules", result.CandidateRuleCount},
	}
	for _, scope := range rules.Scopes {
		rows = append(rows, []any{"Rules: " + string(scope), len(result.Buckets.Get(scope))})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeRules(f *excelize.File, result *resolver.Result) error {
	if err := f.SetSheetRow(RulesSheet, "A1", &ruleHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rowNum := 2
	for _, scope := range rules.Scopes {
		for _, r := range result.Buckets.Get(scope) {
			row := ruleRow(r)
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(RulesSheet, cell, &row); err != nil {
				return fmt.Errorf("write rule %d: %w", r.ID, err)
			}
			rowNum++
		}
	}
	return nil
}

func ruleRow(r rules.Rule) []any {
	row := []any{
		string(r.Scope), r.ID, r.PricelistID, target(r), r.MinQuantity.String(), r.ComputePrice,
		optional(r.FixedPrice), optional(r.PercentPrice), "", "", "", "", r.ProductName,
	}
	if r.Formula != nil {
		row[8] = r.Formula.Base
		row[9] = r.Formula.Discount.String()
		row[10] = r.Formula.Surcharge.String()
		row[11] = r.Formula.Rounding.String()
	}
	return row
}

func target(r rules.Rule) any {
	for _, id := range []*int64{r.VariantID, r.TemplateID, r.CategoryID} {
		if id != nil {
			return *id
		}
	}
	return ""
}

func optional(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
