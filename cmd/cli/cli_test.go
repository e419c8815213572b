package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/rule-resolver/internal/middleware"
	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFilterCommand(t *testing.T) {
	out, err := run(t, "filter", "--pricelists", "2,1", "--variant", "10", "--template", "5", "--category", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Filter: pricelist_id IN (1, 2) AND (scope = global")
	assert.Contains(t, out, `["&",["pricelist_id","in",[1,2]]`)
	assert.Contains(t, out, `"applied_on","=","2_product_category"`)
	assert.Contains(t, out, "SQL:    (pricelist_id = ANY($1)")
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--service", "basket-api", "--ttl", "10m", "--secret", "s3cret")
	require.NoError(t, err)

	claims, err := middleware.ParseServiceToken(strings.TrimSpace(out), []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "basket-api", claims.Service)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), claims.ExpiresAt.Time, time.Minute)

	_, err = middleware.ParseServiceToken(strings.TrimSpace(out), []byte("other"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rule-resolver dev"))
}

func TestPrintResult(t *testing.T) {
	fixed := decimal.RequireFromString("39.5")
	category := int64(2)
	result := &resolver.Result{
		Code:        "5901234123457",
		VariantID:   10,
		TemplateID:  5,
		CategoryID:  &category,
		ProductName: "Desk Lamp Black LED",
		ListPrice:   decimal.RequireFromString("49.90"),
		Buckets: rules.Classify([]rules.Rule{
			{ID: 2, PricelistID: 2, Scope: rules.ScopeCategory, CategoryID: &category, ComputePrice: rules.ComputeFixed, FixedPrice: &fixed},
		}, 10, 5, &category),
		CandidateRuleCount: 4,
	}

	var out bytes.Buffer
	printResult(&out, result)

	assert.Contains(t, out.String(), "Product:     Desk Lamp Black LED")
	assert.Contains(t, out.String(), "Candidates:  4, kept 1")
	assert.Contains(t, out.String(), "category")
	assert.Contains(t, out.String(), "39.5")
}

func TestRuleValue(t *testing.T) {
	pct := decimal.NewFromInt(10)
	assert.Equal(t, "10%", ruleValue(rules.Rule{PercentPrice: &pct}))
	assert.Equal(t, "list_price -15% +-0.01", ruleValue(rules.Rule{Formula: &rules.Formula{
		Base:      "list_price",
		Discount:  decimal.NewFromInt(15),
		Surcharge: decimal.RequireFromString("-0.01"),
	}}))
	assert.Equal(t, "-", ruleValue(rules.Rule{}))
}
