package resolver

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kosarica/rule-resolver/internal/rules"
)

// Product is a sellable variant as known by the backend.
type Product struct {
	VariantID  int64
	TemplateID int64
	Name       string
	ListPrice  decimal.Decimal
	Attributes []string // variant attribute value names, in display order
	Code       string
}

// PriceList is a backend price list and its eligibility flag.
type PriceList struct {
	ID     int64
	Name   string
	Active bool
}

// Backend is the remote system owning products, price lists and rules.
// Every call is a single remote round trip; implementations do not retry.
type Backend interface {
	// FindProductsByCode returns the products whose scannable code equals code,
	// in backend order. No match is an empty slice, not an error.
	FindProductsByCode(ctx context.Context, code string) ([]Product, error)

	// FindCategoryForTemplate returns the template's category, or nil if it has none.
	FindCategoryForTemplate(ctx context.Context, templateID int64) (*int64, error)

	// SearchActivePriceLists returns the price lists currently flagged active.
	SearchActivePriceLists(ctx context.Context) ([]PriceList, error)

	// SearchRules returns the rules selected by the predicate, in backend order.
	SearchRules(ctx context.Context, filter rules.Predicate) ([]rules.Rule, error)
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result is the outcome of a successful resolution.
type Result struct {
	Code        string
	VariantID   int64
	TemplateID  int64
	CategoryID  *int64
	ProductName string
	ListPrice   decimal.Decimal
	Buckets     rules.Buckets

	// CandidateRuleCount is the number of rules the backend returned before
	// classification, not the number that survived it.
	CandidateRuleCount int
}
