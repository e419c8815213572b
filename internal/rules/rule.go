package rules

import (
	"github.com/shopspring/decimal"
)

// Scope is the granularity a pricelist rule targets.
// A rule has exactly one scope.
type Scope string

const (
	ScopeGlobal          Scope = "global"
	ScopeCategory        Scope = "category"
	ScopeProductTemplate Scope = "product_template"
	ScopeProductVariant  Scope = "product_variant"
)

// Scopes lists the known scopes, broadest first.
var Scopes = []Scope{ScopeGlobal, ScopeCategory, ScopeProductTemplate, ScopeProductVariant}

// Valid reports whether s is one of the four known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeCategory, ScopeProductTemplate, ScopeProductVariant:
		return true
	default:
		return false
	}
}

// Compute price modes as reported by the backend. They are passed through untouched.
const (
	ComputeFixed      = "fixed"
	ComputePercentage = "percentage"
	ComputeFormula    = "formula"
)

// Formula describes a computed price. Values are carried as-is, never evaluated here.
type Formula struct {
	Base      string           `json:"base"`
	Discount  decimal.Decimal  `json:"discount"`
	Surcharge decimal.Decimal  `json:"surcharge"`
	Rounding  decimal.Decimal  `json:"rounding"`
	MinMargin *decimal.Decimal `json:"minMargin,omitempty"`
	MaxMargin *decimal.Decimal `json:"maxMargin,omitempty"`
}

// Rule is a single pricelist rule (candidate or classified).
// Exactly one of CategoryID, TemplateID and VariantID is meaningful,
// depending on Scope; a global rule carries none.
type Rule struct {
	ID           int64            `json:"id"`
	PricelistID  int64            `json:"pricelistId"`
	Scope        Scope            `json:"scope"`
	CategoryID   *int64           `json:"categoryId,omitempty"`
	TemplateID   *int64           `json:"templateId,omitempty"`
	VariantID    *int64           `json:"variantId,omitempty"`
	MinQuantity  decimal.Decimal  `json:"minQuantity"`
	ComputePrice string           `json:"computePrice"`
	FixedPrice   *decimal.Decimal `json:"fixedPrice,omitempty"`
	PercentPrice *decimal.Decimal `json:"percentPrice,omitempty"`
	Formula      *Formula         `json:"formula,omitempty"`

	// ProductName is the display name of the looked-up product, stamped on
	// every classified rule for client convenience.
	ProductName string `json:"productName,omitempty"`
}

// Buckets holds classified rules grouped by scope.
// Within a bucket rules keep the order the backend returned them in.
type Buckets struct {
	Global          []Rule `json:"global"`
	Category        []Rule `json:"category"`
	ProductTemplate []Rule `json:"productTemplate"`
	ProductVariant  []Rule `json:"productVariant"`
}

// NewBuckets returns four empty, non-nil buckets.
func NewBuckets() Buckets {
	return Buckets{
		Global:          []Rule{},
		Category:        []Rule{},
		ProductTemplate: []Rule{},
		ProductVariant:  []Rule{},
	}
}

// Get returns the bucket for a scope, or nil for an unknown scope.
func (b *Buckets) Get(scope Scope) []Rule {
	switch scope {
	case ScopeGlobal:
		return b.Global
	case ScopeCategory:
		return b.Category
	case ScopeProductTemplate:
		return b.ProductTemplate
	case ScopeProductVariant:
		return b.ProductVariant
	}
	return nil
}

func (b *Buckets) add(r Rule) {
	switch r.Scope {
	case ScopeGlobal:
		b.Global = append(b.Global, r)
	case ScopeCategory:
		b.Category = append(b.Category, r)
	case ScopeProductTemplate:
		b.ProductTemplate = append(b.ProductTemplate, r)
	case ScopeProductVariant:
		b.ProductVariant = append(b.ProductVariant, r)
	}
}

// Len returns the number of rules across all buckets.
func (b *Buckets) Len() int {
	return len(b.Global) + len(b.Category) + len(b.ProductTemplate) + len(b.ProductVariant)
}

// Counts returns the size of each bucket keyed by scope.
func (b *Buckets) Counts() map[Scope]int {
	return map[Scope]int{
		ScopeGlobal:          len(b.Global),
		ScopeCategory:        len(b.Category),
		ScopeProductTemplate: len(b.ProductTemplate),
		ScopeProductVariant:  len(b.ProductVariant),
	}
}

// Stamp sets ProductName on every rule in every bucket.
func (b *Buckets) Stamp(productName string) {
	for _, bucket := range [][]Rule{b.Global, b.Category, b.ProductTemplate, b.ProductVariant} {
		for i := range bucket {
			bucket[i].ProductName = productName
		}
	}
}

func int64Equal(p *int64, v int64) bool {
	return p != nil && *p == v
}
