package odoo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kosarica/rule-resolver/internal/rules"
)

// many2one decodes a relational field: [id, "display name"] or false.
type many2one struct {
	ID    int64
	Name  string
	Valid bool
}

func (m *many2one) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null")) {
		*m = many2one{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) == 0 {
			*m = many2one{}
			return nil
		}
		if err := json.Unmarshal(pair[0], &m.ID); err != nil {
			return fmt.Errorf("many2one id: %w", err)
		}
		if len(pair) > 1 {
			_ = json.Unmarshal(pair[1], &m.Name)
		}
		m.Valid = true
		return nil
	}
	if err := json.Unmarshal(data, &m.ID); err != nil {
		return fmt.Errorf("many2one: %w", err)
	}
	m.Valid = true
	return nil
}

func (m many2one) ptr() *int64 {
	if !m.Valid {
		return nil
	}
	id := m.ID
	return &id
}

// number decodes a float field; Odoo sends false for unset values.
type number struct {
	decimal.Decimal
	Set bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null")) {
		*n = number{}
		return nil
	}
	if err := n.Decimal.UnmarshalJSON(data); err != nil {
		return err
	}
	n.Set = true
	return nil
}

func (n number) ptr() *decimal.Decimal {
	if !n.Set {
		return nil
	}
	d := n.Decimal
	return &d
}

// text decodes a char or selection field; Odoo sends false for empty values.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("false")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = text(s)
	return nil
}

var productFields = []string{"id", "product_tmpl_id", "name", "lst_price", "barcode", "product_template_attribute_value_ids"}

type productRecord struct {
	ID              int64    `json:"id"`
	Template        many2one `json:"product_tmpl_id"`
	Name            text     `json:"name"`
	ListPrice       number   `json:"lst_price"`
	Barcode         text     `json:"barcode"`
	AttributeValues []int64  `json:"product_template_attribute_value_ids"`
}

type templateRecord struct {
	ID       int64    `json:"id"`
	Category many2one `json:"categ_id"`
}

type attributeValueRecord struct {
	ID   int64 `json:"id"`
	Name text  `json:"name"`
}

var ruleFields = []string{
	"id", "pricelist_id", "applied_on", "categ_id", "product_tmpl_id", "product_id",
	"min_quantity", "compute_price", "fixed_price", "percent_price",
	"base", "price_discount", "price_surcharge", "price_round",
	"price_min_margin", "price_max_margin",
}

type ruleRecord struct {
	ID             int64    `json:"id"`
	Pricelist      many2one `json:"pricelist_id"`
	AppliedOn      text     `json:"applied_on"`
	Category       many2one `json:"categ_id"`
	Template       many2one `json:"product_tmpl_id"`
	Variant        many2one `json:"product_id"`
	MinQuantity    number   `json:"min_quantity"`
	ComputePrice   text     `json:"compute_price"`
	FixedPrice     number   `json:"fixed_price"`
	PercentPrice   number   `json:"percent_price"`
	Base           text     `json:"base"`
	PriceDiscount  number   `json:"price_discount"`
	PriceSurcharge number   `json:"price_surcharge"`
	PriceRound     number   `json:"price_round"`
	PriceMinMargin number   `json:"price_min_margin"`
	PriceMaxMargin number   `json:"price_max_margin"`
}

// toRule converts a pricelist item. Target ids outside the rule's own scope
// are discarded; price fields are carried according to compute_price.
func (r ruleRecord) toRule() rules.Rule {
	rule := rules.Rule{
		ID:           r.ID,
		PricelistID:  r.Pricelist.ID,
		Scope:        scopeFromApplied(string(r.AppliedOn)),
		MinQuantity:  r.MinQuantity.Decimal,
		ComputePrice: string(r.ComputePrice),
	}

	switch rule.Scope {
	case rules.ScopeCategory:
		rule.CategoryID = r.Category.ptr()
	case rules.ScopeProductTemplate:
		rule.TemplateID = r.Template.ptr()
	case rules.ScopeProductVariant:
		rule.VariantID = r.Variant.ptr()
	case rules.ScopeGlobal:
	default:
		rule.CategoryID = r.Category.ptr()
		rule.TemplateID = r.Template.ptr()
		rule.VariantID = r.Variant.ptr()
	}

	switch rule.ComputePrice {
	case rules.ComputeFixed:
		rule.FixedPrice = r.FixedPrice.ptr()
	case rules.ComputePercentage:
		rule.PercentPrice = r.PercentPrice.ptr()
	case rules.ComputeFormula:
		rule.Formula = &rules.Formula{
			Base:      string(r.Base),
			Discount:  r.PriceDiscount.Decimal,
			Surcharge: r.PriceSurcharge.Decimal,
			Rounding:  r.PriceRound.Decimal,
			MinMargin: nonZero(r.PriceMinMargin),
			MaxMargin: nonZero(r.PriceMaxMargin),
		}
	}
	return rule
}

func nonZero(n number) *decimal.Decimal {
	if !n.Set || n.Decimal.IsZero() {
		return nil
	}
	return n.ptr()
}
