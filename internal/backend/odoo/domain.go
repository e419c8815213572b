package odoo

import (
	"fmt"

	"github.com/kosarica/rule-resolver/internal/rules"
)

// Odoo applied_on selection values.
const (
	appliedGlobal   = "3_global"
	appliedCategory = "2_product_category"
	appliedTemplate = "1_product"
	appliedVariant  = "0_product_variant"
)

var scopeToApplied = map[rules.Scope]string{
	rules.ScopeGlobal:          appliedGlobal,
	rules.ScopeCategory:        appliedCategory,
	rules.ScopeProductTemplate: appliedTemplate,
	rules.ScopeProductVariant:  appliedVariant,
}

var appliedToScope = map[string]rules.Scope{
	appliedGlobal:   rules.ScopeGlobal,
	appliedCategory: rules.ScopeCategory,
	appliedTemplate: rules.ScopeProductTemplate,
	appliedVariant:  rules.ScopeProductVariant,
}

var fieldNames = map[rules.Field]string{
	rules.FieldPricelistID: "pricelist_id",
	rules.FieldScope:       "applied_on",
	rules.FieldCategoryID:  "categ_id",
	rules.FieldTemplateID:  "product_tmpl_id",
	rules.FieldVariantID:   "product_id",
}

// scopeFromApplied maps an applied_on value to a Scope. Unknown values are
// kept verbatim so classification drops them.
func scopeFromApplied(applied string) rules.Scope {
	if s, ok := appliedToScope[applied]; ok {
		return s
	}
	return rules.Scope(applied)
}

// Domain renders a predicate as an Odoo search domain in prefix notation:
// an n-ary And or Or becomes n-1 operators followed by its operands.
func Domain(p rules.Predicate) ([]any, error) {
	var out []any
	if err := appendDomain(&out, p); err != nil {
		return nil, err
	}
	return out, nil
}

func appendDomain(out *[]any, p rules.Predicate) error {
	switch p := p.(type) {
	case rules.And:
		return appendNary(out, "&", p)
	case rules.Or:
		return appendNary(out, "|", p)
	case rules.Cond:
		leaf, err := leafFor(p)
		if err != nil {
			return err
		}
		*out = append(*out, leaf)
		return nil
	default:
		return fmt.Errorf("unsupported predicate %T", p)
	}
}

func appendNary(out *[]any, op string, operands []rules.Predicate) error {
	if len(operands) == 0 {
		return fmt.Errorf("empty %q group", op)
	}
	for i := 0; i < len(operands)-1; i++ {
		*out = append(*out, op)
	}
	for _, operand := range operands {
		if err := appendDomain(out, operand); err != nil {
			return err
		}
	}
	return nil
}

func leafFor(c rules.Cond) ([]any, error) {
	name, ok := fieldNames[c.Field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", c.Field)
	}

	if c.Field == rules.FieldScope {
		scope, ok := c.Value.(rules.Scope)
		if !ok || c.Op != rules.OpEq {
			return nil, fmt.Errorf("scope condition must be scope = <scope>, got %s", c)
		}
		applied, ok := scopeToApplied[scope]
		if !ok {
			return nil, fmt.Errorf("unknown scope %q", scope)
		}
		return []any{name, "=", applied}, nil
	}

	switch c.Op {
	case rules.OpNotNull:
		return []any{name, "!=", false}, nil
	case rules.OpEq:
		v, ok := c.Value.(int64)
		if !ok {
			return nil, fmt.Errorf("%s: expected int64, got %T", c.Field, c.Value)
		}
		return []any{name, "=", v}, nil
	case rules.OpIn:
		v, ok := c.Value.([]int64)
		if !ok {
			return nil, fmt.Errorf("%s: expected []int64, got %T", c.Field, c.Value)
		}
		return []any{name, "in", v}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", c.Op)
}
