package postgres

import (
	"fmt"
	"strings"

	"github.com/kosarica/rule-resolver/internal/rules"
)

var columns = map[rules.Field]string{
	rules.FieldPricelistID: "pricelist_id",
	rules.FieldScope:       "scope",
	rules.FieldCategoryID:  "category_id",
	rules.FieldTemplateID:  "template_id",
	rules.FieldVariantID:   "variant_id",
}

// Where renders a predicate as a parameterized SQL condition. Placeholders
// are numbered from $1 in the order of the returned arguments.
func Where(p rules.Predicate) (string, []any, error) {
	w := &whereBuilder{}
	sql, err := w.render(p)
	if err != nil {
		return "", nil, err
	}
	return sql, w.args, nil
}

type whereBuilder struct {
	args []any
}

func (w *whereBuilder) bind(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) render(p rules.Predicate) (string, error) {
	switch p := p.(type) {
	case rules.And:
		return w.group(" AND ", p)
	case rules.Or:
		return w.group(" OR ", p)
	case rules.Cond:
		return w.cond(p)
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (w *whereBuilder) group(sep string, operands []rules.Predicate) (string, error) {
	if len(operands) == 0 {
		return "", fmt.Errorf("empty%sgroup", strings.ToLower(sep))
	}
	parts := make([]string, len(operands))
	for i, operand := range operands {
		s, err := w.render(operand)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (w *whereBuilder) cond(c rules.Cond) (string, error) {
	col, ok := columns[c.Field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", c.Field)
	}

	if c.Field == rules.FieldScope {
		scope, ok := c.Value.(rules.Scope)
		if !ok || c.Op != rules.OpEq {
			return "", fmt.Errorf("scope condition must be scope = <scope>, got %s", c)
		}
		return col + " = " + w.bind(string(scope)), nil
	}

	switch c.Op {
	case rules.OpNotNull:
		return col + " IS NOT NULL", nil
	case rules.OpEq:
		v, ok := c.Value.(int64)
		if !ok {
			return "", fmt.Errorf("%s: expected int64, got %T", c.Field, c.Value)
		}
		return col + " = " + w.bind(v), nil
	case rules.OpIn:
		v, ok := c.Value.([]int64)
		if !ok {
			return "", fmt.Errorf("%s: expected []int64, got %T", c.Field, c.Value)
		}
		return col + " = ANY(" + w.bind(v) + ")", nil
	}
	return "", fmt.Errorf("unsupported operator %q", c.Op)
}
