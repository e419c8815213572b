package rules

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Field names a rule attribute a predicate can test. Backends map these
// logical names onto their own columns or model fields.
type Field string

const (
	FieldPricelistID Field = "pricelist_id"
	FieldScope       Field = "scope"
	FieldCategoryID  Field = "category_id"
	FieldTemplateID  Field = "template_id"
	FieldVariantID   Field = "variant_id"
)

// Op is a comparison operator.
type Op string

const (
	OpEq      Op = "="
	OpIn      Op = "in"
	OpNotNull Op = "!= null"
)

// Predicate is a boolean selection over rule records.
//
// The concrete types are And, Or and Cond; backends render them by type switch.
type Predicate interface {
	// Match evaluates the predicate against a rule in memory.
	Match(r Rule) bool
	String() string
	predicate()
}

// And is satisfied when every operand is.
type And []Predicate

// Or is satisfied when at least one operand is.
type Or []Predicate

// Cond compares one field against a value.
//
// Value is int64 for id fields with OpEq, []int64 with OpIn, a Scope for
// FieldScope and unused for OpNotNull.
type Cond struct {
	Field Field
	Op    Op
	Value any
}

func (And) predicate()  {}
func (Or) predicate()   {}
func (Cond) predicate() {}

func (a And) Match(r Rule) bool {
	for _, p := range a {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

func (o Or) Match(r Rule) bool {
	for _, p := range o {
		if p.Match(r) {
			return true
		}
	}
	return false
}

func (c Cond) Match(r Rule) bool {
	switch c.Field {
	case FieldScope:
		want, ok := c.Value.(Scope)
		return ok && c.Op == OpEq && r.Scope == want
	case FieldPricelistID:
		return matchID(c, &r.PricelistID)
	case FieldCategoryID:
		return matchID(c, r.CategoryID)
	case FieldTemplateID:
		return matchID(c, r.TemplateID)
	case FieldVariantID:
		return matchID(c, r.VariantID)
	}
	return false
}

func matchID(c Cond, got *int64) bool {
	if got == nil {
		return false
	}
	switch c.Op {
	case OpNotNull:
		return true
	case OpEq:
		want, ok := c.Value.(int64)
		return ok && *got == want
	case OpIn:
		ids, ok := c.Value.([]int64)
		return ok && slices.Contains(ids, *got)
	}
	return false
}

func (a And) String() string { return join(" AND ", a) }
func (o Or) String() string  { return join(" OR ", o) }

func (c Cond) String() string {
	switch c.Op {
	case OpNotNull:
		return fmt.Sprintf("%s IS NOT NULL", c.Field)
	case OpIn:
		ids, _ := c.Value.([]int64)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s = %v", c.Field, c.Value)
	}
}

func join(sep string, ps []Predicate) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
		if _, isCond := p.(Cond); !isCond && len(ps) > 1 {
			parts[i] = "(" + parts[i] + ")"
		}
	}
	return strings.Join(parts, sep)
}
