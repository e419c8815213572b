package rules

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidArgument is returned when a caller misuses the rule engine,
// e.g. builds a filter against zero active price lists.
var ErrInvalidArgument = errors.New("invalid argument")

// BuildFilter builds the candidate selection predicate for a product:
//
//	pricelist_id IN active AND (
//	    scope = global
//	 OR scope = category AND <category clause>
//	 OR scope = product_template AND template_id = templateID
//	 OR scope = product_variant AND variant_id = variantID)
//
// When the product has a category the category clause is category_id = categoryID.
// Without one it admits any category-scoped rule with a category set; Classify
// drops those later. The fetch stays permissive and classification stays strict.
func BuildFilter(activePricelistIDs []int64, variantID, templateID int64, categoryID *int64) (Predicate, error) {
	if len(activePricelistIDs) == 0 {
		return nil, fmt.Errorf("%w: no active price lists", ErrInvalidArgument)
	}

	ids := slices.Clone(activePricelistIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var categoryClause Cond
	if categoryID != nil {
		categoryClause = Cond{Field: FieldCategoryID, Op: OpEq, Value: *categoryID}
	} else {
		categoryClause = Cond{Field: FieldCategoryID, Op: OpNotNull}
	}

	return And{
		Cond{Field: FieldPricelistID, Op: OpIn, Value: ids},
		Or{
			Cond{Field: FieldScope, Op: OpEq, Value: ScopeGlobal},
			And{
				Cond{Field: FieldScope, Op: OpEq, Value: ScopeCategory},
				categoryClause,
			},
			And{
				Cond{Field: FieldScope, Op: OpEq, Value: ScopeProductTemplate},
				Cond{Field: FieldTemplateID, Op: OpEq, Value: templateID},
			},
			And{
				Cond{Field: FieldScope, Op: OpEq, Value: ScopeProductVariant},
				Cond{Field: FieldVariantID, Op: OpEq, Value: variantID},
			},
		},
	}, nil
}
