package rules

// Classify partitions candidate rules into scope buckets, re-checking each
// rule's scope target against the product's own identifiers.
//
// The backend filter is trusted to narrow the candidates but not to be exact:
// a rule whose target disagrees with the product is dropped, as is any rule
// with an unknown scope. Category rules are always dropped when the product
// has no category.
func Classify(candidates []Rule, variantID, templateID int64, categoryID *int64) Buckets {
	buckets := NewBuckets()

	for _, r := range candidates {
		switch r.Scope {
		case ScopeGlobal:
			buckets.add(r)
		case ScopeCategory:
			if categoryID != nil && int64Equal(r.CategoryID, *categoryID) {
				buckets.add(r)
			}
		case ScopeProductTemplate:
			if int64Equal(r.TemplateID, templateID) {
				buckets.add(r)
			}
		case ScopeProductVariant:
			if int64Equal(r.VariantID, variantID) {
				buckets.add(r)
			}
		}
	}

	return buckets
}
