package app

import "citysearch/internal/domain"

// ApplyPricePolicy enforces the cross-source price rule after fetch:
// price is not a uniform field, so when any price bound is set an item
// without a price survives only when the criteria opt into no-price
// items. With no bound set the list passes through untouched.
//
// The filter is idempotent and never mutates its input; it is safe to
// re-run on every render.
func ApplyPricePolicy(items []domain.Item, c domain.Criteria) []domain.Item {
	if !c.HasPriceBound() {
		return items
	}
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if it.Price == nil && !c.IncludeNoPrice {
			continue
		}
		out = append(out, it)
	}
	return out
}
