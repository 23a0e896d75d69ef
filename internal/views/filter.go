package views

import (
	"slices"

	"dolist/backend"
)

// FilterItems returns the items view shows, in display order.
// The input slice is not modified.
func FilterItems(items []backend.Item, view *View) []backend.Item {
	result := make([]backend.Item, 0, len(items))
	for _, it := range items {
		if view.ActiveOnly && !it.Active {
			continue
		}
		if view.StarredOnly && !it.Star {
			continue
		}
		result = append(result, it)
	}

	if view.StarredFirst {
		// Stable keeps the store's label order within each group
		slices.SortStableFunc(result, func(a, b backend.Item) int {
			switch {
			case a.Star == b.Star:
				return 0
			case a.Star:
				return -1
			default:
				return 1
			}
		})
	}
	return result
}
