// Package catalog derives the searchable, category-grouped menu view.
package catalog

import (
	"strings"

	"github.com/brizuela-go/takeorderhd/internal/model"
)

// Group is one category heading with its items in catalog order.
type Group struct {
	Category string           `json:"category"`
	Items    []model.MenuItem `json:"items"`
}

// FilterAndGroup keeps the items whose name contains query
// (case-insensitive; empty matches all) and groups them by category in
// first-seen order. No match yields an empty, non-nil slice.
func FilterAndGroup(items []model.MenuItem, query string) []Group {
	needle := strings.ToLower(query)
	groups := []Group{}
	index := make(map[string]int)

	for _, item := range items {
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, Group{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}
