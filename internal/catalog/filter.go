// Package catalog filters and sorts the product list for display.
package catalog

import (
	"sort"
	"strings"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/shopspring/decimal"
)

// PriceRange is an inclusive [Min, Max] bound.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether price lies within the range, bounds included.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

func (r PriceRange) Equal(other PriceRange) bool {
	return r.Min.Equal(other.Min) && r.Max.Equal(other.Max)
}

// FilterState is the transient view selection. A nil Price means no price bound.
type FilterState struct {
	Categories map[string]struct{}
	Price      *PriceRange
	Sort       enums.SortKey
}

// DefaultFilter selects everything: no categories, the full price range, default order.
func DefaultFilter(products []gateway.Product) FilterState {
	bounds := DefaultPriceRange(products)
	return FilterState{Price: &bounds, Sort: enums.SortDefault}
}

// SplitCategories splits a comma-joined tag list, trimming blanks and dropping empties.
func SplitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Categories returns the sorted distinct tags across products.
func Categories(products []gateway.Product) []string {
	seen := map[string]struct{}{}
	for _, p := range products {
		for _, cat := range SplitCategories(p.Category) {
			seen[cat] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// DefaultPriceRange spans floor(min price) to ceil(max price). Empty input yields [0, 0].
func DefaultPriceRange(products []gateway.Product) PriceRange {
	if len(products) == 0 {
		return PriceRange{Min: decimal.Zero, Max: decimal.Zero}
	}
	lo, hi := products[0].Price, products[0].Price
	for _, p := range products[1:] {
		if p.Price.LessThan(lo) {
			lo = p.Price
		}
		if p.Price.GreaterThan(hi) {
			hi = p.Price
		}
	}
	return PriceRange{Min: lo.Floor(), Max: hi.Ceil()}
}

// Apply returns a new slice: products matching any selected category (all when none are
// selected) and priced within the range, then stably ordered by the sort key.
func Apply(products []gateway.Product, state FilterState) []gateway.Product {
	out := make([]gateway.Product, 0, len(products))
	for _, p := range products {
		if !matchesCategories(p, state.Categories) {
			continue
		}
		if state.Price != nil && !state.Price.Contains(p.Price) {
			continue
		}
		out = append(out, p)
	}

	switch state.Sort {
	case enums.SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case enums.SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	}
	return out
}

func matchesCategories(p gateway.Product, selected map[string]struct{}) bool {
	if len(selected) == 0 {
		return true
	}
	for _, cat := range SplitCategories(p.Category) {
		if _, ok := selected[cat]; ok {
			return true
		}
	}
	return false
}
