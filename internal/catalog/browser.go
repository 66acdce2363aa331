package catalog

import (
	"sort"
	"sync"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/shopspring/decimal"
)

// Browser holds the product list plus the user's current selection. It is never persisted.
type Browser struct {
	mu       sync.RWMutex
	products []gateway.Product
	bounds   PriceRange
	selected map[string]struct{}
	price    PriceRange
	sortKey  enums.SortKey
}

func NewBrowser() *Browser {
	return &Browser{selected: map[string]struct{}{}, sortKey: enums.SortDefault}
}

// SetProducts swaps the list and resets the price selection to the new bounds.
func (b *Browser) SetProducts(products []gateway.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products = append([]gateway.Product(nil), products...)
	b.bounds = DefaultPriceRange(products)
	b.price = b.bounds
}

func (b *Browser) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Categories(b.products)
}

func (b *Browser) ToggleCategory(category string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.selected[category]; ok {
		delete(b.selected, category)
		return
	}
	b.selected[category] = struct{}{}
}

func (b *Browser) SelectAllCategories() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = map[string]struct{}{}
	for _, cat := range Categories(b.products) {
		b.selected[cat] = struct{}{}
	}
}

func (b *Browser) ClearCategories() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = map[string]struct{}{}
}

// SelectedCategories returns the selection in sorted order.
func (b *Browser) SelectedCategories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.selected))
	for cat := range b.selected {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// SetPriceMin moves the lower bound, clamped to [bounds.Min, current max].
func (b *Browser) SetPriceMin(v decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.price.Min = decimal.Min(decimal.Max(v, b.bounds.Min), b.price.Max)
}

// SetPriceMax moves the upper bound, clamped to [current min, bounds.Max].
func (b *Browser) SetPriceMax(v decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.price.Max = decimal.Max(decimal.Min(v, b.bounds.Max), b.price.Min)
}

func (b *Browser) ResetPriceRange() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.price = b.bounds
}

// PriceFilterActive reports whether the selection narrows the full price range.
func (b *Browser) PriceFilterActive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.price.Equal(b.bounds)
}

func (b *Browser) PriceBounds() PriceRange {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bounds
}

func (b *Browser) PriceSelection() PriceRange {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.price
}

func (b *Browser) SetSort(key enums.SortKey) {
	if !key.IsValid() {
		key = enums.SortDefault
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sortKey = key
}

func (b *Browser) Sort() enums.SortKey {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sortKey
}

// State returns a copy of the current selection.
func (b *Browser) State() FilterState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	selected := make(map[string]struct{}, len(b.selected))
	for cat := range b.selected {
		selected[cat] = struct{}{}
	}
	price := b.price
	return FilterState{Categories: selected, Price: &price, Sort: b.sortKey}
}

// Visible applies the current selection.
func (b *Browser) Visible() []gateway.Product {
	state := b.State()
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Apply(b.products, state)
}
