package catalog

import (
	"testing"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []gateway.Product {
	return []gateway.Product{
		product(1, "Electronics, Gadgets", "50"),
		product(2, "Books", "15.5"),
		product(3, "Home", "120.25"),
		product(4, "Gadgets", "15.5"),
	}
}

func ids(products []gateway.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestBrowserDefaultsShowEverything(t *testing.T) {
	b := NewBrowser()
	b.SetProducts(sampleProducts())

	assert.Equal(t, []int64{1, 2, 3, 4}, ids(b.Visible()))
	assert.False(t, b.PriceFilterActive())
	assert.True(t, b.PriceBounds().Min.Equal(decimal.NewFromInt(15)))
	assert.True(t, b.PriceBounds().Max.Equal(decimal.NewFromInt(121)))
	assert.Equal(t, []string{"Books", "Electronics", "Gadgets", "Home"}, b.Categories())
}

func TestBrowserCategoryToggles(t *testing.T) {
	b := NewBrowser()
	b.SetProducts(sampleProducts())

	b.ToggleCategory("Gadgets")
	assert.Equal(t, []int64{1, 4}, ids(b.Visible()))
	b.ToggleCategory("Books")
	assert.Equal(t, []int64{1, 2, 4}, ids(b.Visible()))
	b.ToggleCategory("Gadgets")
	assert.Equal(t, []int64{2}, ids(b.Visible()))

	b.SelectAllCategories()
	assert.Len(t, b.SelectedCategories(), 4)
	assert.Len(t, b.Visible(), 4)

	b.ClearCategories()
	assert.Empty(t, b.SelectedCategories())
	assert.Len(t, b.Visible(), 4)
}

func TestBrowserPriceSelectionClamps(t *testing.T) {
	b := NewBrowser()
	b.SetProducts(sampleProducts())

	b.SetPriceMin(decimal.NewFromInt(20))
	assert.True(t, b.PriceFilterActive())
	assert.Equal(t, []int64{1, 3}, ids(b.Visible()))

	b.SetPriceMax(decimal.NewFromInt(10))
	sel := b.PriceSelection()
	assert.True(t, sel.Max.Equal(decimal.NewFromInt(20)), "max cannot drop below min")

	b.SetPriceMin(decimal.NewFromInt(-5))
	assert.True(t, b.PriceSelection().Min.Equal(decimal.NewFromInt(15)), "min cannot drop below bounds")

	b.ResetPriceRange()
	assert.False(t, b.PriceFilterActive())
}

func TestBrowserSetProductsResetsPriceOnly(t *testing.T) {
	b := NewBrowser()
	b.SetProducts(sampleProducts())
	b.ToggleCategory("Books")
	b.SetPriceMax(decimal.NewFromInt(16))
	b.SetSort(enums.SortPriceDesc)

	b.SetProducts([]gateway.Product{product(9, "Books", "3"), product(10, "Books", "8")})
	require.False(t, b.PriceFilterActive())
	assert.Equal(t, []string{"Books"}, b.SelectedCategories())
	assert.Equal(t, []int64{10, 9}, ids(b.Visible()))
}

func TestBrowserSortIsStable(t *testing.T) {
	b := NewBrowser()
	b.SetProducts(sampleProducts())

	b.SetSort(enums.SortPriceAsc)
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(b.Visible()))
	b.SetSort(enums.SortPriceDesc)
	assert.Equal(t, []int64{3, 1, 2, 4}, ids(b.Visible()))
	b.SetSort(enums.SortKey("bogus"))
	assert.Equal(t, enums.SortDefault, b.Sort())
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(b.Visible()))
}
