package catalog

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

const fetchFailedMessage = "Failed to fetch products"

type productSource interface {
	ListProducts(ctx context.Context) ([]gateway.Product, error)
	SearchProducts(ctx context.Context, term, category string) ([]gateway.Product, error)
}

// Query is the selection requested by a caller. Unset price bounds fall back to the full range.
type Query struct {
	Categories []string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       enums.SortKey
}

// Listing is a filtered view plus the facets needed to render the controls.
type Listing struct {
	Products           []gateway.Product `json:"products"`
	Total              int               `json:"total"`
	Categories         []string          `json:"categories"`
	SelectedCategories []string          `json:"selectedCategories"`
	PriceBounds        PriceRange        `json:"priceBounds"`
	PriceSelection     PriceRange        `json:"priceSelection"`
	PriceFilterActive  bool              `json:"priceFilterActive"`
	Sort               enums.SortKey     `json:"sort"`
	SortLabel          string            `json:"sortLabel"`
}

type Service struct {
	source productSource
	logg   *logger.Logger
}

func NewService(source productSource, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{source: source, logg: logg}
}

// List fetches the catalog fresh and applies q. Price bounds are applied as given, so a
// range outside the catalog yields no products.
func (s *Service) List(ctx context.Context, q Query) (*Listing, error) {
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice must not exceed maxPrice").
			WithDetails(map[string]any{"minPrice": q.MinPrice.String(), "maxPrice": q.MaxPrice.String()})
	}
	products, err := s.source.ListProducts(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	browser := NewBrowser()
	browser.SetProducts(products)
	known := map[string]struct{}{}
	for _, cat := range browser.Categories() {
		known[cat] = struct{}{}
	}
	for _, cat := range q.Categories {
		if _, ok := known[cat]; ok {
			browser.ToggleCategory(cat)
		}
	}
	browser.SetSort(q.Sort)

	state := browser.State()
	bounds := browser.PriceBounds()
	selection := bounds
	if q.MinPrice != nil {
		selection.Min = *q.MinPrice
	}
	if q.MaxPrice != nil {
		selection.Max = *q.MaxPrice
	}
	state.Price = &selection

	visible := Apply(products, state)
	return &Listing{
		Products:           visible,
		Total:              len(visible),
		Categories:         browser.Categories(),
		SelectedCategories: browser.SelectedCategories(),
		PriceBounds:        bounds,
		PriceSelection:     selection,
		PriceFilterActive:  !selection.Equal(bounds),
		Sort:               browser.Sort(),
		SortLabel:          browser.Sort().Label(),
	}, nil
}

// Categories lists the distinct tags of the current catalog.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.source.ListProducts(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return Categories(products), nil
}

// Search runs the gateway-side search.
func (s *Service) Search(ctx context.Context, term, category string) ([]gateway.Product, error) {
	products, err := s.source.SearchProducts(ctx, term, category)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return products, nil
}

func (s *Service) fail(ctx context.Context, err error) error {
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog.fetch_failed")
	return gateway.Explain(err, fetchFailedMessage)
}
