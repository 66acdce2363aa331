package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type catalogService interface {
	List(ctx context.Context, q catalog.Query) (*catalog.Listing, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, term, category string) ([]gateway.Product, error)
}

// ListProducts serves the filtered and sorted catalog.
// Query: category (repeatable or comma separated), minPrice, maxPrice, sort.
func ListProducts(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minPrice, err := validators.ParseQueryDecimal(r, "minPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		maxPrice, err := validators.ParseQueryDecimal(r, "maxPrice")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// unknown sort keys fall back to the default ordering
		sortKey, _ := enums.ParseSortKey(r.URL.Query().Get("sort"))

		listing, err := svc.List(r.Context(), catalog.Query{
			Categories: validators.ParseQueryList(r, "category"),
			MinPrice:   minPrice,
			MaxPrice:   maxPrice,
			Sort:       sortKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListCategories(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func SearchProducts(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := validators.SanitizeString(r.URL.Query().Get("q"), 200)
		category := validators.SanitizeString(r.URL.Query().Get("category"), 100)
		products, err := svc.Search(r.Context(), term, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products, "total": len(products)})
	}
}
