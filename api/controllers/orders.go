package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

type orderService interface {
	PlaceFromCart(ctx context.Context, description string) (*gateway.OrderReceipt, error)
	ListMine(ctx context.Context) ([]gateway.Order, error)
	Get(ctx context.Context, rawGUID string) (*gateway.Order, error)
	Exists(ctx context.Context, rawGUID string) (bool, error)
	Status(ctx context.Context, rawGUID string) (enums.OrderStatus, error)
}

type placeOrderRequest struct {
	Description string `json:"description" validate:"max=500"`
}

func PlaceOrder(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		receipt, err := svc.PlaceFromCart(r.Context(), validators.SanitizeString(payload.Description, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

func ListOrders(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := svc.ListMine(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, meta := pagination.Slice(orders, params)
		responses.WriteSuccess(w, pageResponse("orders", page, meta))
	}
}

func GetOrder(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Get(r.Context(), chi.URLParam(r, "guid"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderStatus answers 404 for unknown or malformed guids instead of surfacing a gateway error.
func OrderStatus(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guid := chi.URLParam(r, "guid")
		status, err := svc.Status(r.Context(), guid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if status == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"orderGuid": guid, "status": status})
	}
}

// OrderExists backs HEAD /orders/{guid}.
func OrderExists(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := svc.Exists(r.Context(), chi.URLParam(r, "guid"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func pageResponse(key string, items any, meta pagination.Meta) map[string]any {
	return map[string]any{key: items, "total": meta.Total, "pagination": meta}
}
