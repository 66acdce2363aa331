// Package orders places orders from the cart and reads them back.
package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/google/uuid"
)

const (
	emptyCartMessage   = "Your cart is empty"
	notLoggedInMessage = "You must be logged in to place orders"
	placeFailedMessage = "Failed to place order"
	fetchFailedMessage = "Failed to fetch orders"
)

type gatewayClient interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderReceipt, error)
	GetOrder(ctx context.Context, guid uuid.UUID) (*gateway.Order, error)
	ListCustomerOrders(ctx context.Context, customerID int64) ([]gateway.Order, error)
}

type cartSource interface {
	Current(ctx context.Context) (*gateway.Cart, error)
	Clear(ctx context.Context) error
}

type sessionView interface {
	Authenticated() bool
	User() *gateway.User
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Gateway gatewayClient
	Cart    cartSource
	Session sessionView
	Logger  *logger.Logger
}

type Service struct {
	gw      gatewayClient
	cart    cartSource
	session sessionView
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{gw: params.Gateway, cart: params.Cart, session: params.Session, logg: logg}, nil
}

// PlaceFromCart submits the current cart as an order and clears the cart on success.
func (s *Service) PlaceFromCart(ctx context.Context, description string) (*gateway.OrderReceipt, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}

	cart, err := s.cart.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, emptyCartMessage)
	}

	lines := make([]gateway.OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, gateway.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	receipt, err := s.gw.CreateOrder(ctx, gateway.OrderRequest{
		UserNameOrder:    user.Email,
		CustomerID:       user.ID,
		OrderDescription: strings.TrimSpace(description),
		Items:            lines,
	})
	if err != nil {
		return nil, gateway.Explain(err, placeFailedMessage)
	}

	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, user.ID), map[string]any{
		"order_guid": receipt.OrderGUID.String(),
		"item_count": receipt.ItemCount,
	})
	s.logg.Info(logCtx, "orders.placed")

	if err := s.cart.Clear(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "orders.clear_cart_failed")
	}
	return receipt, nil
}

// ListMine returns the signed-in user's orders, without item details.
func (s *Service) ListMine(ctx context.Context) ([]gateway.Order, error) {
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	orders, err := s.gw.ListCustomerOrders(ctx, user.ID)
	if err != nil {
		return nil, gateway.Explain(err, fetchFailedMessage)
	}
	return orders, nil
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, rawGUID string) (*gateway.Order, error) {
	if _, err := s.currentUser(); err != nil {
		return nil, err
	}
	guid, err := uuid.Parse(strings.TrimSpace(rawGUID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	order, err := s.gw.GetOrder(ctx, guid)
	if err != nil {
		return nil, gateway.Explain(err, "Failed to fetch order")
	}
	return order, nil
}

// Exists reports whether the order can be loaded. Not-found and malformed ids are false, not errors.
func (s *Service) Exists(ctx context.Context, rawGUID string) (bool, error) {
	_, err := s.Get(ctx, rawGUID)
	switch {
	case err == nil:
		return true, nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return false, nil
	default:
		return false, err
	}
}

// Status returns the order status, or "" when the order does not exist.
func (s *Service) Status(ctx context.Context, rawGUID string) (enums.OrderStatus, error) {
	order, err := s.Get(ctx, rawGUID)
	switch {
	case err == nil:
		return order.Status, nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		return "", nil
	default:
		return "", err
	}
}

func (s *Service) currentUser() (*gateway.User, error) {
	user := s.session.User()
	if !s.session.Authenticated() || user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, notLoggedInMessage)
	}
	return user, nil
}
