// Package cart mirrors the signed-in user's gateway cart. The gateway is the only source of
// truth: every successful call replaces the local copy with the server's cart.
package cart

import (
	"context"
	"errors"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrNotLoggedIn is wrapped by every operation attempted without a signed-in user.
var ErrNotLoggedIn = errors.New("not logged in")

var validate = validator.New()

type quantityInput struct {
	ProductID int64 `validate:"gt=0"`
	Quantity  int   `validate:"gt=0"`
}

type gatewayClient interface {
	GetCart(ctx context.Context, userID int64) (*gateway.Cart, error)
	AddCartItem(ctx context.Context, req gateway.CartItemRequest) (*gateway.Cart, error)
	UpdateCartItem(ctx context.Context, req gateway.CartItemRequest) (*gateway.Cart, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type sessionView interface {
	Authenticated() bool
	User() *gateway.User
}

// Aggregator holds the cart view. The mutex guards memory only; concurrent operations are
// not serialized and the last response to land wins.
type Aggregator struct {
	gw      gatewayClient
	session sessionView
	logg    *logger.Logger

	mu       sync.RWMutex
	cart     *gateway.Cart
	owner    int64
	loaded   bool
	gen      uint64
	inFlight int
	lastErr  string
}

func NewAggregator(gw gatewayClient, session sessionView, logg *logger.Logger) *Aggregator {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Aggregator{gw: gw, session: session, logg: logg}
}

// Fetch reloads the cart from the gateway.
func (a *Aggregator) Fetch(ctx context.Context) (*gateway.Cart, error) {
	userID, err := a.userID("You must be logged in to view your cart")
	if err != nil {
		return nil, err
	}
	gen, done := a.begin()
	defer done()

	cart, err := a.gw.GetCart(ctx, userID)
	if err != nil {
		return nil, a.fail(ctx, err, "Failed to fetch cart")
	}
	return a.replace(ctx, gen, userID, cart), nil
}

// Add puts quantity more of a product in the cart.
func (a *Aggregator) Add(ctx context.Context, productID int64, quantity int) (*gateway.Cart, error) {
	return a.mutate(ctx, productID, quantity,
		"You must be logged in to add items to cart", "Failed to add item to cart", a.gw.AddCartItem)
}

// UpdateQuantity sets the quantity of an existing line.
func (a *Aggregator) UpdateQuantity(ctx context.Context, productID int64, quantity int) (*gateway.Cart, error) {
	return a.mutate(ctx, productID, quantity,
		"You must be logged in to update cart", "Failed to update cart item", a.gw.UpdateCartItem)
}

func (a *Aggregator) mutate(
	ctx context.Context,
	productID int64,
	quantity int,
	notLoggedIn, fallback string,
	call func(context.Context, gateway.CartItemRequest) (*gateway.Cart, error),
) (*gateway.Cart, error) {
	userID, err := a.userID(notLoggedIn)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(quantityInput{ProductID: productID, Quantity: quantity}); err != nil {
		verr := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Quantity must be greater than zero")
		a.setErr(verr.Message())
		return nil, verr
	}

	gen, done := a.begin()
	defer done()

	cart, err := call(ctx, gateway.CartItemRequest{UserID: userID, ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, a.fail(ctx, err, fallback)
	}
	return a.replace(ctx, gen, userID, cart), nil
}

// Remove drops a line, then reloads the whole cart.
func (a *Aggregator) Remove(ctx context.Context, productID int64) (*gateway.Cart, error) {
	userID, err := a.userID("You must be logged in to remove items from cart")
	if err != nil {
		return nil, err
	}
	gen, done := a.begin()
	defer done()

	if err := a.gw.RemoveCartItem(ctx, userID, productID); err != nil {
		return nil, a.fail(ctx, err, "Failed to remove item from cart")
	}
	cart, err := a.gw.GetCart(ctx, userID)
	if err != nil {
		return nil, a.fail(ctx, err, "Failed to fetch cart")
	}
	return a.replace(ctx, gen, userID, cart), nil
}

// Clear empties the cart on the gateway and drops the local copy.
func (a *Aggregator) Clear(ctx context.Context) error {
	userID, err := a.userID("You must be logged in to clear cart")
	if err != nil {
		return err
	}
	gen, done := a.begin()
	defer done()

	if err := a.gw.ClearCart(ctx, userID); err != nil {
		return a.fail(ctx, err, "Failed to clear cart")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current(gen, userID) {
		a.cart = nil
		a.owner = userID
		a.loaded = true
		a.lastErr = ""
	}
	return nil
}

// Current returns the cart, loading it on first use and whenever the signed-in user changed.
func (a *Aggregator) Current(ctx context.Context) (*gateway.Cart, error) {
	var userID int64
	if user := a.session.User(); user != nil {
		userID = user.ID
	}
	a.mu.RLock()
	loaded, cart := a.loaded && a.owner == userID, a.cart.Clone()
	a.mu.RUnlock()
	if loaded {
		return cart, nil
	}
	return a.Fetch(ctx)
}

// Reset forgets the local cart. Wired to session sign-out. Calls still in flight
// finish without touching the local cart.
func (a *Aggregator) Reset(_ context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cart = nil
	a.owner = 0
	a.loaded = false
	a.gen++
	a.lastErr = ""
}

// Cart returns a copy of the local cart, nil when empty or not loaded.
func (a *Aggregator) Cart() *gateway.Cart {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cart.Clone()
}

// ItemCount sums quantities across the local cart.
func (a *Aggregator) ItemCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cart.ItemCount()
}

// TotalAmount is the gateway-computed total, zero without a cart.
func (a *Aggregator) TotalAmount() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.cart == nil {
		return decimal.Zero
	}
	return a.cart.TotalValue
}

// Loading reports whether any cart call is in flight.
func (a *Aggregator) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.inFlight > 0
}

// Err returns the message of the last failed operation, or "".
func (a *Aggregator) Err() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

func (a *Aggregator) userID(notLoggedIn string) (int64, error) {
	user := a.session.User()
	if !a.session.Authenticated() || user == nil || user.ID == 0 {
		a.setErr(notLoggedIn)
		return 0, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, ErrNotLoggedIn, notLoggedIn)
	}
	return user.ID, nil
}

func (a *Aggregator) begin() (uint64, func()) {
	a.mu.Lock()
	a.inFlight++
	a.lastErr = ""
	gen := a.gen
	a.mu.Unlock()
	return gen, func() {
		a.mu.Lock()
		a.inFlight--
		a.mu.Unlock()
	}
}

// replace stores cart as the local copy unless the session moved on since gen was taken
// or the cart belongs to someone else. The caller still gets the cart it asked for.
func (a *Aggregator) replace(ctx context.Context, gen uint64, userID int64, cart *gateway.Cart) *gateway.Cart {
	a.mu.Lock()
	defer a.mu.Unlock()
	foreign := cart != nil && cart.UserID != 0 && cart.UserID != userID
	if foreign || !a.current(gen, userID) {
		a.logg.Warn(a.logg.WithFields(ctx, map[string]any{"user_id": userID, "foreign": foreign}), "cart.stale_response_dropped")
		return cart.Clone()
	}
	a.cart = cart.Clone()
	a.owner = userID
	a.loaded = true
	return cart.Clone()
}

// current reports whether a call started at gen for userID still speaks for the session.
// Callers hold a.mu.
func (a *Aggregator) current(gen uint64, userID int64) bool {
	if gen != a.gen {
		return false
	}
	user := a.session.User()
	return user != nil && user.ID == userID
}

func (a *Aggregator) fail(ctx context.Context, err error, fallback string) error {
	explained := gateway.Explain(err, fallback)
	msg := pkgerrors.As(explained).Message()
	a.setErr(msg)
	a.logg.Warn(a.logg.WithFields(ctx, map[string]any{"error": err.Error(), "message": msg}), "cart.operation_failed")
	return explained
}

func (a *Aggregator) setErr(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastErr = msg
}
