package cart_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/session/sessiontest"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/gateway/gatewaytest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h      *sessiontest.Harness
	agg    *cart.Aggregator
	userID int64
}

func newFixture(t *testing.T, signIn bool) fixture {
	t.Helper()
	h := sessiontest.New(t)
	userID := h.Fake.AddUser("ann@x.io", "pw", "Ann", enums.RoleRegular)
	h.Fake.AddProduct(gatewaytest.Product{ID: 1, Name: "Tea", Price: decimal.RequireFromString("4.50"), Stock: 10, Category: "drinks"})
	h.Fake.AddProduct(gatewaytest.Product{ID: 2, Name: "Lamp", Price: decimal.RequireFromString("20"), Stock: 3, Category: "home"})
	agg := cart.NewAggregator(h.Client, h.Session, nil)
	h.Session.OnSignOut(agg.Reset)
	if signIn {
		h.SignIn(t, "ann@x.io", "pw")
	}
	return fixture{h: h, agg: agg, userID: userID}
}

func TestOperationsRequireSignIn(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cart.ErrNotLoggedIn))
	assert.Equal(t, "You must be logged in to add items to cart", f.agg.Err())

	_, err = f.agg.Fetch(ctx)
	assert.True(t, errors.Is(err, cart.ErrNotLoggedIn))
	_, err = f.agg.UpdateQuantity(ctx, 1, 2)
	assert.True(t, errors.Is(err, cart.ErrNotLoggedIn))
	_, err = f.agg.Remove(ctx, 1)
	assert.True(t, errors.Is(err, cart.ErrNotLoggedIn))
	assert.True(t, errors.Is(f.agg.Clear(ctx), cart.ErrNotLoggedIn))

	assert.Empty(t, f.h.Fake.Calls())
}

func TestAddReplacesLocalCartWithServerCart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	c, err := f.agg.Add(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	_, err = f.agg.Add(ctx, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, f.agg.ItemCount())
	assert.True(t, f.agg.TotalAmount().Equal(decimal.RequireFromString("29")), f.agg.TotalAmount().String())
	assert.Empty(t, f.agg.Err())
	assert.False(t, f.agg.Loading())
}

func TestOutOfStockLeavesCartUnchanged(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 2, 1)
	require.NoError(t, err)
	before := f.agg.Cart()

	_, err = f.agg.Add(ctx, 2, 5)
	require.Error(t, err)
	assert.Equal(t, "Out of stock", pkgerrors.UserMessage(err, ""))
	assert.Equal(t, "Out of stock", f.agg.Err())
	assert.Equal(t, before, f.agg.Cart())
	assert.Equal(t, 1, f.h.Fake.CartQuantity(f.userID, 2))
}

func TestQuantityValidatedBeforeRequest(t *testing.T) {
	f := newFixture(t, true)
	calls := len(f.h.Fake.Calls())

	_, err := f.agg.UpdateQuantity(context.Background(), 1, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.agg.Add(context.Background(), 1, -3)
	require.Error(t, err)
	assert.Len(t, f.h.Fake.Calls(), calls)
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 1, 2)
	require.NoError(t, err)
	c, err := f.agg.UpdateQuantity(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.ItemCount())
	assert.Equal(t, 5, f.h.Fake.CartQuantity(f.userID, 1))
}

func TestRemoveRefetchesWholeCart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 1, 1)
	require.NoError(t, err)
	_, err = f.agg.Add(ctx, 2, 2)
	require.NoError(t, err)

	c, err := f.agg.Remove(ctx, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(2), c.Items[0].ProductID)
	assert.Equal(t, 1, f.h.Fake.CallCount(http.MethodGet, "/cart/1"))
}

func TestClearDropsLocalCart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 1, 1)
	require.NoError(t, err)
	require.NoError(t, f.agg.Clear(ctx))
	assert.Nil(t, f.agg.Cart())
	assert.Zero(t, f.agg.ItemCount())
	assert.True(t, f.agg.TotalAmount().IsZero())
}

func TestCurrentLoadsOnceThenServesLocalCopy(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Current(ctx)
	require.NoError(t, err)
	_, err = f.agg.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.h.Fake.CallCount(http.MethodGet, "/cart/1"))
}

func TestSignOutResetsCart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 1, 1)
	require.NoError(t, err)
	require.NoError(t, f.h.Session.Logout(ctx))
	assert.Nil(t, f.agg.Cart())
	assert.Zero(t, f.agg.ItemCount())
}

func TestFetchFailureKeepsPreviousCart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Add(ctx, 1, 1)
	require.NoError(t, err)
	f.h.Fake.Fail(http.MethodGet, "/cart/1", http.StatusInternalServerError, ``)

	_, err = f.agg.Fetch(ctx)
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch cart", f.agg.Err())
	assert.Equal(t, 1, f.agg.ItemCount())
}

type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingGateway) GetCart(ctx context.Context, userID int64) (*gateway.Cart, error) {
	b.entered <- struct{}{}
	<-b.release
	return &gateway.Cart{UserID: userID}, nil
}

func (b *blockingGateway) AddCartItem(context.Context, gateway.CartItemRequest) (*gateway.Cart, error) {
	return nil, errors.New("unused")
}

func (b *blockingGateway) UpdateCartItem(context.Context, gateway.CartItemRequest) (*gateway.Cart, error) {
	return nil, errors.New("unused")
}

func (b *blockingGateway) RemoveCartItem(context.Context, int64, int64) error { return nil }
func (b *blockingGateway) ClearCart(context.Context, int64) error             { return nil }

type signedIn struct{}

func (signedIn) Authenticated() bool { return true }
func (signedIn) User() *gateway.User { return &gateway.User{ID: 9, Email: "a@x.io", Role: enums.RoleRegular} }

func TestLoadingTracksOverlappingCalls(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	agg := cart.NewAggregator(gw, signedIn{}, nil)

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _ = agg.Fetch(context.Background())
			done <- struct{}{}
		}()
	}
	<-gw.entered
	<-gw.entered
	assert.True(t, agg.Loading())

	gw.release <- struct{}{}
	<-done
	assert.True(t, agg.Loading(), "one call still in flight")

	gw.release <- struct{}{}
	<-done
	assert.False(t, agg.Loading())
}

type switchableSession struct {
	mu   sync.Mutex
	user *gateway.User
}

func (s *switchableSession) set(user *gateway.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *switchableSession) Authenticated() bool { return s.User() != nil }

func (s *switchableSession) User() *gateway.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

type ownedCartGateway struct {
	blockingGateway
	items map[int64][]gateway.CartItem
}

func (g *ownedCartGateway) GetCart(ctx context.Context, userID int64) (*gateway.Cart, error) {
	cart, _ := g.blockingGateway.GetCart(ctx, userID)
	cart.Items = g.items[userID]
	return cart, nil
}

func TestLateFetchDoesNotLeakAcrossUsers(t *testing.T) {
	gw := &ownedCartGateway{
		blockingGateway: blockingGateway{entered: make(chan struct{}), release: make(chan struct{})},
		items:           map[int64][]gateway.CartItem{1: {{ProductID: 7, Quantity: 3}}},
	}
	sess := &switchableSession{user: &gateway.User{ID: 1, Email: "one@x.io", Role: enums.RoleRegular}}
	agg := cart.NewAggregator(gw, sess, nil)

	done := make(chan struct{})
	go func() {
		_, _ = agg.Fetch(context.Background())
		close(done)
	}()
	<-gw.entered

	sess.set(nil)
	agg.Reset(context.Background())
	sess.set(&gateway.User{ID: 2, Email: "two@x.io", Role: enums.RoleRegular})
	gw.release <- struct{}{}
	<-done

	assert.Nil(t, agg.Cart())
	assert.Zero(t, agg.ItemCount())

	go func() {
		<-gw.entered
		gw.release <- struct{}{}
	}()
	got, err := agg.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
	assert.Zero(t, agg.ItemCount())
}

func TestCurrentRefetchesWhenUserChangesWithoutReset(t *testing.T) {
	gw := &ownedCartGateway{
		blockingGateway: blockingGateway{entered: make(chan struct{}, 2), release: make(chan struct{}, 2)},
		items:           map[int64][]gateway.CartItem{1: {{ProductID: 7, Quantity: 3}}},
	}
	gw.release <- struct{}{}
	gw.release <- struct{}{}
	sess := &switchableSession{user: &gateway.User{ID: 1, Email: "one@x.io", Role: enums.RoleRegular}}
	agg := cart.NewAggregator(gw, sess, nil)

	_, err := agg.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, agg.ItemCount())

	sess.set(&gateway.User{ID: 2, Email: "two@x.io", Role: enums.RoleRegular})
	got, err := agg.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
	assert.Zero(t, agg.ItemCount())
}

type foreignCartGateway struct{ blockingGateway }

func (foreignCartGateway) GetCart(context.Context, int64) (*gateway.Cart, error) {
	return &gateway.Cart{UserID: 1, Items: []gateway.CartItem{{ProductID: 7, Quantity: 3}}}, nil
}

func TestForeignCartIsNotStored(t *testing.T) {
	agg := cart.NewAggregator(&foreignCartGateway{}, signedIn{}, nil)

	_, err := agg.Fetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, agg.Cart())
}
