package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway/gatewaytest"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	client, err := NewClient("http://gateway.test/api/", opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := NewClient("http://gateway.test", WithCartSchema("v9")); err == nil {
		t.Fatalf("expected error for unknown cart schema")
	}
}

func TestClientLoginRequest(t *testing.T) {
	var captured *http.Request
	var payload map[string]string

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"token":"tok-1","user":{"id":7,"email":"a@x.io","name":"Ann","role":"admin"}}`), nil
	})

	resp, err := client.Login(context.Background(), Credentials{Email: " a@x.io ", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if captured.URL.String() != "http://gateway.test/api/auth/login" {
		t.Fatalf("unexpected URL %q", captured.URL.String())
	}
	if captured.Method != http.MethodPost {
		t.Fatalf("unexpected method %s", captured.Method)
	}
	if captured.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("missing content type")
	}
	if captured.Header.Get("Authorization") != "" {
		t.Fatalf("unexpected authorization header %q", captured.Header.Get("Authorization"))
	}
	if _, err := uuid.Parse(captured.Header.Get(requestIDHeader)); err != nil {
		t.Fatalf("request id is not a uuid: %v", err)
	}
	if payload["email"] != "a@x.io" || payload["password"] != "pw" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if resp.Token != "tok-1" || resp.User.ID != 7 || resp.User.Role != enums.RoleAdmin {
		t.Fatalf("unexpected response %+v", resp.User)
	}
}

func TestClientLoginValidatesLocally(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	_, err := client.Login(context.Background(), Credentials{Email: "not-an-email", Password: ""})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClientLoginMissingTokenIsContractMismatch(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"user":{"id":1,"email":"a@x.io","name":"A","role":"Regular"}}`), nil
	})

	_, err := client.Login(context.Background(), Credentials{Email: "a@x.io", Password: "pw"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeContract))
	assert.Equal(t, "Invalid response format from server", pkgerrors.As(err).Message())
}

func TestClientAttachesBearerToken(t *testing.T) {
	var auth string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		auth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"message":"ok","data":[]}`), nil
	})
	client.SetTokenSource(staticToken("tok-9"))

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, "Bearer tok-9", auth)
}

func TestClientUnauthorizedHook(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"token expired"}`), nil
	})
	var hooked int32
	client.OnUnauthorized(func(context.Context) { atomic.AddInt32(&hooked, 1) })

	_, err := client.GetCart(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, "token expired", pkgerrors.As(err).Message())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hooked))

	_, err = client.Login(context.Background(), Credentials{Email: "a@x.io", Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hooked), "a failed login must not fire the hook")

	ok, err := client.VerifyAdmin(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hooked), "a 401 on the admin check fires the hook")
}

func TestClientAdminCheckForbiddenKeepsSession(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"error":"Forbidden"}`), nil
	})
	var hooked int32
	client.OnUnauthorized(func(context.Context) { atomic.AddInt32(&hooked, 1) })

	ok, err := client.VerifyAdmin(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, atomic.LoadInt32(&hooked))
}

func TestClientServerMessagePassedThrough(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":"Out of stock"}`), nil
	})

	_, err := client.AddCartItem(context.Background(), CartItemRequest{UserID: 1, ProductID: 2, Quantity: 5})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
	assert.Equal(t, "Out of stock", pkgerrors.UserMessage(err, "fallback"))
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, http.StatusBadRequest, pkgerrors.Dump(err).UpstreamStatus)
}

func TestClientTransportFailure(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Zero(t, StatusCode(err))

	ok, err := client.VerifyAdmin(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestClientRetriesOnlyReads(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if req.Method == http.MethodGet && n < 3 {
			return jsonResponse(http.StatusServiceUnavailable, `{"error":"warming up"}`), nil
		}
		if req.Method != http.MethodGet {
			return jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"message":"ok","data":[{"productId":1,"productName":"Tea","productPrice":4.5,"productStock":3,"productCategory":"drinks"}]}`), nil
	}, WithReadRetries(2, time.Millisecond))

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	err = client.CreateProduct(context.Background(), ProductRequest{Name: "Tea", Category: "drinks", Price: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Equal(t, "busy", pkgerrors.As(err).Message())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientRejectsMalformedProductList(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"message":"ok"}`), nil
	})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeContract))
}

func TestClientValidatesCartQuantityLocally(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	_, err := client.UpdateCartItem(context.Background(), CartItemRequest{UserID: 1, ProductID: 1, Quantity: 0})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClientProductRequestSendsNumericPrice(t *testing.T) {
	var payload map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.URL.Path != "/api/product/update/4" || req.Method != http.MethodPut {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"message":"Product updated"}`), nil
	})

	err := client.UpdateProduct(context.Background(), 4, ProductRequest{
		Name:     "Lamp",
		Category: "home,lighting",
		Price:    decimal.RequireFromString("19.99"),
		Stock:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, 19.99, payload["price"])
	assert.Equal(t, "home,lighting", payload["category"])
}

func TestClientCartSchemas(t *testing.T) {
	for _, schema := range []string{config.CartSchemaV1, config.CartSchemaV2} {
		t.Run(schema, func(t *testing.T) {
			fake := gatewaytest.New(t)
			fake.SetCartSchema(schema)
			userID := fake.AddUser("cart@x.io", "pw", "Cart", enums.RoleRegular)
			fake.AddProduct(gatewaytest.Product{ID: 10, Name: "Mug", Price: decimal.RequireFromString("7.25"), Stock: 5})

			client, err := NewClient(fake.URL, WithCartSchema(schema))
			require.NoError(t, err)
			client.SetTokenSource(staticToken(fake.IssueToken("cart@x.io")))

			cart, err := client.AddCartItem(context.Background(), CartItemRequest{UserID: userID, ProductID: 10, Quantity: 2})
			require.NoError(t, err)
			require.Len(t, cart.Items, 1)
			assert.Equal(t, 2, cart.ItemCount())
			assert.True(t, cart.TotalValue.Equal(decimal.RequireFromString("14.5")), cart.TotalValue.String())
			assert.True(t, cart.Items[0].ItemTotal.Equal(decimal.RequireFromString("14.5")))
		})
	}
}

func TestClientCartSchemaMismatchFails(t *testing.T) {
	fake := gatewaytest.New(t)
	fake.SetCartSchema(config.CartSchemaV2)
	userID := fake.AddUser("cart@x.io", "pw", "Cart", enums.RoleRegular)

	client, err := NewClient(fake.URL, WithCartSchema(config.CartSchemaV1))
	require.NoError(t, err)
	client.SetTokenSource(staticToken(fake.IssueToken("cart@x.io")))

	_, err = client.GetCart(context.Background(), userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeContract))
}

func TestClientOrdersAndUsers(t *testing.T) {
	fake := gatewaytest.New(t)
	adminID := fake.AddUser("boss@x.io", "pw", "Boss", enums.RoleAdmin)
	fake.AddUser("joe@x.io", "pw", "Joe", enums.RoleRegular)
	fake.AddProduct(gatewaytest.Product{ID: 1, Name: "Pen", Price: decimal.RequireFromString("1.5"), Stock: 10})

	client, err := NewClient(fake.URL)
	require.NoError(t, err)
	token := fake.IssueToken("boss@x.io")
	client.SetTokenSource(staticToken(token))

	receipt, err := client.CreateOrder(context.Background(), OrderRequest{
		UserNameOrder: "boss@x.io",
		CustomerID:    adminID,
		Items:         []OrderLine{{ProductID: 1, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, receipt.Status)
	assert.True(t, receipt.TotalAmount.Equal(decimal.NewFromInt(6)))

	order, err := client.GetOrder(context.Background(), receipt.OrderGUID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Pen", order.Items[0].ProductName)

	orders, err := client.ListCustomerOrders(context.Background(), adminID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Empty(t, orders[0].Items)

	ok, err := client.VerifyAdmin(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, ok)

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	joe, err := client.GetUserByEmail(context.Background(), "joe@x.io")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleRegular, joe.Role)

	msg, err := client.PromoteUser(context.Background(), "joe@x.io")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	joe, err = client.GetUser(context.Background(), joe.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, joe.Role)

	_, err = client.DeleteUser(context.Background(), joe.ID)
	require.NoError(t, err)
	_, err = client.GetUser(context.Background(), joe.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestClientRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"error":"Product not found"}`), nil
	}, WithMetrics(metrics.NewGatewayMetrics(reg)))

	_, err := client.GetProduct(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "gateway_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == "product.get" && labels["status"] == "404" {
				found = m.GetCounter().GetValue() == 1
			}
		}
	}
	assert.True(t, found, "expected product.get 404 counter")
}

func TestExtractMessage(t *testing.T) {
	cases := map[string]string{
		`{"error":"Out of stock"}`:                "Out of stock",
		`{"message":"User already exists"}`:       "User already exists",
		`{"error":{"message":"nested problem"}}`:  "nested problem",
		`"plain json string"`:                     "plain json string",
		`Service Unavailable`:                     "Service Unavailable",
		`{"title":"One or more errors occurred"}`: "One or more errors occurred",
		`<html>oops</html>`:                       "",
		``:                                        "",
	}
	for body, want := range cases {
		if got := extractMessage([]byte(body)); got != want {
			t.Fatalf("extractMessage(%q) = %q, want %q", body, got, want)
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
