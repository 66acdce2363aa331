// Package gatewaytest runs an in-memory storefront gateway for tests.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type account struct {
	id        int64
	email     string
	password  string
	name      string
	role      enums.Role
	createdAt time.Time
}

// Product seeds the fake catalog.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
}

type cartLine struct {
	productID int64
	quantity  int
}

type order struct {
	id          int64
	guid        uuid.UUID
	customerID  int64
	email       string
	description string
	status      enums.OrderStatus
	createdAt   time.Time
	lines       []cartLine
	prices      map[int64]decimal.Decimal
}

type failure struct {
	status int
	body   string
}

// Server is a fake gateway backed by maps.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	cartSchema string
	nextUserID int64
	nextOrder  int64
	accounts   map[string]*account
	tokens     map[string]string
	products   map[int64]*Product
	carts      map[int64][]cartLine
	orders     []*order
	failures   map[string]failure
	calls      []string
}

// New starts a fake gateway serving the v1 cart schema.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		cartSchema: config.CartSchemaV1,
		nextUserID: 1,
		nextOrder:  1,
		accounts:   map[string]*account{},
		tokens:     map[string]string{},
		products:   map[int64]*Product{},
		carts:      map[int64][]cartLine{},
		failures:   map[string]failure{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// SetCartSchema switches the cart payload field names.
func (s *Server) SetCartSchema(schema string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartSchema = schema
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(email, password, name string, role enums.Role) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, name, role)
}

func (s *Server) addUserLocked(email, password, name string, role enums.Role) int64 {
	id := s.nextUserID
	s.nextUserID++
	s.accounts[strings.ToLower(email)] = &account{
		id:        id,
		email:     email,
		password:  password,
		name:      name,
		role:      role,
		createdAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return id
}

// SetRole changes a user's role server-side.
func (s *Server) SetRole(email string, role enums.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[strings.ToLower(email)]; ok {
		acct.role = role
	}
}

// IssueToken mints a valid token for email without a login call.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = strings.ToLower(email)
	return token
}

// Revoke invalidates a token.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// AddProduct seeds a catalog entry.
func (s *Server) AddProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

// Fail forces every request matching method and path to answer with status and body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// Heal removes a forced failure.
func (s *Server) Heal(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

// Calls lists "METHOD path" for every request received.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts requests matching method and path.
func (s *Server) CallCount(method, path string) int {
	key := method + " " + path
	count := 0
	for _, c := range s.Calls() {
		if c == key {
			count++
		}
	}
	return count
}

// CartQuantity reports the stored quantity for a user's product.
func (s *Server) CartQuantity(userID, productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.carts[userID] {
		if line.productID == productID {
			return line.quantity
		}
	}
	return 0
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post("/auth/login", s.login)
	r.Post("/auth/logout", s.logout)
	r.Post("/user/register", s.register)

	r.Get("/product", s.listProducts)
	r.Get("/product/search", s.searchProducts)
	r.Get("/product/{id}", s.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticated)

		r.Get("/cart/{userID}", s.getCart)
		r.Post("/cart/add", s.addToCart)
		r.Put("/cart/update", s.updateCart)
		r.Delete("/cart/{userID}/item/{productID}", s.removeFromCart)
		r.Delete("/cart/{userID}/clear", s.clearCart)

		r.Post("/order", s.createOrder)
		r.Get("/order/{guid}", s.getOrder)
		r.Get("/order/customer/{customerID}", s.customerOrders)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/user/list-all-users", s.listUsers)
			r.Get("/user/email/{email}", s.userByEmail)
			r.Get("/user/{id}", s.userByID)
			r.Delete("/user/{id}", s.deleteUser)
			r.Post("/user/demote/{email}", s.demote)
			r.Post("/setup/{email}", s.promote)
			r.Post("/product/add", s.createProduct)
			r.Put("/product/update/{id}", s.updateProduct)
		})
	})
	return r
}

type ctxAccount struct{}

func contextWithAccount(r *http.Request, acct *account) context.Context {
	return context.WithValue(r.Context(), ctxAccount{}, acct)
}

func accountFrom(r *http.Request) *account {
	acct, _ := r.Context().Value(ctxAccount{}).(*account)
	return acct
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		f, failing := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct := s.accountFor(r)
		if acct == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithAccount(r, acct)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct := accountFrom(r)
		s.mu.Lock()
		admin := acct != nil && acct.role == enums.RoleAdmin
		s.mu.Unlock()
		if !admin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accountFor(r *http.Request) *account {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return s.accounts[email]
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(body.Email)]
	if !ok || acct.password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := uuid.NewString()
	s.tokens[token] = strings.ToLower(acct.email)
	resp := map[string]any{
		"token": token,
		"user": map[string]any{
			"id":    acct.id,
			"email": acct.email,
			"name":  acct.name,
			"role":  string(acct.role),
		},
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	delete(s.tokens, body.Token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(body.Email)]; exists {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}
	id := s.addUserLocked(body.Email, body.Password, body.Name, enums.RoleRegular)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered", "userId": id})
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	data := s.productPayloadsLocked(func(*Product) bool { return true })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "data": data})
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(r.URL.Query().Get("search"))
	category := strings.ToLower(r.URL.Query().Get("category"))
	s.mu.Lock()
	data := s.productPayloadsLocked(func(p *Product) bool {
		if term != "" && !strings.Contains(strings.ToLower(p.Name), term) {
			return false
		}
		if category != "" && !strings.Contains(strings.ToLower(p.Category), category) {
			return false
		}
		return true
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	s.mu.Lock()
	p, ok := s.products[id]
	var payload map[string]any
	if ok {
		payload = productPayload(p)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type productBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	var next int64 = 1
	for id := range s.products {
		if id >= next {
			next = id + 1
		}
	}
	s.products[next] = &Product{ID: next, Name: body.Name, Description: body.Description, Category: body.Category, Price: body.Price, Stock: body.Stock}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Product created", "productId": next})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	var body productBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	p.Name, p.Description, p.Category, p.Price, p.Stock = body.Name, body.Description, body.Category, body.Price, body.Stock
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated"})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownUserID(w, r, chi.URLParam(r, "userID"))
	if !ok {
		return
	}
	s.mu.Lock()
	payload := s.cartPayloadLocked(userID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

type cartBody struct {
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	s.mutateCart(w, r, func(current int, requested int) int { return current + requested })
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	s.mutateCart(w, r, func(_ int, requested int) int { return requested })
}

func (s *Server) mutateCart(w http.ResponseWriter, r *http.Request, next func(current, requested int) int) {
	var body cartBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if _, ok := s.ownUserID(w, r, strconv.FormatInt(body.UserID, 10)); !ok {
		return
	}
	if body.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[body.ProductID]
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	lines := s.carts[body.UserID]
	idx := -1
	current := 0
	for i, line := range lines {
		if line.productID == body.ProductID {
			idx, current = i, line.quantity
		}
	}
	quantity := next(current, body.Quantity)
	if quantity > product.Stock {
		writeError(w, http.StatusBadRequest, "Out of stock")
		return
	}
	if idx >= 0 {
		lines[idx].quantity = quantity
	} else {
		lines = append(lines, cartLine{productID: body.ProductID, quantity: quantity})
	}
	s.carts[body.UserID] = lines
	writeJSON(w, http.StatusOK, s.cartPayloadLocked(body.UserID))
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownUserID(w, r, chi.URLParam(r, "userID"))
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	s.mu.Lock()
	lines := s.carts[userID][:0:0]
	for _, line := range s.carts[userID] {
		if line.productID != productID {
			lines = append(lines, line)
		}
	}
	s.carts[userID] = lines
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownUserID(w, r, chi.URLParam(r, "userID"))
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserNameOrder    string `json:"userNameOrder"`
		CustomerID       int64  `json:"customerId"`
		OrderDescription string `json:"orderDescription"`
		Items            []struct {
			ProductID int64 `json:"productId"`
			Quantity  int   `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		writeError(w, http.StatusBadRequest, "Order must contain items")
		return
	}
	if _, ok := s.ownUserID(w, r, strconv.FormatInt(body.CustomerID, 10)); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o := &order{
		id:          s.nextOrder,
		guid:        uuid.New(),
		customerID:  body.CustomerID,
		email:       body.UserNameOrder,
		description: body.OrderDescription,
		status:      enums.OrderStatusPending,
		createdAt:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
		prices:      map[int64]decimal.Decimal{},
	}
	total := decimal.Zero
	for _, item := range body.Items {
		p, ok := s.products[item.ProductID]
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Product %d not found", item.ProductID))
			return
		}
		o.lines = append(o.lines, cartLine{productID: item.ProductID, quantity: item.Quantity})
		o.prices[item.ProductID] = p.Price
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	s.nextOrder++
	s.orders = append(s.orders, o)
	writeJSON(w, http.StatusCreated, map[string]any{
		"orderGuid":   o.guid.String(),
		"customerId":  o.customerID,
		"totalAmount": money(total),
		"status":      string(o.status),
		"itemCount":   len(o.lines),
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	guid, err := uuid.Parse(chi.URLParam(r, "guid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	acct := accountFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.guid == guid && (o.customerID == acct.id || acct.role == enums.RoleAdmin) {
			writeJSON(w, http.StatusOK, s.orderPayloadLocked(o, true))
			return
		}
	}
	writeError(w, http.StatusNotFound, "Order not found")
}

func (s *Server) customerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := s.ownUserID(w, r, chi.URLParam(r, "customerID"))
	if !ok {
		return
	}
	s.mu.Lock()
	out := []map[string]any{}
	for _, o := range s.orders {
		if o.customerID == customerID {
			out = append(out, s.orderPayloadLocked(o, false))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	data := make([]map[string]any, 0, len(s.accounts))
	for _, acct := range s.sortedAccountsLocked() {
		data = append(data, accountPayload(acct))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "data": data})
}

func (s *Server) userByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(chi.URLParam(r, "email"))
	s.mu.Lock()
	acct, ok := s.accounts[email]
	var payload map[string]any
	if ok {
		payload = accountPayload(acct)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "data": payload})
}

func (s *Server) userByID(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.accountByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s.mu.Lock()
	payload := accountPayload(acct)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.accountByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s.mu.Lock()
	delete(s.accounts, strings.ToLower(acct.email))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (s *Server) demote(w http.ResponseWriter, r *http.Request) {
	s.setRoleFromPath(w, r, enums.RoleRegular, "User demoted")
}

func (s *Server) promote(w http.ResponseWriter, r *http.Request) {
	s.setRoleFromPath(w, r, enums.RoleAdmin, "User promoted to admin")
}

func (s *Server) setRoleFromPath(w http.ResponseWriter, r *http.Request, role enums.Role, msg string) {
	email := strings.ToLower(chi.URLParam(r, "email"))
	s.mu.Lock()
	acct, ok := s.accounts[email]
	if ok {
		acct.role = role
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) accountByID(raw string) (*account, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.id == id {
			return acct, true
		}
	}
	return nil, false
}

// ownUserID parses raw and rejects access to another user's resources unless the caller is admin.
func (s *Server) ownUserID(w http.ResponseWriter, r *http.Request, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	acct := accountFrom(r)
	s.mu.Lock()
	allowed := acct.id == id || acct.role == enums.RoleAdmin
	s.mu.Unlock()
	if !allowed {
		writeError(w, http.StatusForbidden, "Forbidden")
		return 0, false
	}
	return id, true
}

func (s *Server) sortedAccountsLocked() []*account {
	out := make([]*account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Server) productPayloadsLocked(keep func(*Product) bool) []map[string]any {
	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if p := s.products[id]; keep(p) {
			out = append(out, productPayload(p))
		}
	}
	return out
}

func (s *Server) cartPayloadLocked(userID int64) map[string]any {
	totalKey, lineKey := "totalAmount", "totalPrice"
	if s.cartSchema == config.CartSchemaV2 {
		totalKey, lineKey = "totalCartValue", "itemTotal"
	}
	items := []map[string]any{}
	total := decimal.Zero
	for _, line := range s.carts[userID] {
		p := s.products[line.productID]
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
		total = total.Add(lineTotal)
		items = append(items, map[string]any{
			"productId":   p.ID,
			"productName": p.Name,
			"quantity":    line.quantity,
			"unitPrice":   money(p.Price),
			lineKey:       money(lineTotal),
		})
	}
	return map[string]any{
		"cartId":  userID + 100,
		"userId":  userID,
		"items":   items,
		totalKey:  money(total),
	}
}

func (s *Server) orderPayloadLocked(o *order, withItems bool) map[string]any {
	total := decimal.Zero
	items := []map[string]any{}
	for i, line := range o.lines {
		price := o.prices[line.productID]
		lineTotal := price.Mul(decimal.NewFromInt(int64(line.quantity)))
		total = total.Add(lineTotal)
		name := ""
		if p, ok := s.products[line.productID]; ok {
			name = p.Name
		}
		items = append(items, map[string]any{
			"orderItemId": i + 1,
			"productId":   line.productID,
			"productName": name,
			"quantity":    line.quantity,
			"unitPrice":   money(price),
			"lineTotal":   money(lineTotal),
		})
	}
	payload := map[string]any{
		"orderId":          o.id,
		"orderGuid":        o.guid.String(),
		"customerId":       o.customerID,
		"userNameOrder":    o.email,
		"orderDescription": o.description,
		"orderDate":        o.createdAt.Format(time.RFC3339),
		"status":           string(o.status),
		"totalAmount":      money(total),
	}
	if withItems {
		payload["items"] = items
	}
	return payload
}

func productPayload(p *Product) map[string]any {
	return map[string]any{
		"productId":          p.ID,
		"productName":        p.Name,
		"productPrice":       money(p.Price),
		"productStock":       p.Stock,
		"productDescription": p.Description,
		"productCategory":    p.Category,
		"createdAt":          "2024-01-01T00:00:00",
		"updatedAt":          "2024-01-01T00:00:00",
	}
}

func accountPayload(acct *account) map[string]any {
	return map[string]any{
		"userId":    acct.id,
		"name":      acct.name,
		"email":     acct.email,
		"role":      string(acct.role),
		"createdAt": acct.createdAt.Format(time.RFC3339),
	}
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
