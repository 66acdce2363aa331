package gateway

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// normalizer is implemented by payloads that need post-decode canonicalization.
type normalizer interface {
	normalize() error
}

func decodeInto(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return contractError(op, err)
	}
	if err := validateDecoded(out); err != nil {
		return contractError(op, err)
	}
	if n, ok := out.(normalizer); ok {
		if err := n.normalize(); err != nil {
			return contractError(op, err)
		}
	}
	return nil
}

func validateDecoded(out any) error {
	value := reflect.Indirect(reflect.ValueOf(out))
	switch value.Kind() {
	case reflect.Struct:
		return validate.Struct(out)
	case reflect.Slice:
		for i := 0; i < value.Len(); i++ {
			elem := value.Index(i)
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := validate.Struct(elem.Addr().Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

func contractError(op string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeContract, err, "Invalid response format from server").
		WithDetails(map[string]any{"operation": op, "reason": err.Error()})
}

// validateRequest checks caller input before anything is sent.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = fieldMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}

// User is the account record returned by login.
type User struct {
	ID    int64      `json:"id" validate:"required"`
	Email string     `json:"email" validate:"required"`
	Name  string     `json:"name"`
	Role  enums.Role `json:"role" validate:"required"`
}

func (u *User) normalize() error {
	role, err := enums.ParseRole(string(u.Role))
	if err != nil {
		return err
	}
	u.Role = role
	return nil
}

// Credentials are submitted to the login endpoint.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the opaque token plus the signed-in user.
type LoginResponse struct {
	Token string `json:"token" validate:"required"`
	User  *User  `json:"user" validate:"required"`
}

func (r *LoginResponse) normalize() error {
	return r.User.normalize()
}

// Registration creates a new regular account.
type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

// Product is a catalog entry. Category holds comma-joined tags.
type Product struct {
	ID          int64           `json:"productId" validate:"required"`
	Name        string          `json:"productName"`
	Price       decimal.Decimal `json:"productPrice"`
	Stock       int             `json:"productStock"`
	Description string          `json:"productDescription"`
	Category    string          `json:"productCategory"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
}

func (p *Product) normalize() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("product %d has negative price", p.ID)
	}
	return nil
}

type productList struct {
	Message string    `json:"message"`
	Data    []Product `json:"data" validate:"required,dive"`
}

func (l *productList) normalize() error {
	for i := range l.Data {
		if err := l.Data[i].normalize(); err != nil {
			return err
		}
	}
	return nil
}

type productSlice []Product

func (s productSlice) normalize() error {
	for i := range s {
		if err := s[i].normalize(); err != nil {
			return err
		}
	}
	return nil
}

// ProductRequest creates or replaces a catalog entry.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

// MarshalJSON sends price as a JSON number.
func (r ProductRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Category    string      `json:"category"`
		Price       json.Number `json:"price"`
		Stock       int         `json:"stock"`
	}{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       json.Number(r.Price.String()),
		Stock:       r.Stock,
	})
}

// Validate reports local input errors as VALIDATION_ERROR.
func (r ProductRequest) Validate() error {
	if err := validateRequest(r); err != nil {
		return err
	}
	if r.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"price": "must be at least 0"})
	}
	return nil
}

// Account is the admin view of a user.
type Account struct {
	ID        int64      `json:"userId" validate:"required"`
	Name      string     `json:"name"`
	Email     string     `json:"email" validate:"required"`
	Role      enums.Role `json:"role" validate:"required"`
	CreatedAt string     `json:"createdAt,omitempty"`
}

func (a *Account) normalize() error {
	role, err := enums.ParseRole(string(a.Role))
	if err != nil {
		return err
	}
	a.Role = role
	return nil
}

type accountList struct {
	Message string    `json:"message"`
	Data    []Account `json:"data" validate:"required,dive"`
}

func (l *accountList) normalize() error {
	for i := range l.Data {
		if err := l.Data[i].normalize(); err != nil {
			return err
		}
	}
	return nil
}

type accountEnvelope struct {
	Message string   `json:"message"`
	Data    *Account `json:"data" validate:"required"`
}

func (e *accountEnvelope) normalize() error {
	return e.Data.normalize()
}

type messageResponse struct {
	Message string `json:"message"`
}

// Cart is the server-computed cart. TotalValue always comes from the gateway.
type Cart struct {
	ID         int64           `json:"cartId"`
	UserID     int64           `json:"userId"`
	Items      []CartItem      `json:"items"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// CartItem is one line of a cart.
type CartItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ItemTotal   decimal.Decimal `json:"itemTotal"`
}

// ItemCount sums quantities across items.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

// CartItemRequest adds or updates a cart line.
type CartItemRequest struct {
	UserID    int64 `json:"userId" validate:"required"`
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

type cartV1 struct {
	CartID      int64            `json:"cartId"`
	UserID      int64            `json:"userId" validate:"required"`
	Items       []cartItemV1     `json:"items" validate:"required,dive"`
	TotalAmount *decimal.Decimal `json:"totalAmount" validate:"required"`
}

type cartItemV1 struct {
	ProductID   int64            `json:"productId" validate:"required"`
	ProductName string           `json:"productName"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitPrice   *decimal.Decimal `json:"unitPrice" validate:"required"`
	TotalPrice  *decimal.Decimal `json:"totalPrice" validate:"required"`
}

type cartV2 struct {
	CartID         int64            `json:"cartId"`
	UserID         int64            `json:"userId" validate:"required"`
	Items          []cartItemV2     `json:"items" validate:"required,dive"`
	TotalCartValue *decimal.Decimal `json:"totalCartValue" validate:"required"`
}

type cartItemV2 struct {
	ProductID   int64            `json:"productId" validate:"required"`
	ProductName string           `json:"productName"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitPrice   *decimal.Decimal `json:"unitPrice" validate:"required"`
	ItemTotal   *decimal.Decimal `json:"itemTotal" validate:"required"`
}

func (w cartV1) toCart() *Cart {
	cart := &Cart{ID: w.CartID, UserID: w.UserID, TotalValue: *w.TotalAmount, Items: make([]CartItem, 0, len(w.Items))}
	for _, item := range w.Items {
		cart.Items = append(cart.Items, CartItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   *item.UnitPrice,
			ItemTotal:   *item.TotalPrice,
		})
	}
	return cart
}

func (w cartV2) toCart() *Cart {
	cart := &Cart{ID: w.CartID, UserID: w.UserID, TotalValue: *w.TotalCartValue, Items: make([]CartItem, 0, len(w.Items))}
	for _, item := range w.Items {
		cart.Items = append(cart.Items, CartItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   *item.UnitPrice,
			ItemTotal:   *item.ItemTotal,
		})
	}
	return cart
}

// OrderLine is one product/quantity pair submitted with an order.
type OrderLine struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// OrderRequest places an order.
type OrderRequest struct {
	UserNameOrder    string      `json:"userNameOrder" validate:"required"`
	CustomerID       int64       `json:"customerId" validate:"required"`
	OrderDescription string      `json:"orderDescription"`
	Items            []OrderLine `json:"items" validate:"required,min=1,dive"`
}

// OrderReceipt is returned after placing an order.
type OrderReceipt struct {
	OrderGUID   uuid.UUID         `json:"orderGuid" validate:"required"`
	CustomerID  int64             `json:"customerId"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Status      enums.OrderStatus `json:"status" validate:"required"`
	ItemCount   int               `json:"itemCount"`
}

func (r *OrderReceipt) normalize() error {
	status, err := enums.ParseOrderStatus(string(r.Status))
	if err != nil {
		return err
	}
	r.Status = status
	return nil
}

// Order is a placed order. Items are omitted by the customer listing.
type Order struct {
	ID               int64             `json:"orderId"`
	GUID             uuid.UUID         `json:"orderGuid" validate:"required"`
	CustomerID       int64             `json:"customerId"`
	UserNameOrder    string            `json:"userNameOrder"`
	OrderDescription string            `json:"orderDescription"`
	OrderDate        string            `json:"orderDate"`
	Status           enums.OrderStatus `json:"status" validate:"required"`
	TotalAmount      decimal.Decimal   `json:"totalAmount"`
	Items            []OrderItem       `json:"items,omitempty" validate:"dive"`
}

// OrderItem is a priced order line.
type OrderItem struct {
	ID          int64           `json:"orderItemId"`
	ProductID   int64           `json:"productId" validate:"required"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

func (o *Order) normalize() error {
	status, err := enums.ParseOrderStatus(string(o.Status))
	if err != nil {
		return err
	}
	o.Status = status
	return nil
}

type orderSlice []Order

func (s orderSlice) normalize() error {
	for i := range s {
		if err := s[i].normalize(); err != nil {
			return err
		}
	}
	return nil
}
