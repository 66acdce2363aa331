package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// CreateOrder places an order and returns the gateway receipt.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var out OrderReceipt
	if err := c.do(ctx, call{op: "order.create", method: http.MethodPost, path: "/order", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder loads an order with its items.
func (c *Client) GetOrder(ctx context.Context, guid uuid.UUID) (*Order, error) {
	var out Order
	if err := c.do(ctx, call{op: "order.get", method: http.MethodGet, path: "/order/" + guid.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomerOrders returns the customer's orders without item details.
func (c *Client) ListCustomerOrders(ctx context.Context, customerID int64) ([]Order, error) {
	var out orderSlice
	path := fmt.Sprintf("/order/customer/%d", customerID)
	if err := c.do(ctx, call{op: "order.list_customer", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return []Order(out), nil
}
