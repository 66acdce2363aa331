package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/storefront/pkg/config"
)

// GetCart loads the user's cart.
func (c *Client) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	return c.cartCall(ctx, call{op: "cart.get", method: http.MethodGet, path: fmt.Sprintf("/cart/%d", userID)})
}

// AddCartItem adds quantity of a product and returns the updated cart.
func (c *Client) AddCartItem(ctx context.Context, req CartItemRequest) (*Cart, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, call{op: "cart.add", method: http.MethodPost, path: "/cart/add", body: req})
}

// UpdateCartItem sets the quantity of a line and returns the updated cart.
func (c *Client) UpdateCartItem(ctx context.Context, req CartItemRequest) (*Cart, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return c.cartCall(ctx, call{op: "cart.update", method: http.MethodPut, path: "/cart/update", body: req})
}

// RemoveCartItem drops a line. The response body is not a cart; callers re-fetch.
func (c *Client) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	path := fmt.Sprintf("/cart/%d/item/%d", userID, productID)
	return c.do(ctx, call{op: "cart.remove", method: http.MethodDelete, path: path}, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context, userID int64) error {
	path := fmt.Sprintf("/cart/%d/clear", userID)
	return c.do(ctx, call{op: "cart.clear", method: http.MethodDelete, path: path}, nil)
}

func (c *Client) cartCall(ctx context.Context, req call) (*Cart, error) {
	switch c.cartSchema {
	case config.CartSchemaV2:
		var out cartV2
		if err := c.do(ctx, req, &out); err != nil {
			return nil, err
		}
		return out.toCart(), nil
	default:
		var out cartV1
		if err := c.do(ctx, req, &out); err != nil {
			return nil, err
		}
		return out.toCart(), nil
	}
}
