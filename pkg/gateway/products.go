package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ListProducts returns the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out productList
	if err := c.do(ctx, call{op: "product.list", method: http.MethodGet, path: "/product"}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetProduct fetches a single product.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var out Product
	path := fmt.Sprintf("/product/%d", productID)
	if err := c.do(ctx, call{op: "product.get", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchProducts runs the gateway-side search. Empty arguments are omitted from the query.
func (c *Client) SearchProducts(ctx context.Context, term, category string) ([]Product, error) {
	params := url.Values{}
	if trimmed := strings.TrimSpace(term); trimmed != "" {
		params.Set("search", trimmed)
	}
	if trimmed := strings.TrimSpace(category); trimmed != "" {
		params.Set("category", trimmed)
	}
	path := "/product/search"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out productSlice
	if err := c.do(ctx, call{op: "product.search", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return []Product(out), nil
}

// CreateProduct adds a catalog entry.
func (c *Client) CreateProduct(ctx context.Context, req ProductRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.do(ctx, call{op: "product.create", method: http.MethodPost, path: "/product/add", body: req}, nil)
}

// UpdateProduct replaces a catalog entry.
func (c *Client) UpdateProduct(ctx context.Context, productID int64, req ProductRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	path := fmt.Sprintf("/product/update/%d", productID)
	return c.do(ctx, call{op: "product.update", method: http.MethodPut, path: path, body: req}, nil)
}
