package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]Account, error) {
	var out accountList
	if err := c.do(ctx, call{op: "user.list", method: http.MethodGet, path: adminProbePath}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) GetUser(ctx context.Context, userID int64) (*Account, error) {
	var out Account
	path := fmt.Sprintf("/user/%d", userID)
	if err := c.do(ctx, call{op: "user.get", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*Account, error) {
	var out accountEnvelope
	path := "/user/email/" + url.PathEscape(email)
	if err := c.do(ctx, call{op: "user.get_by_email", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DeleteUser removes an account and returns the gateway's confirmation message.
func (c *Client) DeleteUser(ctx context.Context, userID int64) (string, error) {
	var out messageResponse
	path := fmt.Sprintf("/user/%d", userID)
	if err := c.do(ctx, call{op: "user.delete", method: http.MethodDelete, path: path}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// DemoteUser turns an admin back into a regular user.
func (c *Client) DemoteUser(ctx context.Context, email string) (string, error) {
	var out messageResponse
	path := "/user/demote/" + url.PathEscape(email)
	if err := c.do(ctx, call{op: "user.demote", method: http.MethodPost, path: path, body: struct{}{}}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// PromoteUser grants the admin role.
func (c *Client) PromoteUser(ctx context.Context, email string) (string, error) {
	var out messageResponse
	path := "/setup/" + url.PathEscape(email)
	if err := c.do(ctx, call{op: "user.promote", method: http.MethodPost, path: path, body: struct{}{}}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
