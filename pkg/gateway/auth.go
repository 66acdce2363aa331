package gateway

import (
	"context"
	"net/http"
	"strings"
)

const adminProbePath = "/user/list-all-users"

// Login exchanges credentials for a token. A 401 here never triggers the unauthorized handler.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validateRequest(creds); err != nil {
		return nil, err
	}
	var out LoginResponse
	err := c.do(ctx, call{
		op:                   "auth.login",
		method:               http.MethodPost,
		path:                 "/auth/login",
		body:                 creds,
		skipUnauthorizedHook: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes token on the gateway.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, call{
		op:                   "auth.logout",
		method:               http.MethodPost,
		path:                 "/auth/logout",
		body:                 map[string]string{"token": token},
		token:                token,
		skipUnauthorizedHook: true,
	}, nil)
}

// Register creates a regular account without signing in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if err := validateRequest(reg); err != nil {
		return err
	}
	return c.do(ctx, call{
		op:     "user.register",
		method: http.MethodPost,
		path:   "/user/register",
		body:   reg,
	}, nil)
}

// VerifyAdmin probes an admin-only endpoint with token. Any received non-2xx answer means
// false; only a missing response is reported as an error. A 401 also runs the unauthorized
// hook, a 403 only means the caller is not an admin.
func (c *Client) VerifyAdmin(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	err := c.do(ctx, call{
		op:     "auth.verify_admin",
		method: http.MethodGet,
		path:   adminProbePath,
		token:  token,
	}, nil)
	if err == nil {
		return true, nil
	}
	if StatusCode(err) != 0 {
		return false, nil
	}
	return false, err
}
