// Package gateway is the typed client for the storefront REST gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestIDHeader       = "X-Request-Id"
	responseBodyReadLimit = 1 << 20
	defaultTimeout        = 10 * time.Second
	defaultRetryBackoff   = 200 * time.Millisecond
)

var errBaseURLRequired = errors.New("gateway base url is required")

// TokenSource yields the bearer token attached to outgoing requests.
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler is invoked whenever the gateway answers 401.
type UnauthorizedHandler func(ctx context.Context)

// Client wraps the storefront gateway endpoints.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	cartSchema   string
	readRetries  uint64
	retryBackoff time.Duration
	metrics      *metrics.GatewayMetrics
	logg         *logger.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCartSchema selects the cart payload schema (v1 or v2).
func WithCartSchema(schema string) Option {
	return func(c *Client) {
		if trimmed := strings.ToLower(strings.TrimSpace(schema)); trimmed != "" {
			c.cartSchema = trimmed
		}
	}
}

// WithReadRetries sets how many times idempotent reads are retried after a transport
// failure or a 502/503/504.
func WithReadRetries(retries uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.readRetries = retries
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger attaches a logger for per-call debug lines.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) { c.logg = logg }
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
func WithTracing() Option {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient = &http.Client{
			Timeout:   c.httpClient.Timeout,
			Transport: otelhttp.NewTransport(base),
		}
	}
}

// NewClient builds a gateway client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:      trimmed,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		cartSchema:   config.CartSchemaV1,
		retryBackoff: defaultRetryBackoff,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	switch client.cartSchema {
	case config.CartSchemaV1, config.CartSchemaV2:
	default:
		return nil, fmt.Errorf("unsupported cart schema %q", client.cartSchema)
	}

	return client, nil
}

// NewFromConfig builds a client from the gateway configuration block.
func NewFromConfig(cfg config.GatewayConfig, extra ...Option) (*Client, error) {
	opts := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithCartSchema(cfg.CartSchema),
		WithReadRetries(cfg.ReadRetries, cfg.RetryBackoff),
	}
	if cfg.Tracing {
		opts = append(opts, WithTracing())
	}
	return NewClient(cfg.BaseURL, append(opts, extra...)...)
}

// SetTokenSource wires the bearer token provider.
func (c *Client) SetTokenSource(src TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = src
}

// OnUnauthorized registers the handler run on 401 responses.
func (c *Client) OnUnauthorized(fn UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// CartSchema reports the configured cart payload schema.
func (c *Client) CartSchema() string {
	return c.cartSchema
}

// StatusError is the cause attached to every non-2xx gateway answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway status %d", e.Status)
}

// StatusCode implements pkgerrors.StatusCarrier.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// StatusCode extracts the gateway HTTP status from err, or 0 when no response was received.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// ServerMessage returns the message the gateway sent with a non-2xx answer, or "".
func ServerMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return extractMessage([]byte(se.Body))
	}
	return ""
}

// Explain rewraps err with the gateway's own message, or fallback when none was sent.
// The original code is kept. Local validation errors are returned as is.
func Explain(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		return err
	}
	msg := ServerMessage(err)
	if msg == "" {
		msg = fallback
	}
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	return pkgerrors.Wrap(code, err, msg)
}

type call struct {
	op     string
	method string
	path   string
	body   any
	// token overrides the token source when set.
	token string
	// skipUnauthorizedHook keeps a 401 from tearing down the session.
	skipUnauthorizedHook bool
}

func (c *Client) do(ctx context.Context, req call, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "gateway client not configured")
	}

	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+req.op+" request")
		}
		payload = encoded
	}

	token := req.token
	if token == "" {
		token = c.currentToken()
	}

	var (
		status int
		body   []byte
	)
	once := func(ctx context.Context) error {
		var err error
		status, body, err = c.roundTrip(ctx, req, token, payload)
		if err != nil {
			return err
		}
		switch status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &StatusError{Status: status, Body: string(body)}
		}
		return nil
	}

	var err error
	if req.method == http.MethodGet && c.readRetries > 0 {
		backoff := retry.WithMaxRetries(c.readRetries, retry.NewExponential(c.retryBackoff))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := once(ctx); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
	} else {
		err = once(ctx)
	}

	var se *StatusError
	if err != nil && !errors.As(err, &se) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway unreachable")
	}

	if status < 200 || status > 299 {
		return c.statusError(ctx, req, status, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		if out != nil {
			return pkgerrors.New(pkgerrors.CodeContract, "Invalid response format from server").
				WithDetails(map[string]any{"operation": req.op, "reason": "empty body"})
		}
		return nil
	}
	return decodeInto(req.op, body, out)
}

func (c *Client) roundTrip(ctx context.Context, req call, token string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.buildURL(req.path), reader)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.ObserveDuration(req.op, time.Since(start))
	if err != nil {
		c.metrics.IncTransportFailure(req.op)
		c.debug(ctx, req, requestID, 0, time.Since(start))
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		c.metrics.IncTransportFailure(req.op)
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	c.metrics.IncResponse(req.op, resp.StatusCode)
	c.debug(ctx, req, requestID, resp.StatusCode, time.Since(start))
	return resp.StatusCode, body, nil
}

func (c *Client) statusError(ctx context.Context, req call, status int, body []byte) error {
	cause := &StatusError{Status: status, Body: strings.TrimSpace(string(body))}
	serverMsg := extractMessage(body)

	var code pkgerrors.Code
	fallback := ""
	switch status {
	case http.StatusUnauthorized:
		code, fallback = pkgerrors.CodeUnauthorized, "authentication required"
		if !req.skipUnauthorizedHook {
			if hook := c.unauthorizedHandler(); hook != nil {
				hook(ctx)
			}
		}
	case http.StatusForbidden:
		code, fallback = pkgerrors.CodeForbidden, "access denied"
	case http.StatusNotFound:
		code, fallback = pkgerrors.CodeNotFound, "resource not found"
	default:
		code, fallback = pkgerrors.CodeUpstream, fmt.Sprintf("request failed with status %d", status)
	}

	msg := serverMsg
	if msg == "" {
		msg = fallback
	}
	return pkgerrors.Wrap(code, cause, msg).WithDetails(map[string]any{
		"operation": req.op,
		"status":    status,
	})
}

// extractMessage pulls a human readable message out of an error body. The gateway has
// answered with {"error": "..."}, {"message": "..."}, {"error": {"message": "..."}},
// a bare JSON string, or plain text.
func extractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(trimmed, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Title   string          `json:"title"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var errString string
			if err := json.Unmarshal(envelope.Error, &errString); err == nil && strings.TrimSpace(errString) != "" {
				return strings.TrimSpace(errString)
			}
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
				return strings.TrimSpace(nested.Message)
			}
		}
		if strings.TrimSpace(envelope.Message) != "" {
			return strings.TrimSpace(envelope.Message)
		}
		return strings.TrimSpace(envelope.Title)
	}

	if trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == '<' {
		return ""
	}
	return string(trimmed)
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	src := c.tokens
	c.mu.RUnlock()
	if src == nil {
		return ""
	}
	return src.Token()
}

func (c *Client) unauthorizedHandler() UnauthorizedHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onUnauthorized
}

func (c *Client) debug(ctx context.Context, req call, requestID string, status int, took time.Duration) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"operation":       req.op,
		"method":          req.method,
		"path":            req.path,
		"gateway_req_id":  requestID,
		"gateway_status":  status,
		"gateway_latency": took.Milliseconds(),
	})
	c.logg.Debug(ctx, "gateway.call")
}

func (c *Client) buildURL(path string) string {
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, path)
}
