package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncAPI is the subset of the storefront's sync endpoints ordersync uses.
// *Client implements it; tests substitute fakes.
type SyncAPI interface {
	FetchOrderStatus(ctx context.Context, orderID string) (*StatusSnapshot, error)
	ResolveConflict(ctx context.Context, orderID string, req ConflictRequest) (*ConflictResolution, error)
	ValidateConsistency(ctx context.Context, orderID string) (*ConsistencyReport, error)
	FixInconsistency(ctx context.Context, orderID string) (*FixReport, error)
	BulkSync(ctx context.Context) (*BulkSyncReport, error)
	Health(ctx context.Context) (*HealthReport, error)
}

// Ensure Client implements SyncAPI at compile time.
var _ SyncAPI = (*Client)(nil)

// HeaderRequestID carries a per-request correlation id.
const HeaderRequestID = "X-Request-ID"

const (
	defaultAPIBase   = "127.0.0.1:8080"
	defaultUserAgent = "ordersync/0.1"
	defaultTimeout   = 10 * time.Second
	maxErrorBody     = 64 << 10
)

// APIError reports a non-2xx response from the sync API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // "error" field of the response body, if any
	Detail     string // "message" field of the response body, if any
	RequestID  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// StatusCode extracts the HTTP status from an *APIError in err's chain.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// Client talks to the storefront sync API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	newID     func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for apiBase, which may be a bare host:port.
func NewClient(apiBase string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API base.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchOrderStatus polls the current status snapshot of one order.
func (c *Client) FetchOrderStatus(ctx context.Context, orderID string) (*StatusSnapshot, error) {
	path, err := orderPath(orderID, "status")
	if err != nil {
		return nil, err
	}
	var payload StatusSnapshot
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	payload.OrderID = orderID
	return &payload, nil
}

// ResolveConflict submits the client's believed status and returns the
// server's decision.
func (c *Client) ResolveConflict(ctx context.Context, orderID string, req ConflictRequest) (*ConflictResolution, error) {
	path, err := orderPath(orderID, "resolve-conflict")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ClientStatus) == "" {
		return nil, fmt.Errorf("client status required")
	}
	if req.ClientTimestamp.IsZero() {
		return nil, fmt.Errorf("client timestamp required")
	}
	var payload ConflictResolution
	if err := c.do(ctx, http.MethodPost, path, req, &payload); err != nil {
		return nil, err
	}
	payload.OrderID = orderID
	if payload.ClientStatus == "" {
		payload.ClientStatus = req.ClientStatus
	}
	return &payload, nil
}

// ValidateConsistency asks the server to re-check an order's stored state.
func (c *Client) ValidateConsistency(ctx context.Context, orderID string) (*ConsistencyReport, error) {
	path, err := orderPath(orderID, "validate")
	if err != nil {
		return nil, err
	}
	var payload ConsistencyReport
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	payload.OrderID = orderID
	return &payload, nil
}

// FixInconsistency requests a server-side repair. Requires an admin session
// on the storefront; expect a 401/403 APIError otherwise.
func (c *Client) FixInconsistency(ctx context.Context, orderID string) (*FixReport, error) {
	path, err := orderPath(orderID, "fix")
	if err != nil {
		return nil, err
	}
	var payload FixReport
	if err := c.do(ctx, http.MethodPost, path, nil, &payload); err != nil {
		return nil, err
	}
	payload.OrderID = orderID
	return &payload, nil
}

// BulkSync asks the server to resynchronize every order. Admin only, like
// FixInconsistency.
func (c *Client) BulkSync(ctx context.Context) (*BulkSyncReport, error) {
	var payload BulkSyncReport
	if err := c.do(ctx, http.MethodPost, "/api/sync/bulk-sync", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Health checks the sync service.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	var payload HealthReport
	if err := c.do(ctx, http.MethodGet, "/api/sync/health", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build request path: %w", err)
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
		}
		var eb errorBody
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil && len(raw) > 0 {
			if json.Unmarshal(raw, &eb) == nil {
				apiErr.Message = eb.Error
				apiErr.Detail = eb.Message
			}
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func orderPath(orderID, action string) (string, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return "", fmt.Errorf("order id required")
	}
	return "/api/sync/order/" + url.PathEscape(id) + "/" + action, nil
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_base %q: missing host", apiBase)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
