// Package api is the HTTP client every remote call goes through.
//
// The client attaches cookies from its jar, bounds each request by a timeout
// (10s by default), and turns failures into the apierr taxonomy:
//   - transport failures wrap apierr.ErrNetwork or apierr.ErrTimeout
//   - non-2xx responses are *apierr.ResponseError carrying the decoded body
//
// A 401 from any request notifies every session-expired handler before the
// error is returned. The client never retries; callers that want retries use
// apierr.RetryWithBackoff.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/apierr"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// Client is a JSON-over-HTTP client for the voting API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	transport  http.RoundTripper
	jar        http.CookieJar
	timeout    time.Duration
	logger     *zap.Logger

	mu        sync.RWMutex
	onExpired []func()
}

// Option configures a Client.
type Option func(*Client)

// WithDefaultTimeout sets the per-request timeout. Non-positive values are ignored.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport sets the round tripper (for testing or proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithCookieJar sets the jar cookies are read from and stored to.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithHTTPClient replaces the underlying http.Client entirely.
// WithTransport and WithCookieJar are ignored when this is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSessionExpiredHandler registers fn to run when any request gets a 401.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) {
		if fn != nil {
			c.onExpired = append(c.onExpired, fn)
		}
	}
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client rooted at baseURL.
// Returns ErrInvalidBaseURL if baseURL is not an absolute http(s) URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: c.transport, Jar: c.jar}
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// OnSessionExpired registers fn to run when any request gets a 401.
func (c *Client) OnSessionExpired(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

func (c *Client) notifyExpired() {
	c.mu.RLock()
	handlers := append([]func(){}, c.onExpired...)
	c.mu.RUnlock()

	for _, fn := range handlers {
		fn()
	}
}

// ---------------------------------------------------------------------------
// Per-request options
// ---------------------------------------------------------------------------

type requestConfig struct {
	query   url.Values
	header  http.Header
	timeout time.Duration
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// WithQuery adds query parameters.
func WithQuery(q url.Values) RequestOption {
	return func(rc *requestConfig) {
		for k, vs := range q {
			for _, v := range vs {
				rc.query.Add(k, v)
			}
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.header.Set(key, value)
	}
}

// WithTimeout overrides the client timeout for one request.
func WithTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) {
		if d > 0 {
			rc.timeout = d
		}
	}
}

// ---------------------------------------------------------------------------
// Verbs
// ---------------------------------------------------------------------------

// Get sends a GET and decodes the response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

// Post sends body as JSON (nil means no body) and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPut, path, body, out, opts)
}

// Patch sends body as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPatch, path, body, out, opts)
}

// Delete sends a DELETE and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts)
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts []RequestOption) (err error) {
	rc := requestConfig{query: url.Values{}, header: http.Header{}, timeout: c.timeout}
	for _, opt := range opts {
		opt(&rc)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	target := c.url(path, rc.query)
	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range rc.header {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransport(ctx, err)
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return classifyTransport(ctx, err)
	}
	oversized := len(respBody) > maxResponseSize
	if oversized {
		respBody = respBody[:maxResponseSize]
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		c.notifyExpired()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, respBody)
	}

	if oversized {
		return fmt.Errorf("%w: response exceeds %d bytes", ErrDecode, maxResponseSize)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// classifyTransport maps a failure without an HTTP response to the apierr
// taxonomy. Cancellation of the caller's context is passed through as-is.
func classifyTransport(parent context.Context, err error) error {
	if parentErr := parent.Err(); parentErr != nil && errors.Is(parentErr, context.Canceled) {
		return parentErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", apierr.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", apierr.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", apierr.ErrNetwork, err)
}

// parseError builds a ResponseError. A body that is not the error shape,
// or carries neither field, yields a nil Body.
func parseError(status int, body []byte) *apierr.ResponseError {
	re := &apierr.ResponseError{StatusCode: status}

	var eb apierr.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && (eb.StatusCode != 0 || eb.Message != "") {
		re.Body = &eb
	}
	return re
}
