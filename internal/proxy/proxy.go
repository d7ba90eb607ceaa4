// Package proxy is the same-origin reverse proxy: every /api/proxy/{path}
// request is forwarded to the upstream API and its status, body, content type
// and cookies are relayed back verbatim.
//
// Only Content-Type and Cookie go upstream; only Content-Type and Set-Cookie
// come back. Any failure to proxy (transport error, open circuit, unreadable
// or oversized body) is a 500 with {"error":"Proxy request failed","message":...}.
package proxy

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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Route is the path prefix the proxy serves.
const Route = "/api/proxy"

const (
	defaultUpstreamTimeout = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	maxBodySize            = 10 << 20
)

var (
	// ErrInvalidUpstream indicates the upstream base URL is not an absolute http(s) URL.
	ErrInvalidUpstream = errors.New("invalid upstream URL")

	// ErrBodyTooLarge indicates a request or response body over the proxy limit.
	// Bodies are never forwarded cut short.
	ErrBodyTooLarge = errors.New("body too large")
)

// proxyFailure is the body returned when a request cannot be proxied.
type proxyFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// upstreamResponse is what is relayed back to the caller.
type upstreamResponse struct {
	status      int
	contentType string
	setCookies  []string
	body        []byte
}

// Server forwards /api/proxy/* to the upstream API.
type Server struct {
	upstream        string
	client          *http.Client
	breaker         *gobreaker.CircuitBreaker
	breakerSettings gobreaker.Settings
	registry        *prometheus.Registry
	metrics         *Metrics
	logger          *zap.Logger
	shutdownTimeout time.Duration
	router          http.Handler

	mu   sync.Mutex
	http *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the access and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on and served from.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithBreakerSettings overrides the circuit breaker settings. Name and
// IsSuccessful are always set by the server.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(s *Server) {
		s.breakerSettings = st
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New returns a proxy for upstream (e.g. http://backend:8080/api).
func New(upstream string, opts ...Option) (*Server, error) {
	u, err := url.Parse(upstream)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUpstream, upstream)
	}

	s := &Server{
		upstream:        strings.TrimRight(upstream, "/"),
		client:          &http.Client{Timeout: defaultUpstreamTimeout},
		logger:          zap.NewNop(),
		shutdownTimeout: defaultShutdownTimeout,
		breakerSettings: gobreaker.Settings{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(s.registry)

	st := s.breakerSettings
	st.Name = "upstream"
	st.IsSuccessful = func(err error) bool {
		// A caller hanging up or an oversized reply says nothing about
		// upstream health.
		return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrBodyTooLarge)
	}
	logger := s.logger
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("circuit breaker state change",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	s.breaker = gobreaker.NewCircuitBreaker(st)
	s.router = s.routes()

	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route(Route, func(r chi.Router) {
		r.Use(Instrument(s.metrics))
		r.Get("/*", s.forward)
		r.Post("/*", s.forward)
		r.Put("/*", s.forward)
		r.Patch("/*", s.forward)
		r.Delete("/*", s.forward)
	})

	return r
}

// Handler returns the HTTP handler serving the proxy, /health and /metrics.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"breaker": s.breaker.State().String(),
	})
}

func (s *Server) forward(w http.ResponseWriter, r *http.Request) {
	target := s.upstream + "/" + chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body []byte
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.fail(w, r, "body_too_large",
					fmt.Errorf("%w: request body exceeds %d bytes", ErrBodyTooLarge, maxBodySize))
				return
			}
			s.fail(w, r, "read_body", err)
			return
		}
		body = b
	}

	res, err := executeWithBreaker(s.breaker, func() (*upstreamResponse, error) {
		return s.roundTrip(r, target, body)
	})
	if err != nil {
		reason := "transport"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			reason = "circuit_open"
		case errors.Is(err, ErrBodyTooLarge):
			reason = "body_too_large"
		}
		s.fail(w, r, reason, err)
		return
	}

	w.Header().Set("Content-Type", res.contentType)
	for _, c := range res.setCookies {
		w.Header().Add("Set-Cookie", c)
	}
	w.WriteHeader(res.status)
	_, _ = w.Write(res.body)
}

func (s *Server) roundTrip(r *http.Request, target string, body []byte) (_ *upstreamResponse, err error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, reader)
	if err != nil {
		return nil, err
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if cookie := r.Header.Get("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(respBody) > maxBodySize {
		return nil, fmt.Errorf("%w: upstream response exceeds %d bytes", ErrBodyTooLarge, maxBodySize)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return &upstreamResponse{
		status:      resp.StatusCode,
		contentType: ct,
		setCookies:  resp.Header.Values("Set-Cookie"),
		body:        respBody,
	}, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, reason string, err error) {
	s.metrics.UpstreamErrors.WithLabelValues(r.Method, reason).Inc()
	s.logger.Error("proxy request failed",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("reason", reason),
		zap.Error(err))
	writeProxyError(w, err.Error())
}

func writeProxyError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, proxyFailure{Error: "Proxy request failed", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// executeWithBreaker runs fn through cb with a typed result.
func executeWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return *new(T), err
	}
	return res.(T), nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
// Returns nil after a clean shutdown or a Close.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = hs
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	s.logger.Info("proxy listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("upstream", s.upstream))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("proxy shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Close stops the server immediately, dropping in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Close()
}
