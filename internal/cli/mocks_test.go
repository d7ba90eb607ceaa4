package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/config"
	"github.com/alnah/go-ballot/internal/storage"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return testConfig(), nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock StorageOpener
// ---------------------------------------------------------------------------

// mockStorageOpener hands out the same storage on every Open, so state
// survives across commands the way the file storage does.
type mockStorageOpener struct {
	Storage storage.Storage
	Err     error
}

func (m *mockStorageOpener) Open() (storage.Storage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Storage, nil
}

// ---------------------------------------------------------------------------
// Mock Navigator
// ---------------------------------------------------------------------------

type mockNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (m *mockNavigator) Navigate(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
}

func (m *mockNavigator) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// ---------------------------------------------------------------------------
// Mock LoggerFactory
// ---------------------------------------------------------------------------

type mockLoggerFactory struct {
	mu      sync.Mutex
	configs []config.LoggerConfig
}

func (m *mockLoggerFactory) NewLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	m.mu.Lock()
	m.configs = append(m.configs, cfg)
	m.mu.Unlock()

	if _, err := config.NewLogger(cfg); err != nil {
		return nil, err
	}
	return zap.NewNop(), nil
}

func (m *mockLoggerFactory) Last() config.LoggerConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.configs) == 0 {
		return config.LoggerConfig{}
	}
	return m.configs[len(m.configs)-1]
}

// ---------------------------------------------------------------------------
// fakeAPI - in-process stand-in for the proxied API
// ---------------------------------------------------------------------------

type apiRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Cookie string
}

// fakeAPI is an http.RoundTripper that dispatches to per-route handlers.
// Paths are matched after stripping the /api/proxy prefix. Unknown routes
// get a 404; routes in errs fail at the transport level.
type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	errs     map[string]error
	requests []apiRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		handlers: make(map[string]http.HandlerFunc),
		errs:     make(map[string]error),
	}
}

func (f *fakeAPI) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

func (f *fakeAPI) Fail(method, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method+" "+path] = err
}

func (f *fakeAPI) Requests() []apiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiRequest(nil), f.requests...)
}

func (f *fakeAPI) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/proxy")
	key := r.Method + " " + path

	f.mu.Lock()
	f.requests = append(f.requests, apiRequest{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
		Cookie: r.Header.Get("Cookie"),
	})
	h := f.handlers[key]
	failErr := f.errs[key]
	f.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}

	rec := httptest.NewRecorder()
	if h == nil {
		rec.WriteHeader(http.StatusNotFound)
		return rec.Result(), nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	h(rec, r)
	return rec.Result(), nil
}

// reply answers with status and a JSON body.
func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// replyWithCookie answers 200 with body and sets a session cookie.
func replyWithCookie(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc123", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}
