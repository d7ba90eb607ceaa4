package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-ballot/internal/config"
	"github.com/alnah/go-ballot/internal/session"
	"github.com/alnah/go-ballot/internal/storage"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	stdout    *syncBuffer
	stderr    *syncBuffer
	config    *mockConfigLoader
	storage   *storage.Memory
	navigator *mockNavigator
	logger    *mockLoggerFactory
	api       *fakeAPI
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

type testEnvOptions struct {
	stdin  string
	getenv func(string) string
}

type testEnvOption func(*testEnvOptions)

func withStdin(s string) testEnvOption {
	return func(o *testEnvOptions) { o.stdin = s }
}

func withGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *testMocks) {
	options := &testEnvOptions{getenv: staticEnv(nil)}
	for _, opt := range opts {
		opt(options)
	}

	m := &testMocks{
		stdout:    &syncBuffer{},
		stderr:    &syncBuffer{},
		config:    &mockConfigLoader{},
		storage:   storage.NewMemory(),
		navigator: &mockNavigator{},
		logger:    &mockLoggerFactory{},
		api:       newFakeAPI(),
	}

	env := &Env{
		Stdout:        m.stdout,
		Stderr:        m.stderr,
		Stdin:         strings.NewReader(options.stdin),
		Getenv:        options.getenv,
		Now:           fixedTime(time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)),
		ConfigLoader:  m.config,
		StorageOpener: &mockStorageOpener{Storage: m.storage},
		Navigator:     m.navigator,
		LoggerFactory: m.logger,
		Transport:     m.api,
	}

	return env, m
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// testConfig points the client at the fake API.
func testConfig() config.Config {
	return config.Config{
		APIBaseURL:  "http://api.test/api/proxy",
		UpstreamURL: "http://upstream.test/api",
		ListenAddr:  "127.0.0.1:0",
		LogLevel:    "info",
	}
}

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// loggedIn stores s the way a previous login would have.
func loggedIn(t *testing.T, st storage.Storage, s session.Session) {
	t.Helper()

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set(session.StorageKey, string(data)); err != nil {
		t.Fatal(err)
	}
}

// storedSession reloads the session from storage, as the next run would.
func storedSession(t *testing.T, st storage.Storage) (session.Session, bool) {
	t.Helper()

	store := session.NewStore(st)
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store.User()
}

func bg() context.Context { return context.Background() }
