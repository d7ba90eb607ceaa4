package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/config"
	"github.com/alnah/go-ballot/internal/interrupt"
	"github.com/alnah/go-ballot/internal/storage"
)

// LoginPath is where a session-expired signal navigates to.
const LoginPath = "/auth/login"

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Getenv func(string) string
	Now    func() time.Time

	// Factories and collaborators
	ConfigLoader  ConfigLoader
	StorageOpener StorageOpener
	Navigator     Navigator
	LoggerFactory LoggerFactory

	// Transport overrides the HTTP round tripper of the API client. Nil
	// means http.DefaultTransport.
	Transport http.RoundTripper

	// Listen opens the proxy listener.
	Listen func(network, addr string) (net.Listener, error)

	// Interrupts installs the two-stage Ctrl+C handler for serve.
	Interrupts func(ctx context.Context) (*interrupt.Handler, context.Context)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// StorageOpener opens the durable client storage.
type StorageOpener interface {
	Open() (storage.Storage, error)
}

// Navigator receives navigation requests, such as the redirect to the
// login entry point after a session expires.
type Navigator interface {
	Navigate(path string)
}

// LoggerFactory builds the process logger.
type LoggerFactory interface {
	NewLogger(cfg config.LoggerConfig) (*zap.Logger, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithStdin sets the reader prompts read from.
func WithStdin(r io.Reader) EnvOption {
	return func(e *Env) {
		e.Stdin = r
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithStorageOpener sets the storage opener.
func WithStorageOpener(o StorageOpener) EnvOption {
	return func(e *Env) {
		e.StorageOpener = o
	}
}

// WithNavigator sets the navigator.
func WithNavigator(n Navigator) EnvOption {
	return func(e *Env) {
		e.Navigator = n
	}
}

// WithLoggerFactory sets the logger factory.
func WithLoggerFactory(f LoggerFactory) EnvOption {
	return func(e *Env) {
		e.LoggerFactory = f
	}
}

// WithTransport sets the API client round tripper.
func WithTransport(rt http.RoundTripper) EnvOption {
	return func(e *Env) {
		e.Transport = rt
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Stdin:         os.Stdin,
		Getenv:        os.Getenv,
		Now:           time.Now,
		ConfigLoader:  &defaultConfigLoader{},
		StorageOpener: &defaultStorageOpener{},
		Navigator:     &hintNavigator{w: os.Stderr},
		LoggerFactory: &defaultLoggerFactory{},
		Listen:        net.Listen,
		Interrupts:    interrupt.NewHandler,
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load(nil)
}

// defaultStorageOpener opens file storage under the config directory.
type defaultStorageOpener struct{}

func (defaultStorageOpener) Open() (storage.Storage, error) {
	dir, err := config.StorageDir()
	if err != nil {
		return nil, err
	}
	return storage.NewFile(dir), nil
}

// defaultLoggerFactory implements LoggerFactory using config.NewLogger.
type defaultLoggerFactory struct{}

func (defaultLoggerFactory) NewLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	return config.NewLogger(cfg)
}

// hintNavigator tells the user which command reaches a path.
type hintNavigator struct {
	w io.Writer
}

func (n *hintNavigator) Navigate(path string) {
	switch path {
	case LoginPath:
		_, _ = fmt.Fprintln(n.w, "Your session has expired. Run 'ballot login' to sign in again.")
	default:
		_, _ = fmt.Fprintf(n.w, "Continue at %s\n", path)
	}
}

// Compile-time interface verification.
var (
	_ ConfigLoader  = (*defaultConfigLoader)(nil)
	_ StorageOpener = (*defaultStorageOpener)(nil)
	_ LoggerFactory = (*defaultLoggerFactory)(nil)
	_ Navigator     = (*hintNavigator)(nil)
)
