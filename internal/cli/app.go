package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/api"
	"github.com/alnah/go-ballot/internal/auth"
	"github.com/alnah/go-ballot/internal/ballot"
	"github.com/alnah/go-ballot/internal/config"
	"github.com/alnah/go-ballot/internal/session"
	"github.com/alnah/go-ballot/internal/storage"
)

// EnvLogFormat selects the zap preset ("prod" for JSON).
const EnvLogFormat = "BALLOT_LOG_ENV"

// app is everything an API-backed command needs, built once per run.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	storage storage.Storage
	store   *session.Store
	jar     *api.PersistentJar
	client  *api.Client
	auth    *auth.Service
	ballot  *ballot.Service

	// loggingOut silences the login hint while the user is already
	// signing out.
	loggingOut bool
}

// newApp wires config, storage, the session store (initialized), the
// persistent cookie jar, and the API client. A 401 from any request
// clears the session and the cookies, then navigates to the login entry
// point.
func newApp(env *Env, verbose bool) (*app, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := buildLogger(env, cfg, verbose)
	if err != nil {
		return nil, err
	}

	st, err := env.StorageOpener.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store := session.NewStore(st)
	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	jar, err := api.NewPersistentJar(st)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, storage: st, store: store, jar: jar}

	opts := []api.Option{
		api.WithCookieJar(jar),
		api.WithLogger(logger),
		api.WithSessionExpiredHandler(func() { a.expire(env) }),
	}
	if env.Transport != nil {
		opts = append(opts, api.WithTransport(env.Transport))
	}

	a.client, err = api.New(cfg.APIBaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.KeyAPIBaseURL, err)
	}

	a.auth = auth.NewService(a.client, auth.NewValidator(env.Now))
	a.ballot = ballot.NewService(a.client)
	return a, nil
}

// expire handles the session-expired signal.
func (a *app) expire(env *Env) {
	if err := a.store.Logout(); err != nil {
		a.logger.Warn("failed to clear session", zap.Error(err))
	}
	if err := a.jar.Clear(); err != nil {
		a.logger.Warn("failed to clear cookies", zap.Error(err))
	}
	if a.loggingOut {
		return
	}
	env.Navigator.Navigate(LoginPath)
}

// requireSession returns the stored session or ErrNotLoggedIn.
func (a *app) requireSession() (session.Session, error) {
	s, ok := a.store.User()
	if !ok {
		return session.Session{}, ErrNotLoggedIn
	}
	return s, nil
}

// flushCookies reports a cookie persistence failure without failing the
// command that triggered it.
func (a *app) flushCookies(env *Env) {
	if err := a.jar.Err(); err != nil {
		a.logger.Warn("failed to persist cookies", zap.Error(err))
		_, _ = fmt.Fprintf(env.Stderr, "Warning: cookies could not be saved: %v\n", err)
	}
}

func buildLogger(env *Env, cfg config.Config, verbose bool) (*zap.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := env.LoggerFactory.NewLogger(config.LoggerConfig{
		Level: level,
		Env:   env.Getenv(EnvLogFormat),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q: %w", ErrInvalidValue, level, err)
	}
	return logger, nil
}
