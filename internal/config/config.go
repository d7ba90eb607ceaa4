package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Config keys.
const (
	KeyAPIBaseURL  = "api-base-url"
	KeyUpstreamURL = "upstream-url"
	KeyListenAddr  = "listen-addr"
	KeyLogLevel    = "log-level"
)

// Environment variable fallbacks.
const (
	EnvAPIBaseURL  = "BALLOT_API_BASE_URL"
	EnvUpstreamURL = "BALLOT_UPSTREAM_URL"
	EnvListenAddr  = "BALLOT_LISTEN_ADDR"
	EnvLogLevel    = "BALLOT_LOG_LEVEL"
)

// Defaults applied when neither the config file nor the environment set a key.
const (
	DefaultAPIBaseURL  = "http://localhost:3000/api/proxy"
	DefaultUpstreamURL = "http://localhost:8080/api"
	DefaultListenAddr  = ":3000"
	DefaultLogLevel    = "info"
)

// Keys lists every supported key in display order.
var Keys = []string{KeyAPIBaseURL, KeyUpstreamURL, KeyListenAddr, KeyLogLevel}

// EnvFor returns the environment variable that backs key.
func EnvFor(key string) string {
	switch key {
	case KeyAPIBaseURL:
		return EnvAPIBaseURL
	case KeyUpstreamURL:
		return EnvUpstreamURL
	case KeyListenAddr:
		return EnvListenAddr
	case KeyLogLevel:
		return EnvLogLevel
	}
	return ""
}

// DefaultFor returns the built-in default for key.
func DefaultFor(key string) string {
	switch key {
	case KeyAPIBaseURL:
		return DefaultAPIBaseURL
	case KeyUpstreamURL:
		return DefaultUpstreamURL
	case KeyListenAddr:
		return DefaultListenAddr
	case KeyLogLevel:
		return DefaultLogLevel
	}
	return ""
}

// Config holds user configuration loaded from ~/.config/ballot/config.
type Config struct {
	APIBaseURL  string
	UpstreamURL string
	ListenAddr  string
	LogLevel    string
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/ballot.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ballot"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ballot"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// StorageDir returns the directory holding durable client storage
// (the persisted session and cookies).
func StorageDir() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "storage"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks, then defaults.
// A nil getenv means os.Getenv. A missing file is not an error.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	p, err := path()
	if err != nil {
		return Config{}, err
	}

	data, err := parseFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		data = map[string]string{}
	}

	resolve := func(key string) string {
		if v := data[key]; v != "" {
			return v
		}
		if v := getenv(EnvFor(key)); v != "" {
			return v
		}
		return DefaultFor(key)
	}

	return Config{
		APIBaseURL:  strings.TrimRight(resolve(KeyAPIBaseURL), "/"),
		UpstreamURL: strings.TrimRight(resolve(KeyUpstreamURL), "/"),
		ListenAddr:  resolve(KeyListenAddr),
		LogLevel:    resolve(KeyLogLevel),
	}, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\n\r#") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("value for %q must be a single line", key)
	}

	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file in Keys order, unknown keys last.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	written := make(map[string]bool, len(data))
	write := func(key string) error {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		written[key] = true
		return nil
	}

	for _, key := range Keys {
		if _, ok := data[key]; ok {
			if err := write(key); err != nil {
				return err
			}
		}
	}
	for key := range data {
		if !written[key] {
			if err := write(key); err != nil {
				return err
			}
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// Validate checks a value for key before it is saved.
func Validate(key, value string) error {
	switch key {
	case KeyAPIBaseURL, KeyUpstreamURL:
		return validURL(value)
	case KeyListenAddr:
		if value == "" || !strings.Contains(value, ":") {
			return fmt.Errorf("listen address must be host:port or :port, got %q", value)
		}
	case KeyLogLevel:
		if _, err := zapcore.ParseLevel(value); err != nil {
			return fmt.Errorf("invalid log level %q", value)
		}
	}
	return nil
}

// validURL accepts absolute http(s) URLs only.
func validURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", value, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", value)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", value)
	}
	return nil
}

// Dir returns the configuration directory path (exported for testing).
func Dir() (string, error) {
	return dir()
}

// ParseFile reads a key=value config file (exported for testing).
func ParseFile(p string) (map[string]string, error) {
	return parseFile(p)
}
