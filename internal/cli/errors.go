package cli

import (
	"errors"
	"sort"
	"strings"

	"github.com/alnah/go-ballot/internal/api"
	"github.com/alnah/go-ballot/internal/apierr"
	"github.com/alnah/go-ballot/internal/auth"
)

// CLI-specific sentinel errors.
// These are usage/state errors that don't belong to domain packages.

var (
	// ErrNotLoggedIn indicates a command that needs a session ran without one.
	ErrNotLoggedIn = errors.New("not logged in: run 'ballot login' first")

	// ErrUnknownConfigKey indicates a config key outside config.Keys.
	ErrUnknownConfigKey = errors.New("unknown config key")

	// ErrInvalidValue indicates a flag or config value that failed validation.
	ErrInvalidValue = errors.New("invalid value")
)

// ErrorMessage returns the line(s) to show the user for err.
// Validation failures list one field per line. API and transport failures
// go through the classifier. Everything else is shown as is.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString("Please fix the following:")
		for _, k := range keys {
			b.WriteString("\n  " + k + ": " + verr.Fields[k])
		}
		return b.String()
	}

	if IsAPIError(err) {
		return apierr.Message(err)
	}
	return err.Error()
}

// IsAPIError reports whether err came from the API client: a response
// error, a transport failure, or a reply that could not be decoded.
func IsAPIError(err error) bool {
	var re *apierr.ResponseError
	if errors.As(err, &re) {
		return true
	}
	var resolved *apierr.Error
	if errors.As(err, &resolved) {
		return true
	}
	return errors.Is(err, apierr.ErrNetwork) || errors.Is(err, apierr.ErrTimeout) ||
		errors.Is(err, api.ErrDecode)
}
