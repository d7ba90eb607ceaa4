// Package apierr provides the error taxonomy shared by the API client, the
// auth and ballot services, and the CLI. Transport failures and non-2xx
// responses are classified into these sentinels at the client boundary.
//
// The client wraps transport failures with fmt.Errorf("%w: %w", sentinel, cause)
// and returns *ResponseError for HTTP failures. Callers check with
// errors.Is(err, apierr.ErrTimeout) etc., and turn any failure into a
// user-facing string with Message.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for API interaction failures.
var (
	// ErrNetwork indicates the API could not be reached (DNS, refused, reset).
	ErrNetwork = errors.New("network unreachable")

	// ErrTimeout indicates a request exceeded its deadline.
	ErrTimeout = errors.New("request timeout")

	// ErrSessionExpired indicates the server answered 401. The session is terminal.
	ErrSessionExpired = errors.New("session expired")

	// ErrForbidden indicates the server answered 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the server answered 404.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified,
	// or an application error carried in a 2xx envelope.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates the server answered 5xx.
	ErrServer = errors.New("server error")
)

// ErrorBody is the wire shape the remote API returns on failure.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// ResponseError is returned for a response the API considers a failure: any
// non-2xx status, or a 2xx envelope whose application statusCode is non-zero.
// Body is nil when the response carried no decodable error body.
type ResponseError struct {
	StatusCode int
	Body       *ErrorBody
}

func (e *ResponseError) Error() string {
	if e.Body != nil && e.Body.Message != "" {
		return fmt.Sprintf("HTTP %d (code %d): %s", e.StatusCode, e.Body.StatusCode, e.Body.Message)
	}
	if e.Body != nil && e.Body.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d (code %d)", e.StatusCode, e.Body.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Unwrap maps the HTTP status to its sentinel so errors.Is works on the chain.
func (e *ResponseError) Unwrap() error {
	return statusSentinel(e.StatusCode)
}

// statusSentinel maps an HTTP status code to a sentinel error.
func statusSentinel(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrSessionExpired
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}

// Error is a classified, displayable failure. Error() returns the
// user-facing message; Unwrap returns the original failure.
type Error struct {
	// Code is the application code when the API sent one, else the HTTP
	// status, else 0 for transport failures.
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Resolve classifies err into a displayable *Error.
// Returns nil for a nil error. An *Error passes through unchanged.
func Resolve(err error) *Error {
	if err == nil {
		return nil
	}
	var resolved *Error
	if errors.As(err, &resolved) {
		return resolved
	}
	return &Error{Code: Code(err), Message: Message(err), Err: err}
}

// Code returns the application statusCode carried by err if any, else the
// HTTP status, else 0.
func Code(err error) int {
	var re *ResponseError
	if !errors.As(err, &re) {
		return 0
	}
	if re.Body != nil && re.Body.StatusCode != 0 {
		return re.Body.StatusCode
	}
	return re.StatusCode
}
