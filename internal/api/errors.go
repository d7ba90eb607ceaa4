package api

import "errors"

// Sentinel errors for client construction and response decoding.
// Transport and HTTP failures use the apierr taxonomy instead.
var (
	// ErrInvalidBaseURL indicates the configured base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid API base URL")

	// ErrDecode indicates a 2xx response whose body is not the expected JSON.
	ErrDecode = errors.New("cannot decode API response")
)
