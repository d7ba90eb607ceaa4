package api

import (
	"net/http"

	"github.com/alnah/go-ballot/internal/apierr"
)

// Envelope is the common response shape: an application statusCode (0 means
// success), a message, and the payload.
type Envelope[T any] struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

// Err returns nil for statusCode 0. Otherwise it returns a *apierr.ResponseError
// carrying the application code so the classifier can map it.
func (e *Envelope[T]) Err() error {
	if e.StatusCode == 0 {
		return nil
	}
	return &apierr.ResponseError{
		StatusCode: http.StatusOK,
		Body:       &apierr.ErrorBody{StatusCode: e.StatusCode, Message: e.Message},
	}
}
