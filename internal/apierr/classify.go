package apierr

import (
	"errors"
	"net/http"
)

// Application error codes returned by the API in ErrorBody.StatusCode.
const (
	CodeInvalidNickname   = 1001
	CodeNicknameTaken     = 1002
	CodeInvalidPassword   = 1003
	CodeInvalidBirth      = 1004
	CodeInvalidEmail      = 1005
	CodeEmailRegistered   = 1006
	CodeConsentRequired   = 1007
	CodePasswordMismatch  = 1008
	CodeUnknownEmail      = 1101
	CodeWrongPassword     = 1102
	CodeInvalidSocialCode = 1103
)

// Transport and HTTP status messages.
const (
	MsgNetwork        = "A network error occurred. Please check your internet connection."
	MsgTimeout        = "The request timed out. Please try again."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgForbidden      = "You do not have permission to access this resource."
	MsgNotFound       = "The requested resource could not be found."
	MsgServerError    = "A server error occurred. Please try again later."
	MsgBadGateway     = "There was a problem communicating with the server. Please try again later."
	MsgUnavailable    = "The service is temporarily unavailable. Please try again later."
	MsgUnknown        = "An unknown error occurred. Please try again."
)

// msgCredentials is shared by 1101 and 1102 so the message never reveals
// whether the email is registered.
const msgCredentials = "Email or password does not match."

// codeMessages maps every known application code to its message.
var codeMessages = map[int]string{
	// Signup (1001-1008)
	CodeInvalidNickname:  "Invalid nickname format.",
	CodeNicknameTaken:    "This nickname is already taken.",
	CodeInvalidPassword:  "Invalid password format.",
	CodeInvalidBirth:     "Invalid date of birth format.",
	CodeInvalidEmail:     "Invalid email format.",
	CodeEmailRegistered:  "This email is already registered.",
	CodeConsentRequired:  "You must agree to the required terms and the privacy policy.",
	CodePasswordMismatch: "Passwords do not match.",

	// Login (1101-1102)
	CodeUnknownEmail:  msgCredentials,
	CodeWrongPassword: msgCredentials,

	// Social login (1103)
	CodeInvalidSocialCode: "The authorization code is invalid.",
}

// CodeMessage returns the fixed message for a known application code.
func CodeMessage(code int) (string, bool) {
	msg, ok := codeMessages[code]
	return msg, ok
}

// Message turns any failure from a request attempt into a user-facing string.
// It never returns a raw transport string or an empty string.
//
// Resolution order:
//  1. known application code in the error body
//  2. non-empty message in the error body, verbatim
//  3. transport condition or HTTP status
//  4. generic unknown-error message
func Message(err error) string {
	if err == nil {
		return MsgUnknown
	}

	var resolved *Error
	if errors.As(err, &resolved) && resolved.Message != "" {
		return resolved.Message
	}

	var re *ResponseError
	hasResponse := errors.As(err, &re)

	if hasResponse && re.Body != nil {
		if msg, ok := codeMessages[re.Body.StatusCode]; ok {
			return msg
		}
		if re.Body.Message != "" {
			return re.Body.Message
		}
	}

	switch {
	case errors.Is(err, ErrNetwork):
		return MsgNetwork
	case errors.Is(err, ErrTimeout) && !hasResponse:
		return MsgTimeout
	}

	if hasResponse {
		switch re.StatusCode {
		case http.StatusUnauthorized:
			return MsgSessionExpired
		case http.StatusForbidden:
			return MsgForbidden
		case http.StatusNotFound:
			return MsgNotFound
		case http.StatusInternalServerError:
			return MsgServerError
		case http.StatusBadGateway:
			return MsgBadGateway
		case http.StatusServiceUnavailable:
			return MsgUnavailable
		}
	}

	return MsgUnknown
}

// IsRetryable reports whether a failure is transient. The client never
// retries on its own; callers that opt into RetryWithBackoff use this.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return false
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) {
		return true
	}
	var re *ResponseError
	if errors.As(err, &re) {
		switch re.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			return true
		}
	}
	return false
}
