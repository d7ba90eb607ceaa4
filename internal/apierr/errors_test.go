package apierr_test

// Coverage Notes:
// - Every known application code maps to its fixed message.
// - 1101 and 1102 produce the same message (no account enumeration).
// - Body message is used verbatim when the code is unknown.
// - Network and timeout resolve to distinct messages.
// - Status fallbacks cover 401/403/404/500/502/503; anything else is the unknown message.
// - Unwrap chain: ResponseError maps status to sentinel so errors.Is works.

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-ballot/internal/apierr"
)

func respErr(status, code int, msg string) error {
	re := &apierr.ResponseError{StatusCode: status}
	if code != 0 || msg != "" {
		re.Body = &apierr.ErrorBody{StatusCode: code, Message: msg}
	}
	return re
}

// ---------------------------------------------------------------------------
// TestMessage - User-facing message resolution
// ---------------------------------------------------------------------------

func TestMessage_KnownCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want string
	}{
		{apierr.CodeInvalidNickname, "Invalid nickname format."},
		{apierr.CodeNicknameTaken, "This nickname is already taken."},
		{apierr.CodeInvalidPassword, "Invalid password format."},
		{apierr.CodeInvalidBirth, "Invalid date of birth format."},
		{apierr.CodeInvalidEmail, "Invalid email format."},
		{apierr.CodeEmailRegistered, "This email is already registered."},
		{apierr.CodeConsentRequired, "You must agree to the required terms and the privacy policy."},
		{apierr.CodePasswordMismatch, "Passwords do not match."},
		{apierr.CodeUnknownEmail, "Email or password does not match."},
		{apierr.CodeWrongPassword, "Email or password does not match."},
		{apierr.CodeInvalidSocialCode, "The authorization code is invalid."},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			t.Parallel()

			// The server-supplied message must never win over a known code.
			err := respErr(400, tt.code, "server says something else")
			assert.Equal(t, tt.want, apierr.Message(err))

			msg, ok := apierr.CodeMessage(tt.code)
			assert.True(t, ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestMessage_CredentialCodesAreIndistinguishable(t *testing.T) {
	t.Parallel()

	unknownEmail := apierr.Message(respErr(400, apierr.CodeUnknownEmail, "no such user"))
	wrongPassword := apierr.Message(respErr(400, apierr.CodeWrongPassword, "bad password"))

	assert.Equal(t, unknownEmail, wrongPassword)
}

func TestMessage_UnknownCodeUsesBodyVerbatim(t *testing.T) {
	t.Parallel()

	err := respErr(409, 9999, "Voting is closed for this part.")
	assert.Equal(t, "Voting is closed for this part.", apierr.Message(err))
}

func TestMessage_TransportConditions(t *testing.T) {
	t.Parallel()

	network := apierr.Message(fmt.Errorf("%w: dial tcp: connection refused", apierr.ErrNetwork))
	timeout := apierr.Message(fmt.Errorf("%w: context deadline exceeded", apierr.ErrTimeout))

	assert.Equal(t, apierr.MsgNetwork, network)
	assert.Equal(t, apierr.MsgTimeout, timeout)
	assert.NotEqual(t, network, timeout)
	assert.NotContains(t, network, "dial tcp")
}

func TestMessage_StatusFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   string
	}{
		{401, apierr.MsgSessionExpired},
		{403, apierr.MsgForbidden},
		{404, apierr.MsgNotFound},
		{500, apierr.MsgServerError},
		{502, apierr.MsgBadGateway},
		{503, apierr.MsgUnavailable},
		{418, apierr.MsgUnknown},
		{504, apierr.MsgUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, apierr.Message(respErr(tt.status, 0, "")))
		})
	}
}

func TestMessage_NeverEmpty(t *testing.T) {
	t.Parallel()

	inputs := []error{
		nil,
		errors.New("something odd"),
		respErr(400, 0, ""),
		&apierr.ResponseError{StatusCode: 422, Body: &apierr.ErrorBody{}},
	}
	for _, err := range inputs {
		assert.NotEmpty(t, apierr.Message(err), "Message(%v)", err)
	}
	assert.Equal(t, apierr.MsgUnknown, apierr.Message(errors.New("something odd")))
}

// ---------------------------------------------------------------------------
// TestResponseError - Sentinel mapping through Unwrap
// ---------------------------------------------------------------------------

func TestResponseError_Unwrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{400, apierr.ErrBadRequest},
		{401, apierr.ErrSessionExpired},
		{403, apierr.ErrForbidden},
		{404, apierr.ErrNotFound},
		{408, apierr.ErrTimeout},
		{500, apierr.ErrServer},
		{503, apierr.ErrServer},
		{504, apierr.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()

			err := fmt.Errorf("wrapped: %w", respErr(tt.status, 0, ""))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResponseError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "HTTP 404", respErr(404, 0, "").Error())
	assert.Equal(t, "HTTP 400 (code 1001)", respErr(400, 1001, "").Error())
	assert.Equal(t, "HTTP 400 (code 1001): bad", respErr(400, 1001, "bad").Error())
}

// ---------------------------------------------------------------------------
// TestResolve / TestCode
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, apierr.Resolve(nil))
	})

	t.Run("response error", func(t *testing.T) {
		t.Parallel()

		orig := respErr(400, apierr.CodeNicknameTaken, "")
		got := apierr.Resolve(orig)
		require.NotNil(t, got)
		assert.Equal(t, apierr.CodeNicknameTaken, got.Code)
		assert.Equal(t, "This nickname is already taken.", got.Error())
		assert.ErrorIs(t, got, orig)
		assert.ErrorIs(t, got, apierr.ErrBadRequest)
	})

	t.Run("transport error has zero code", func(t *testing.T) {
		t.Parallel()

		got := apierr.Resolve(fmt.Errorf("%w: reset", apierr.ErrNetwork))
		require.NotNil(t, got)
		assert.Zero(t, got.Code)
		assert.Equal(t, apierr.MsgNetwork, got.Message)
	})

	t.Run("already resolved passes through", func(t *testing.T) {
		t.Parallel()

		first := apierr.Resolve(respErr(503, 0, ""))
		second := apierr.Resolve(fmt.Errorf("ctx: %w", first))
		assert.Same(t, first, second)
	})
}

func TestCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1102, apierr.Code(respErr(400, 1102, "")))
	assert.Equal(t, 503, apierr.Code(respErr(503, 0, "")))
	assert.Equal(t, 0, apierr.Code(errors.New("plain")))
}

// ---------------------------------------------------------------------------
// TestIsRetryable
// ---------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", fmt.Errorf("%w: x", apierr.ErrNetwork), true},
		{"timeout", fmt.Errorf("%w: x", apierr.ErrTimeout), true},
		{"bad gateway", respErr(502, 0, ""), true},
		{"unavailable", respErr(503, 0, ""), true},
		{"session expired", respErr(401, 0, ""), false},
		{"not found", respErr(404, 0, ""), false},
		{"server error", respErr(500, 0, ""), false},
		{"application code", respErr(400, apierr.CodeWrongPassword, ""), false},
		{"plain", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, apierr.IsRetryable(tt.err))
		})
	}
}
