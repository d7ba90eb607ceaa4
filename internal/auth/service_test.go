package auth_test

// Coverage Notes:
// - Requests hit an httptest server through the real api.Client.
// - Validation failures never reach the server.
// - A 1102 answer (HTTP error or 200 envelope) shows the 1102 message, not the server's.
// - Birth is sent as YYYY-MM-DD; social login sends provider KAKAO.

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-ballot/internal/api"
	"github.com/alnah/go-ballot/internal/apierr"
	"github.com/alnah/go-ballot/internal/auth"
	"github.com/alnah/go-ballot/internal/session"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

// recorder holds the last request seen by the test server.
type recorder struct {
	mu   sync.Mutex
	last recorded
}

func (r *recorder) get() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// newServer answers every request with status and body and records what it saw.
func newServer(t *testing.T, status int, body string) (*auth.Service, *recorder, *atomic.Int32) {
	t.Helper()

	rec := &recorder{}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		seen := recorded{method: r.Method, path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&seen.body)
		rec.mu.Lock()
		rec.last = seen
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	require.NoError(t, err)
	return auth.NewService(client, auth.NewValidator(fixedNow)), rec, &calls
}

// ---------------------------------------------------------------------------
// TestService_Login
// ---------------------------------------------------------------------------

func TestService_LoginSuccess(t *testing.T) {
	t.Parallel()

	svc, rec, _ := newServer(t, http.StatusOK,
		`{"statusCode":0,"message":"ok","data":{"nickname":"투표왕","userType":"GROOMER"}}`)

	got, err := svc.Login(context.Background(), auth.LoginRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, session.Session{Username: "투표왕", Email: "a@b.com"}, got)
	assert.Equal(t, http.MethodPost, rec.get().method)
	assert.Equal(t, auth.PathLogin, rec.get().path)
	assert.Equal(t, map[string]any{"email": "a@b.com", "password": "pw"}, rec.get().body)
}

func TestService_LoginFullSessionShape(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServer(t, http.StatusOK,
		`{"statusCode":0,"data":{"userId":7,"username":"kim","email":"kim@x.io","team":"STORIX","part":"BACKEND"}}`)

	got, err := svc.Login(context.Background(), auth.LoginRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, session.Session{UserID: 7, Username: "kim", Email: "kim@x.io", Team: "STORIX", Part: "BACKEND"}, got)
}

func TestService_LoginWrongPasswordShowsMappedMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{"error status", http.StatusBadRequest},
		{"ok envelope", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, _, _ := newServer(t, tt.status, `{"statusCode":1102,"message":"password hash mismatch"}`)

			_, err := svc.Login(context.Background(), auth.LoginRequest{Email: "a@b.com", Password: "x"})
			require.Error(t, err)

			want, _ := apierr.CodeMessage(apierr.CodeWrongPassword)
			assert.Equal(t, want, apierr.Message(err))
			assert.Equal(t, apierr.CodeWrongPassword, apierr.Code(err))
		})
	}
}

func TestService_LoginValidationSkipsRequest(t *testing.T) {
	t.Parallel()

	svc, _, calls := newServer(t, http.StatusOK, `{}`)

	_, err := svc.Login(context.Background(), auth.LoginRequest{Email: "nope"})
	assert.ErrorIs(t, err, auth.ErrValidation)
	assert.Zero(t, calls.Load())
}

// ---------------------------------------------------------------------------
// TestService_Signup
// ---------------------------------------------------------------------------

func TestService_SignupSendsFormattedBirth(t *testing.T) {
	t.Parallel()

	svc, rec, _ := newServer(t, http.StatusOK,
		`{"statusCode":0,"data":{"userId":3,"email":"a@b.com","nickname":"투표왕","createdAt":"2025-06-01T00:00:00","userType":"GROOMER"}}`)

	got, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.UserID)
	assert.Equal(t, auth.PathSignup, rec.get().path)
	assert.Equal(t, "1998-01-01", rec.get().body["birth"])
	assert.Equal(t, "GROOMER", rec.get().body["userType"])
	assert.Equal(t, true, rec.get().body["agreeTerms"])
	assert.Equal(t, "abcd1234", rec.get().body["passwordConfirm"])
}

func TestService_SignupApplicationError(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServer(t, http.StatusConflict, `{"statusCode":1002,"message":"dup"}`)

	_, err := svc.Signup(context.Background(), validSignup())
	require.Error(t, err)
	assert.Equal(t, "This nickname is already taken.", apierr.Message(err))
}

// ---------------------------------------------------------------------------
// TestService_Social
// ---------------------------------------------------------------------------

func TestService_SocialLogin(t *testing.T) {
	t.Parallel()

	t.Run("temporary user needs signup", func(t *testing.T) {
		t.Parallel()

		svc, rec, _ := newServer(t, http.StatusOK,
			`{"statusCode":0,"data":{"nickname":"kakao_1","userType":"TMP_USER"}}`)

		got, err := svc.SocialLogin(context.Background(), " code-123 ")
		require.NoError(t, err)

		assert.True(t, got.NeedsSignup())
		assert.Equal(t, auth.PathSocialLogin, rec.get().path)
		assert.Equal(t, map[string]any{"code": "code-123", "provider": "KAKAO"}, rec.get().body)
	})

	t.Run("registered user", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newServer(t, http.StatusOK,
			`{"statusCode":0,"data":{"nickname":"kim","userType":"EXPERT"}}`)

		got, err := svc.SocialLogin(context.Background(), "c")
		require.NoError(t, err)
		assert.False(t, got.NeedsSignup())
	})

	t.Run("empty code", func(t *testing.T) {
		t.Parallel()

		svc, _, calls := newServer(t, http.StatusOK, `{}`)
		_, err := svc.SocialLogin(context.Background(), "  ")
		assert.ErrorIs(t, err, auth.ErrValidation)
		assert.Zero(t, calls.Load())
	})

	t.Run("invalid code", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newServer(t, http.StatusBadRequest, `{"statusCode":1103}`)
		_, err := svc.SocialLogin(context.Background(), "stale")
		assert.Equal(t, "The authorization code is invalid.", apierr.Message(err))
	})
}

func TestService_SocialSignup(t *testing.T) {
	t.Parallel()

	svc, rec, _ := newServer(t, http.StatusOK,
		`{"statusCode":0,"data":{"nickname":"투표왕","userType":"EXPERT"}}`)

	got, err := svc.SocialSignup(context.Background(), auth.SocialSignupRequest{
		Nickname:     "투표왕",
		Birth:        "20000229",
		Email:        "a@b.com",
		UserType:     auth.UserTypeExpert,
		AgreeTerms:   true,
		AgreePrivacy: true,
	})
	require.NoError(t, err)

	assert.Equal(t, session.Session{Username: "투표왕", Email: "a@b.com"}, got)
	assert.Equal(t, auth.PathSocialSignup, rec.get().path)
	assert.Equal(t, "2000-02-29", rec.get().body["birth"])
}

func TestService_Logout(t *testing.T) {
	t.Parallel()

	svc, rec, _ := newServer(t, http.StatusOK, ``)

	require.NoError(t, svc.Logout(context.Background()))
	assert.Equal(t, http.MethodPost, rec.get().method)
	assert.Equal(t, auth.PathLogout, rec.get().path)
	assert.Nil(t, rec.get().body)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestFormatBirth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1998-01-31", auth.FormatBirth("19980131"))
	assert.Equal(t, "1998-1-31", auth.FormatBirth("1998-1-31"))
}

func TestParseUserType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"customer", auth.UserTypeGroomer, false},
		{"Expert", auth.UserTypeExpert, false},
		{"GROOMER", auth.UserTypeGroomer, false},
		{"admin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := auth.ParseUserType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
