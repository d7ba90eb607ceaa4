// Package auth wraps the authentication endpoints: login, signup, social
// login and signup, and logout. Requests are validated locally first;
// validation failures never reach the network.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/alnah/go-ballot/internal/api"
	"github.com/alnah/go-ballot/internal/session"
)

// Endpoint paths, relative to the API base URL.
const (
	PathLogin        = "/auth/login"
	PathLogout       = "/auth/logout"
	PathSignup       = "/user/signup"
	PathSocialLogin  = "/auth/social-login"
	PathSocialSignup = "/auth/social-signup"
)

// User types understood by the server.
const (
	UserTypeTemporary = "TMP_USER"
	UserTypeGroomer   = "GROOMER"
	UserTypeExpert    = "EXPERT"
)

// ProviderKakao is the only supported social login provider.
const ProviderKakao = "KAKAO"

// Poster is the subset of api.Client the service needs.
type Poster interface {
	Post(ctx context.Context, path string, body, out any, opts ...api.RequestOption) error
}

// LoginRequest is the email/password login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the account creation payload. Birth is entered as
// YYYYMMDD and sent as YYYY-MM-DD.
type SignupRequest struct {
	Nickname        string `json:"nickname" validate:"required,min=2,max=8,nickname"`
	Birth           string `json:"birth" validate:"required,yyyymmdd,birthdate"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=14,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	UserType        string `json:"userType" validate:"required,oneof=GROOMER EXPERT"`
	AgreeTerms      bool   `json:"agreeTerms" validate:"eq=true"`
	AgreePrivacy    bool   `json:"agreePrivacy" validate:"eq=true"`
}

// SocialLoginRequest exchanges a provider authorization code.
type SocialLoginRequest struct {
	Code     string `json:"code" validate:"required"`
	Provider string `json:"provider" validate:"required,oneof=KAKAO"`
}

// SocialSignupRequest completes registration for a temporary social user.
type SocialSignupRequest struct {
	Nickname     string `json:"nickname" validate:"required,min=2,max=8,nickname"`
	Birth        string `json:"birth" validate:"required,yyyymmdd,birthdate"`
	Email        string `json:"email" validate:"required,email"`
	UserType     string `json:"userType" validate:"required,oneof=GROOMER EXPERT"`
	AgreeTerms   bool   `json:"agreeTerms" validate:"eq=true"`
	AgreePrivacy bool   `json:"agreePrivacy" validate:"eq=true"`
}

// LoginData is the data member of a successful login envelope. Older
// servers answer with the full session shape, newer ones with only the
// nickname and user type.
type LoginData struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Team     string `json:"team"`
	Part     string `json:"part"`
	UserType string `json:"userType"`
}

// Session builds the session to store, using email when the server did
// not echo one back.
func (d LoginData) Session(email string) session.Session {
	s := session.Session{
		UserID:   d.UserID,
		Username: d.Username,
		Email:    d.Email,
		Team:     d.Team,
		Part:     d.Part,
	}
	if s.Username == "" {
		s.Username = d.Nickname
	}
	if s.Email == "" {
		s.Email = email
	}
	return s
}

// SignupResult is the data member of a successful signup envelope.
type SignupResult struct {
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	CreatedAt string `json:"createdAt"`
	UserType  string `json:"userType"`
}

// SocialResult is returned by social login and social signup.
type SocialResult struct {
	Nickname string `json:"nickname"`
	UserType string `json:"userType"`
}

// NeedsSignup reports whether the social account must complete signup.
func (r SocialResult) NeedsSignup() bool { return r.UserType == UserTypeTemporary }

// Service calls the authentication endpoints.
type Service struct {
	client   Poster
	validate *Validator
}

// NewService returns a Service posting through client.
func NewService(client Poster, v *Validator) *Service {
	if v == nil {
		v = NewValidator(nil)
	}
	return &Service{client: client, validate: v}
}

// Login authenticates with email and password and returns the session to
// store. The caller stores it.
func (s *Service) Login(ctx context.Context, req LoginRequest) (session.Session, error) {
	if err := s.validate.Login(req); err != nil {
		return session.Session{}, err
	}

	var env api.Envelope[LoginData]
	if err := s.client.Post(ctx, PathLogin, req, &env); err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	if err := env.Err(); err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	return env.Data.Session(req.Email), nil
}

// Signup creates an account. It does not log in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	if err := s.validate.Signup(req); err != nil {
		return SignupResult{}, err
	}

	wire := req
	wire.Birth = FormatBirth(req.Birth)

	var env api.Envelope[SignupResult]
	if err := s.client.Post(ctx, PathSignup, wire, &env); err != nil {
		return SignupResult{}, fmt.Errorf("signup: %w", err)
	}
	if err := env.Err(); err != nil {
		return SignupResult{}, fmt.Errorf("signup: %w", err)
	}
	return env.Data, nil
}

// SocialLogin exchanges a Kakao authorization code. A result whose
// NeedsSignup is true must be followed by SocialSignup.
func (s *Service) SocialLogin(ctx context.Context, code string) (SocialResult, error) {
	req := SocialLoginRequest{Code: strings.TrimSpace(code), Provider: ProviderKakao}
	if err := s.validate.SocialLogin(req); err != nil {
		return SocialResult{}, err
	}

	var env api.Envelope[SocialResult]
	if err := s.client.Post(ctx, PathSocialLogin, req, &env); err != nil {
		return SocialResult{}, fmt.Errorf("social login: %w", err)
	}
	if err := env.Err(); err != nil {
		return SocialResult{}, fmt.Errorf("social login: %w", err)
	}
	return env.Data, nil
}

// SocialSignup completes registration and returns the session to store.
func (s *Service) SocialSignup(ctx context.Context, req SocialSignupRequest) (session.Session, error) {
	if err := s.validate.SocialSignup(req); err != nil {
		return session.Session{}, err
	}

	wire := req
	wire.Birth = FormatBirth(req.Birth)

	var env api.Envelope[SocialResult]
	if err := s.client.Post(ctx, PathSocialSignup, wire, &env); err != nil {
		return session.Session{}, fmt.Errorf("social signup: %w", err)
	}
	if err := env.Err(); err != nil {
		return session.Session{}, fmt.Errorf("social signup: %w", err)
	}
	return session.Session{Username: env.Data.Nickname, Email: req.Email}, nil
}

// Logout ends the server session. Local state is the caller's to clear.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.client.Post(ctx, PathLogout, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// FormatBirth turns YYYYMMDD into YYYY-MM-DD. Other input is returned as is.
func FormatBirth(birth string) string {
	if !birthPattern.MatchString(birth) {
		return birth
	}
	return birth[0:4] + "-" + birth[4:6] + "-" + birth[6:8]
}

// ParseUserType maps the CLI spelling to the wire value:
// customer is GROOMER, expert is EXPERT. Wire values are accepted as is.
func ParseUserType(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "groomer":
		return UserTypeGroomer, nil
	case "expert":
		return UserTypeExpert, nil
	}
	return "", fmt.Errorf("%w: user type must be customer or expert, got %q", ErrValidation, s)
}
