package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/apierr"
	"github.com/alnah/go-ballot/internal/auth"
)

// verbose reads the root --verbose flag. Commands built outside the root
// (tests) simply don't have it.
func verbose(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("verbose")
	return err == nil && v
}

// ---------------------------------------------------------------------------
// login
// ---------------------------------------------------------------------------

type loginOptions struct {
	email    string
	password string
	verbose  bool
}

// LoginCmd creates the login command.
func LoginCmd(env *Env) *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Long: `Log in with email and password.

The password is read from stdin when --password is omitted.
The session is kept in ~/.config/ballot/storage until logout or expiry.`,
		Example: `  ballot login --email me@example.com
  ballot login --email me@example.com --password s3cretpw1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = verbose(cmd)
			return runLogin(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "Account password (prompted when omitted)")

	return cmd
}

func runLogin(ctx context.Context, env *Env, opts loginOptions) error {
	a, err := newApp(env, opts.verbose)
	if err != nil {
		return err
	}
	defer a.flushCookies(env)

	p := newPrompter(env)
	if opts.email, err = p.value(opts.email, "Email: "); err != nil {
		return err
	}
	if opts.password, err = p.value(opts.password, "Password: "); err != nil {
		return err
	}

	s, err := a.auth.Login(ctx, auth.LoginRequest{Email: opts.email, Password: opts.password})
	if err != nil {
		return err
	}
	if err := a.store.Login(s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	a.logger.Info("logged in", zap.String("email", s.Email))
	_, _ = fmt.Fprintf(env.Stderr, "Logged in as %s.\n", displayName(s.Username, s.Email))
	return nil
}

func displayName(username, email string) string {
	if username != "" {
		return username
	}
	return email
}

// ---------------------------------------------------------------------------
// signup
// ---------------------------------------------------------------------------

type signupOptions struct {
	nickname        string
	birth           string
	email           string
	password        string
	passwordConfirm string
	userType        string
	agreeTerms      bool
	agreePrivacy    bool
	verbose         bool
}

// SignupCmd creates the signup command.
func SignupCmd(env *Env) *cobra.Command {
	var opts signupOptions

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account.

Both --agree-terms and --agree-privacy are required.
Passwords are 8-14 letters and digits with at least one of each; they are
read from stdin when the flags are omitted.

User types:
  customer    Regular member (sent as GROOMER)
  expert      Expert member (sent as EXPERT)`,
		Example: `  ballot signup --nickname 투표왕 --birth 19980101 --email me@example.com \
      --type customer --agree-terms --agree-privacy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = verbose(cmd)
			return runSignup(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.nickname, "nickname", "", "Nickname (2-8 Hangul, letters, or digits)")
	cmd.Flags().StringVar(&opts.birth, "birth", "", "Date of birth as YYYYMMDD")
	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.passwordConfirm, "password-confirm", "", "Password again (prompted when omitted)")
	cmd.Flags().StringVarP(&opts.userType, "type", "t", "", "User type: customer or expert")
	cmd.Flags().BoolVar(&opts.agreeTerms, "agree-terms", false, "Agree to the terms of service")
	cmd.Flags().BoolVar(&opts.agreePrivacy, "agree-privacy", false, "Agree to the privacy policy")

	return cmd
}

func runSignup(ctx context.Context, env *Env, opts signupOptions) error {
	userType, err := userTypeFlag(opts.userType)
	if err != nil {
		return err
	}

	a, err := newApp(env, opts.verbose)
	if err != nil {
		return err
	}
	defer a.flushCookies(env)

	// Consent is checked before anything is prompted for.
	if opts.agreeTerms && opts.agreePrivacy {
		p := newPrompter(env)
		if opts.password, err = p.value(opts.password, "Password: "); err != nil {
			return err
		}
		if opts.passwordConfirm, err = p.value(opts.passwordConfirm, "Confirm password: "); err != nil {
			return err
		}
	}

	res, err := a.auth.Signup(ctx, auth.SignupRequest{
		Nickname:        opts.nickname,
		Birth:           opts.birth,
		Email:           opts.email,
		Password:        opts.password,
		PasswordConfirm: opts.passwordConfirm,
		UserType:        userType,
		AgreeTerms:      opts.agreeTerms,
		AgreePrivacy:    opts.agreePrivacy,
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(env.Stderr, "Account created for %s. Run 'ballot login --email %s' to sign in.\n",
		displayName(res.Nickname, opts.nickname), displayName(res.Email, opts.email))
	return nil
}

// userTypeFlag maps the --type flag. Empty is left for the validator to
// report as missing.
func userTypeFlag(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	t, err := auth.ParseUserType(v)
	if err != nil {
		return "", &auth.ValidationError{Fields: map[string]string{
			"userType": "User type must be customer or expert.",
		}}
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// social-login / social-signup
// ---------------------------------------------------------------------------

type socialLoginOptions struct {
	code    string
	verbose bool
}

// SocialLoginCmd creates the social-login command.
func SocialLoginCmd(env *Env) *cobra.Command {
	var opts socialLoginOptions

	cmd := &cobra.Command{
		Use:   "social-login",
		Short: "Log in with a Kakao authorization code",
		Long: `Log in with a Kakao authorization code.

First-time social users must complete registration with social-signup.`,
		Example: `  ballot social-login --code 0aBcD...`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = verbose(cmd)
			return runSocialLogin(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.code, "code", "", "Authorization code returned by Kakao")

	return cmd
}

func runSocialLogin(ctx context.Context, env *Env, opts socialLoginOptions) error {
	a, err := newApp(env, opts.verbose)
	if err != nil {
		return err
	}
	defer a.flushCookies(env)

	res, err := a.auth.SocialLogin(ctx, opts.code)
	if err != nil {
		return err
	}

	if res.NeedsSignup() {
		_, _ = fmt.Fprintln(env.Stderr, "This Kakao account is not registered yet. Complete signup with:")
		_, _ = fmt.Fprintln(env.Stderr, "  ballot social-signup --nickname <name> --birth <YYYYMMDD> --email <email> --type <customer|expert> --agree-terms --agree-privacy")
		return nil
	}

	s := auth.LoginData{Nickname: res.Nickname, UserType: res.UserType}.Session("")
	if err := a.store.Login(s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	_, _ = fmt.Fprintf(env.Stderr, "Logged in as %s.\n", s.Username)
	return nil
}

type socialSignupOptions struct {
	nickname     string
	birth        string
	email        string
	userType     string
	agreeTerms   bool
	agreePrivacy bool
	verbose      bool
}

// SocialSignupCmd creates the social-signup command.
func SocialSignupCmd(env *Env) *cobra.Command {
	var opts socialSignupOptions

	cmd := &cobra.Command{
		Use:   "social-signup",
		Short: "Complete registration after a first Kakao login",
		Example: `  ballot social-signup --nickname 투표왕 --birth 19980101 --email me@example.com \
      --type expert --agree-terms --agree-privacy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = verbose(cmd)
			return runSocialSignup(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.nickname, "nickname", "", "Nickname (2-8 Hangul, letters, or digits)")
	cmd.Flags().StringVar(&opts.birth, "birth", "", "Date of birth as YYYYMMDD")
	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "Contact email")
	cmd.Flags().StringVarP(&opts.userType, "type", "t", "", "User type: customer or expert")
	cmd.Flags().BoolVar(&opts.agreeTerms, "agree-terms", false, "Agree to the terms of service")
	cmd.Flags().BoolVar(&opts.agreePrivacy, "agree-privacy", false, "Agree to the privacy policy")

	return cmd
}

func runSocialSignup(ctx context.Context, env *Env, opts socialSignupOptions) error {
	userType, err := userTypeFlag(opts.userType)
	if err != nil {
		return err
	}

	a, err := newApp(env, opts.verbose)
	if err != nil {
		return err
	}
	defer a.flushCookies(env)

	s, err := a.auth.SocialSignup(ctx, auth.SocialSignupRequest{
		Nickname:     opts.nickname,
		Birth:        opts.birth,
		Email:        opts.email,
		UserType:     userType,
		AgreeTerms:   opts.agreeTerms,
		AgreePrivacy: opts.agreePrivacy,
	})
	if err != nil {
		return err
	}
	if err := a.store.Login(s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	_, _ = fmt.Fprintf(env.Stderr, "Welcome, %s. You are now logged in.\n", s.Username)
	return nil
}

// ---------------------------------------------------------------------------
// logout / whoami
// ---------------------------------------------------------------------------

// LogoutCmd creates the logout command.
func LogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Long: `End the session on the server and forget it locally.

Local state is cleared even when the server cannot be reached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), env, verbose(cmd))
		},
	}
}

func runLogout(ctx context.Context, env *Env, verbose bool) error {
	a, err := newApp(env, verbose)
	if err != nil {
		return err
	}

	a.loggingOut = true
	serverErr := a.auth.Logout(ctx)
	if errors.Is(serverErr, apierr.ErrSessionExpired) {
		// Already gone server side; the expiry handler cleared local state.
		serverErr = nil
	}

	localErr := a.store.Logout()
	if err := a.jar.Clear(); err != nil && localErr == nil {
		localErr = err
	}

	if localErr != nil {
		return fmt.Errorf("failed to clear local session: %w", localErr)
	}
	if serverErr != nil {
		_, _ = fmt.Fprintf(env.Stderr, "Logged out locally. The server did not confirm: %s\n", ErrorMessage(serverErr))
		return nil
	}
	_, _ = fmt.Fprintln(env.Stderr, "Logged out.")
	return nil
}

// WhoamiCmd creates the whoami command.
func WhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(env)
		},
	}
}

func runWhoami(env *Env) error {
	a, err := newApp(env, false)
	if err != nil {
		return err
	}
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	printSession(env.Stdout, s)
	return nil
}
