package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-ballot/internal/apierr"
	"github.com/alnah/go-ballot/internal/auth"
	"github.com/alnah/go-ballot/internal/ballot"
	"github.com/alnah/go-ballot/internal/cli"
	"github.com/alnah/go-ballot/internal/config"
	"github.com/alnah/go-ballot/internal/proxy"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitValidation = 3
	ExitAuth       = 4
	ExitAPI        = 5
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation. serve installs its own two-stage
	// handler on top of this one.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()
	rootCmd := newRootCmd(env)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorMessage(err))
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree around env.
func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ballot",
		Short:   "Sign in, vote for candidates and teams, and follow the results",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log requests and responses at debug level")

	// Account.
	rootCmd.AddCommand(cli.LoginCmd(env))
	rootCmd.AddCommand(cli.SignupCmd(env))
	rootCmd.AddCommand(cli.SocialLoginCmd(env))
	rootCmd.AddCommand(cli.SocialSignupCmd(env))
	rootCmd.AddCommand(cli.LogoutCmd(env))
	rootCmd.AddCommand(cli.WhoamiCmd(env))

	// Ballot.
	rootCmd.AddCommand(cli.CandidatesCmd(env))
	rootCmd.AddCommand(cli.VoteCmd(env))
	rootCmd.AddCommand(cli.ResultsCmd(env))

	// Infrastructure.
	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Validation errors (ExitValidation = 3): rejected before any request.
	if errors.Is(err, auth.ErrValidation) || errors.Is(err, ballot.ErrUnknownCandidate) ||
		errors.Is(err, ballot.ErrUnknownPart) || errors.Is(err, cli.ErrInvalidValue) ||
		errors.Is(err, cli.ErrUnknownConfigKey) || errors.Is(err, config.ErrInvalidKey) ||
		errors.Is(err, proxy.ErrInvalidUpstream) {
		return ExitValidation
	}

	// Auth errors (ExitAuth = 4).
	if errors.Is(err, apierr.ErrSessionExpired) || errors.Is(err, cli.ErrNotLoggedIn) {
		return ExitAuth
	}

	// API errors (ExitAPI = 5): the request was sent and failed.
	if cli.IsAPIError(err) {
		return ExitAPI
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
