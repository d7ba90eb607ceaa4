package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/apierr"
	"github.com/alnah/go-ballot/internal/ballot"
)

// maxRetries caps --retries.
const maxRetries = 10

// ---------------------------------------------------------------------------
// candidates
// ---------------------------------------------------------------------------

// CandidatesCmd creates the candidates command with list and show subcommands.
func CandidatesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Browse candidates and teams",
	}

	cmd.AddCommand(candidatesListCmd(env))
	cmd.AddCommand(candidatesShowCmd(env))

	return cmd
}

func candidatesListCmd(env *Env) *cobra.Command {
	var (
		part  string
		teams bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates or teams",
		Example: `  ballot candidates list
  ballot candidates list --part backend --teams`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCandidatesList(env, part, teams)
		},
	}

	cmd.Flags().StringVar(&part, "part", "all", "Part: frontend, backend, or all")
	cmd.Flags().BoolVar(&teams, "teams", false, "List teams instead of candidates")

	return cmd
}

func runCandidatesList(env *Env, partFlag string, teams bool) error {
	parts, err := parseParts(partFlag)
	if err != nil {
		return err
	}

	for i, part := range parts {
		if i > 0 {
			_, _ = fmt.Fprintln(env.Stdout)
		}
		if teams {
			printTeams(env.Stdout, part, ballot.Teams(part))
		} else {
			printCandidates(env.Stdout, part, ballot.Candidates(part))
		}
	}
	return nil
}

func candidatesShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one candidate or team",
		Example: `  ballot candidates show fe1-member-1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCandidatesShow(env, args[0])
		},
	}
}

func runCandidatesShow(env *Env, id string) error {
	if c, ok := ballot.CandidateByID(id); ok {
		_, _ = fmt.Fprintln(env.Stdout, titleStyle.Render(c.Name))
		_, _ = fmt.Fprintf(env.Stdout, "ID:    %s\nPart:  %s\nTeam:  %s\n\n%s\n", c.ID, c.Part.Label(), c.Team, c.Introduction)
		return nil
	}
	if t, ok := ballot.TeamByID(id); ok {
		printTeams(env.Stdout, t.Part, []ballot.Team{t})
		return nil
	}
	return fmt.Errorf("%w: %q", ballot.ErrUnknownCandidate, id)
}

// ---------------------------------------------------------------------------
// vote
// ---------------------------------------------------------------------------

type voteOptions struct {
	id      string
	part    string
	verbose bool
}

// VoteCmd creates the vote command.
func VoteCmd(env *Env) *cobra.Command {
	var opts voteOptions

	cmd := &cobra.Command{
		Use:   "vote <candidate-or-team-id>",
		Short: "Cast a vote",
		Long: `Cast a vote for a candidate or a team.

The part is taken from the id unless --part is given.
Requires a logged-in session.`,
		Example: `  ballot vote fe2-member-1
  ballot vote be-team-3 --part backend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.id = args[0]
			opts.verbose = verbose(cmd)
			return runVote(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.part, "part", "", "Part: frontend or backend")

	return cmd
}

func runVote(ctx context.Context, env *Env, opts voteOptions) error {
	part, err := votePart(opts.part, opts.id)
	if err != nil {
		return err
	}

	a, err := newApp(env, opts.verbose)
	if err != nil {
		return err
	}
	defer a.flushCookies(env)

	if _, err := a.requireSession(); err != nil {
		return err
	}

	entry, err := a.ballot.CastVote(ctx, part, opts.id)
	if err != nil {
		return err
	}

	a.logger.Info("vote cast", zap.String("part", string(part)), zap.String("id", entry.ID))
	_, _ = fmt.Fprintf(env.Stderr, "Voted for %s (%s, %s).\n", entry.Name, entry.Kind, part.Label())
	return nil
}

// votePart resolves the part from the flag, or from the id when the flag
// is empty.
func votePart(flag, id string) (ballot.Part, error) {
	if flag != "" {
		return ballot.ParsePart(flag)
	}
	if c, ok := ballot.CandidateByID(id); ok {
		return c.Part, nil
	}
	if t, ok := ballot.TeamByID(id); ok {
		return t.Part, nil
	}
	return "", fmt.Errorf("%w: %q", ballot.ErrUnknownCandidate, id)
}

// ---------------------------------------------------------------------------
// results
// ---------------------------------------------------------------------------

type resultsOptions struct {
	part    string
	teams   bool
	retries int
	verbose bool
}

// ResultsCmd creates the results command.
func ResultsCmd(env *Env) *cobra.Command {
	var opts resultsOptions

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show vote results",
		Long: `Show vote results ranked by votes.

Parts are fetched concurrently. With --retries, network errors, timeouts,
502 and 503 responses are retried with exponential backoff.`,
		Example: `  ballot results
  ballot results --part frontend --teams --retries 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = verbose(cmd)
			return runResults(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.part, "part", "all", "Part: frontend, backend, or all")
	cmd.Flags().BoolVar(&opts.teams, "teams", false, "Show team results instead of candidates")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, fmt.Sprintf("Retries for transient failures (0-%d)", maxRetries))

	return cmd
}

func runResults(ctx context.Context, env *Env, opts resultsOptions) error {
	parts, err := parseParts(opts.part)
	if err != nil {
		return err
	}
	if opts.retries < 0 || opts.retries > maxRetries {
		return fmt.Errorf("%w: --retries must be between 0 and %d, got %d", ErrInvalidValue, maxRetries, opts.retries)
	}

	a, err := newApp(env, opts.verbose)
	if err != nil {
		return err
	}
	defer a.flushCookies(env)

	byPart, err := apierr.RetryWithBackoff(ctx, apierr.Backoff(opts.retries),
		func() (map[ballot.Part]ballot.Tallies, error) {
			return a.ballot.ResultsForParts(ctx, parts)
		}, nil)
	if err != nil {
		return err
	}

	kind := ballot.KindCandidate
	if opts.teams {
		kind = ballot.KindTeam
	}

	for i, part := range parts {
		if i > 0 {
			_, _ = fmt.Fprintln(env.Stdout)
		}
		standings := ballot.Rank(ballot.Entries(part, kind), byPart[part])
		title := part.Label() + " " + string(kind) + "s"
		_, _ = fmt.Fprintln(env.Stdout, renderStandings(title, standings))
	}
	return nil
}

// parseParts accepts a single part or "all".
func parseParts(flag string) ([]ballot.Part, error) {
	if flag == "" || strings.EqualFold(flag, "all") {
		return ballot.Parts, nil
	}
	part, err := ballot.ParsePart(flag)
	if err != nil {
		return nil, err
	}
	return []ballot.Part{part}, nil
}
