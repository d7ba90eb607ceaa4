package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alnah/go-ballot/internal/ballot"
	"github.com/alnah/go-ballot/internal/format"
	"github.com/alnah/go-ballot/internal/session"
)

// barWidth is the widest result bar, in cells.
const barWidth = 20

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	leaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

// renderStandings draws one part's results as a bordered table.
func renderStandings(title string, standings []ballot.Standing) string {
	total := ballot.Total(standings)
	top := 0
	nameWidth := 0
	for _, s := range standings {
		if s.Votes > top {
			top = s.Votes
		}
		if w := format.Width(s.Name); w > nameWidth {
			nameWidth = w
		}
	}

	lines := []string{titleStyle.Render(title)}
	for _, s := range standings {
		line := fmt.Sprintf("%2d. %s  %-9s %6s  %s",
			s.Rank,
			format.Pad(s.Name, nameWidth),
			format.Votes(s.Votes),
			format.Share(s.Votes, total),
			format.Bar(s.Votes, top, barWidth))
		if s.Rank == 1 && s.Votes > 0 {
			line = leaderStyle.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, mutedStyle.Render("Total: "+format.Votes(total)))

	return boxStyle.Render(strings.Join(lines, "\n"))
}

// printCandidates lists candidates grouped by team.
func printCandidates(w io.Writer, part ballot.Part, cands []ballot.Candidate) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(part.Label()))

	nameWidth := 0
	for _, c := range cands {
		if n := format.Width(c.Name); n > nameWidth {
			nameWidth = n
		}
	}
	for _, c := range cands {
		_, _ = fmt.Fprintf(w, "  %-13s %s  %s\n", c.ID, format.Pad(c.Name, nameWidth), mutedStyle.Render(c.Team))
	}
}

// printTeams lists teams with their members.
func printTeams(w io.Writer, part ballot.Part, teams []ballot.Team) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(part.Label()+" teams"))
	for _, t := range teams {
		names := make([]string, 0, len(t.Members))
		for _, id := range t.Members {
			if c, ok := ballot.CandidateByID(id); ok {
				names = append(names, c.Name)
			}
		}
		_, _ = fmt.Fprintf(w, "  %-10s %s  %s\n", t.ID, t.Name, mutedStyle.Render(strings.Join(names, ", ")))
	}
}

// printSession writes the stored user's fields, skipping empty ones.
func printSession(w io.Writer, s session.Session) {
	row := func(label, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(w, "%-9s %s\n", label+":", value)
		}
	}
	if s.UserID != 0 {
		row("User ID", fmt.Sprint(s.UserID))
	}
	row("Username", s.Username)
	row("Email", s.Email)
	row("Team", s.Team)
	row("Part", s.Part)
}

// prompter reads answers from stdin, one line per prompt.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(env *Env) *prompter {
	in := env.Stdin
	if in == nil {
		in = strings.NewReader("")
	}
	return &prompter{r: bufio.NewReader(in), w: env.Stderr}
}

// value returns current when set, otherwise prompts for it.
func (p *prompter) value(current, prompt string) (string, error) {
	if current != "" {
		return current, nil
	}
	_, _ = fmt.Fprint(p.w, prompt)
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(prompt, ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
