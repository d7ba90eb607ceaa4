package format_test

// Notes:
// - Negative counts are not tested beyond Bar: vote tallies are never negative
//   and locking in behavior for them would be meaningless.
// - Width tests use Hangul since candidate names are Korean.

import (
	"testing"

	"github.com/alnah/go-ballot/internal/format"
)

// ---------------------------------------------------------------------------
// TestVotes - Vote count with unit
// ---------------------------------------------------------------------------

func TestVotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input int
		want  string
	}{
		{0, "0 votes"},
		{1, "1 vote"},
		{2, "2 votes"},
		{1500, "1500 votes"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := format.Votes(tt.input); got != tt.want {
				t.Errorf("Votes(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestShare - Percentage of total
// ---------------------------------------------------------------------------

func TestShare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		votes, total int
		want         string
	}{
		{name: "zero total", votes: 0, total: 0, want: "0.0%"},
		{name: "all votes", votes: 4, total: 4, want: "100.0%"},
		{name: "third", votes: 1, total: 3, want: "33.3%"},
		{name: "two thirds rounds", votes: 2, total: 3, want: "66.7%"},
		{name: "none", votes: 0, total: 10, want: "0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Share(tt.votes, tt.total); got != tt.want {
				t.Errorf("Share(%d, %d) = %q, want %q", tt.votes, tt.total, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestBar - Proportional bar
// ---------------------------------------------------------------------------

func TestBar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		votes, max, width int
		want              string
	}{
		{name: "leader fills width", votes: 10, max: 10, width: 5, want: "█████"},
		{name: "half", votes: 5, max: 10, width: 10, want: "█████"},
		{name: "tiny share gets one cell", votes: 1, max: 100, width: 10, want: "█"},
		{name: "zero votes", votes: 0, max: 10, width: 10, want: ""},
		{name: "zero max", votes: 3, max: 0, width: 10, want: ""},
		{name: "zero width", votes: 3, max: 3, width: 0, want: ""},
		{name: "votes above max clamp", votes: 20, max: 10, width: 4, want: "████"},
		{name: "negative votes", votes: -1, max: 10, width: 4, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := format.Bar(tt.votes, tt.max, tt.width); got != tt.want {
				t.Errorf("Bar(%d, %d, %d) = %q, want %q", tt.votes, tt.max, tt.width, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPad / TestWidth - Terminal cell alignment
// ---------------------------------------------------------------------------

func TestWidth(t *testing.T) {
	t.Parallel()

	if got := format.Width("STORIX"); got != 6 {
		t.Errorf("Width(STORIX) = %d, want 6", got)
	}
	if got := format.Width("신혁"); got != 4 {
		t.Errorf("Width(신혁) = %d, want 4", got)
	}
}

func TestPad(t *testing.T) {
	t.Parallel()

	if got := format.Pad("신혁", 6); got != "신혁  " {
		t.Errorf("Pad(신혁, 6) = %q, want %q", got, "신혁  ")
	}
	if got := format.Pad("abc", 5); got != "abc  " {
		t.Errorf("Pad(abc, 5) = %q", got)
	}
	if got := format.Pad("abcdef", 3); got != "abcdef" {
		t.Errorf("Pad(abcdef, 3) = %q, want input unchanged", got)
	}
}
