package format

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Votes formats a vote count with its unit: "1 vote", "3 votes".
func Votes(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return fmt.Sprintf("%d votes", n)
}

// Share formats votes as a percentage of total with one decimal.
// A zero total yields "0.0%".
func Share(votes, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(votes)*100/float64(total))
}

// Bar draws votes relative to max as a bar of at most width cells.
// Any non-zero count gets at least one cell.
func Bar(votes, max, width int) string {
	if votes <= 0 || max <= 0 || width <= 0 {
		return ""
	}
	if votes > max {
		votes = max
	}
	n := votes * width / max
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// Pad right-pads s with spaces to width terminal cells.
// Wide characters (Hangul) count as two cells.
func Pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Width returns the number of terminal cells s occupies.
func Width(s string) int {
	return runewidth.StringWidth(s)
}
