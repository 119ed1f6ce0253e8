package strings

import (
	"strings"
)

const (
	// DefaultCellMaxLen is the maximum width of a free-text table cell.
	DefaultCellMaxLen = 40

	// DefaultBodyMaxLen is the maximum length of an upstream response body
	// kept in an error.
	DefaultBodyMaxLen = 512
)

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// Truncate shortens s to maxLen runes and makes it a single line. Whitespace
// runs (including newlines) collapse into one space, and "..." marks a cut.
//
// maxLen below MinTruncateLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	// Rune-based slicing keeps multi-byte characters whole
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
