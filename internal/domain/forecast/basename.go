package forecast

import "strings"

// BaseName strips a trailing four-digit year token from an event title so
// yearly instances of a recurring event share one series. Titles without a
// trailing year are returned unchanged.
func BaseName(title string) string {
	parts := strings.Split(title, " ")
	if isYearToken(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, " ")
}

func isYearToken(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
