package utils

import "strings"

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// TruncateForLog trims s and cuts it to limit runes, appending an ellipsis when cut.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	cut := Truncate(s, limit)
	if cut == "" || len(cut) == len(s) {
		return cut
	}
	return cut + "..."
}
