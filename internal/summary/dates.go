package summary

import (
	"strings"
	"time"
)

// Receipt date layouts, month-first where ambiguous.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"01-02-06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"02-Jan-06",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate parses a printed receipt date into a calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	// Titlecase month names printed in capitals ("MAR 01 2024").
	if titled := titleMonth(s); titled != s {
		return ParseDate(titled)
	}
	return time.Time{}, false
}

func titleMonth(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if len(f) >= 3 && isLetters(f) {
			fields[i] = f[:1] + strings.ToLower(f[1:])
		}
	}
	return strings.Join(fields, " ")
}

func isLetters(s string) bool {
	for _, r := range strings.TrimSuffix(s, ",") {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
