package normalize

import (
	"strings"
	"time"
)

// Date formats accepted for configured window starts.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// ParseDate attempts to parse a date string in multiple common formats and
// returns it as UTC midnight. Returns nil if the input is empty or
// unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}
