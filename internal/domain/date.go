package domain

import (
	"strings"
	"time"
)

// dateFormats are the emission-date encodings accepted from imported
// datasets, tried in order.
var dateFormats = []string{"2006-01-02", "02/01/2006", "20060102"}

// ParseDate parses a raw emission-date string. The ISO form may carry a time
// suffix (dhemi is often a full timestamp); only the date part is used.
// Returns false when nothing matches.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if len(s) >= 10 {
		if d, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return d, true
		}
	}

	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
