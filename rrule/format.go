package rrule

import (
	"time"
)

// Canonical occurrence layouts. UTC is written as "+00:00", never "Z", and
// fractional seconds appear only when present, with six digits.
const (
	Layout         = "2006-01-02T15:04:05-07:00"
	LayoutFraction = "2006-01-02T15:04:05.000000-07:00"
)

// Format renders t in the canonical form.
func Format(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format(LayoutFraction)
	}
	return t.Format(Layout)
}

// FormatAll renders every instant with Format.
func FormatAll(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = Format(t)
	}
	return out
}

// ParseOccurrence reads an ISO-8601 instant with an explicit offset or "Z".
func ParseOccurrence(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.RFC3339Nano, s, time.UTC)
	if err != nil {
		return time.Time{}, grammarErr("", s, "not an ISO-8601 instant", err)
	}
	return fixOffset(t), nil
}
