package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ZoneResolver maps a zone name to a location. "UTC" must always resolve.
type ZoneResolver interface {
	Zone(name string) (*time.Location, error)
}

// ZoneFunc adapts a function to ZoneResolver.
type ZoneFunc func(name string) (*time.Location, error)

func (f ZoneFunc) Zone(name string) (*time.Location, error) { return f(name) }

// SystemZones resolves names through the system time zone database.
var SystemZones ZoneResolver = ZoneFunc(LoadZone)

// LoadZone resolves an IANA zone name. The empty name, "UTC" and "Z" are
// time.UTC.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch strings.ToUpper(name) {
	case "", "UTC", "Z", "ETC/UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("rrule: unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

// Range is an inclusive bounding window.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the range, endpoints included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolveRange parses both endpoints. Each endpoint without its own zone
// information is placed in loc.
func ResolveRange(start, end string, loc *time.Location) (Range, error) {
	s, _, err := parseInstant("RANGE.START", start, loc)
	if err != nil {
		return Range{}, err
	}
	e, _, err := parseInstant("RANGE.END", end, loc)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: s, End: e}, nil
}

// ParseInstant parses a date or date-time. Explicit zone information ("Z"
// or a numeric offset) is kept as a fixed offset; otherwise the value is
// read as wall-clock time in loc. A nil loc means UTC.
func ParseInstant(text string, loc *time.Location) (time.Time, error) {
	t, _, err := parseInstant("", text, loc)
	return t, err
}

const (
	compactDateTime = "20060102T150405"
	compactDate     = "20060102"
	isoDate         = "2006-01-02"
)

// probeZone is an offset no real zone uses; parsing a naive value in it
// yields a different instant than parsing it in UTC.
var probeZone = time.FixedZone("probe", 13*3600+17*60)

func parseInstant(key, text string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false, grammarErr(key, text, "empty date-time", nil)
	}

	switch {
	case len(s) == 16 && s[8] == 'T' && (s[15] == 'Z' || s[15] == 'z'):
		t, err = time.ParseInLocation(compactDateTime, s[:15], time.UTC)
	case len(s) == 15 && s[8] == 'T':
		t, err = time.ParseInLocation(compactDateTime, s, loc)
	case len(s) == 8 && isDigits(s):
		t, err = time.ParseInLocation(compactDate, s, loc)
		dateOnly = true
	case len(s) == 10 && s[4] == '-' && s[7] == '-':
		t, err = time.ParseInLocation(isoDate, s, loc)
		dateOnly = true
	default:
		t, err = parseFreeform(s, loc)
	}
	if err != nil {
		return time.Time{}, false, grammarErr(key, text, "unrecognized date-time", err)
	}
	return t, dateOnly, nil
}

func parseFreeform(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.RFC3339Nano, s, time.UTC); err == nil {
		return fixOffset(t), nil
	}

	utc, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	probe, err := dateparse.ParseIn(s, probeZone)
	if err != nil {
		return time.Time{}, err
	}
	if utc.Equal(probe) {
		// The text carried its own zone.
		return fixOffset(utc), nil
	}
	return dateparse.ParseIn(s, loc)
}

// fixOffset pins t to a fixed offset so that later occurrences keep the
// offset written in the source text.
func fixOffset(t time.Time) time.Time {
	_, off := t.Zone()
	if off == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", off))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
