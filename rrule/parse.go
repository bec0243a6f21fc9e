package rrule

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

const untilLayoutUTC = "20060102T150405Z"

type parseConfig struct {
	strict bool
	loc    *time.Location
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

// WithStrictFrequency rejects a missing or unrecognized FREQ instead of
// falling back to DAILY.
func WithStrictFrequency() ParseOption {
	return func(c *parseConfig) { c.strict = true }
}

// WithLocation sets the rule's zone: UNTIL values without zone
// information are read in loc. The default is the anchor's location.
func WithLocation(loc *time.Location) ParseOption {
	return func(c *parseConfig) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// Parse parses RRULE text anchored at anchor. The anchor must carry its
// zone; it is truncated to whole seconds. Unknown keys are ignored.
func Parse(text string, anchor time.Time, opts ...ParseOption) (*Rule, error) {
	cfg := parseConfig{loc: anchor.Location()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Rule{
		Freq:      Daily,
		Interval:  1,
		Count:     mo.None[int](),
		Until:     mo.None[time.Time](),
		WeekStart: MO,
		Anchor:    anchor.Truncate(time.Second),
	}

	body := strings.TrimSpace(text)
	if len(body) >= 6 && strings.EqualFold(body[:6], "RRULE:") {
		body = body[6:]
	}

	sawFreq := false
	for _, segment := range strings.Split(body, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, grammarErr("", segment, "expected KEY=value", nil)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "FREQ":
			sawFreq = true
			freq, known := ParseFrequency(value)
			if !known && cfg.strict {
				return nil, grammarErr(key, value, "unknown frequency", nil)
			}
			r.Freq = freq
		case "INTERVAL":
			r.Interval, err = parseInt(key, value, 1, 0)
		case "COUNT":
			var n int
			n, err = parseInt(key, value, 0, 0)
			r.Count = mo.Some(n)
		case "UNTIL":
			var until time.Time
			until, err = parseUntil(value, cfg.loc)
			r.Until = mo.Some(until)
		case "BYDAY":
			r.ByWeekday, err = parseWeekdayList(key, value)
		case "BYMONTHDAY":
			r.ByMonthDay, err = parseIntList(key, value, 31, true)
		case "BYMONTH":
			r.ByMonth, err = parseIntList(key, value, 12, false)
		case "BYWEEKNO":
			r.ByWeekNo, err = parseIntList(key, value, 53, true)
		case "BYSETPOS":
			r.BySetPos, err = parseIntList(key, value, 366, true)
		case "WKST":
			r.WeekStart, err = ParseWeekday(value)
			if err != nil {
				err = grammarErr(key, value, "unknown weekday code", nil)
			}
		default:
			// Unknown parts are ignored.
		}
		if err != nil {
			return nil, err
		}
	}

	if !sawFreq && cfg.strict {
		return nil, grammarErr("FREQ", "", "missing FREQ", nil)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// parseInt parses a single integer of at least min. A max of zero means
// no upper bound.
func parseInt(key, value string, min, max int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, grammarErr(key, value, "not an integer", err)
	}
	if n < min || (max > 0 && n > max) {
		return 0, grammarErr(key, value, "out of range", nil)
	}
	return n, nil
}

// parseIntList parses a comma separated list of non-zero integers whose
// magnitude is at most max. Negative values are allowed when signed.
func parseIntList(key, value string, max int, signed bool) ([]int, error) {
	items := strings.Split(value, ",")
	out := make([]int, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, grammarErr(key, value, "empty list element", nil)
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, grammarErr(key, item, "not an integer", err)
		}
		abs := n
		if n < 0 {
			if !signed {
				return nil, grammarErr(key, item, "must be positive", nil)
			}
			abs = -n
		}
		if abs < 1 || abs > max {
			return nil, grammarErr(key, item, "out of range", nil)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseWeekdayList(key, value string) ([]WeekdayNum, error) {
	items := strings.Split(value, ",")
	out := make([]WeekdayNum, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, grammarErr(key, value, "empty list element", nil)
		}
		wd, err := ParseWeekdayNum(item)
		if err != nil {
			if ge, ok := err.(*GrammarError); ok {
				ge.Key = key
			}
			return nil, err
		}
		out = append(out, wd)
	}
	return out, nil
}

// parseUntil reads an UNTIL value. A bare date stands for the last second
// of that day in loc.
func parseUntil(value string, loc *time.Location) (time.Time, error) {
	t, dateOnly, err := parseInstant("UNTIL", value, loc)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly {
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	}
	return t, nil
}
