package rrule

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/rrulecheck/internal/calendar"
)

// Weekday is a day of the week, Monday first.
type Weekday int

const (
	MO Weekday = iota
	TU
	WE
	TH
	FR
	SA
	SU
)

var weekdayCodes = [7]string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// String returns the two letter RFC 5545 code.
func (w Weekday) String() string {
	if w < MO || w > SU {
		return "Weekday(" + strconv.Itoa(int(w)) + ")"
	}
	return weekdayCodes[w]
}

// TimeWeekday converts w to the standard library representation.
func (w Weekday) TimeWeekday() time.Weekday {
	return calendar.ToTimeWeekday(int(w))
}

// WeekdayOf returns the Weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(calendar.FromTimeWeekday(t.Weekday()))
}

// Nth qualifies w with a position: 1 is the first, -1 the last.
func (w Weekday) Nth(n int) WeekdayNum {
	return WeekdayNum{Weekday: w, N: mo.Some(n)}
}

// WeekdayNum is a BYDAY element: a weekday with an optional ordinal.
type WeekdayNum struct {
	Weekday Weekday
	N       mo.Option[int]
}

// Day returns the bare weekday element.
func Day(w Weekday) WeekdayNum {
	return WeekdayNum{Weekday: w, N: mo.None[int]()}
}

func (wn WeekdayNum) String() string {
	if n, ok := wn.N.Get(); ok {
		return strconv.Itoa(n) + wn.Weekday.String()
	}
	return wn.Weekday.String()
}

// HasOrdinal reports whether the element carries a position.
func (wn WeekdayNum) HasOrdinal() bool {
	return wn.N.IsPresent()
}

// ParseWeekday parses a bare two letter weekday code.
func ParseWeekday(s string) (Weekday, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for i, c := range weekdayCodes {
		if c == code {
			return Weekday(i), nil
		}
	}
	return 0, grammarErr("", s, "unknown weekday code", nil)
}

// ParseWeekdayNum parses a BYDAY token such as "MO", "1MO", "+2TU" or
// "-1FR". The ordinal must be non-zero and within ±53.
func ParseWeekdayNum(s string) (WeekdayNum, error) {
	tok := strings.TrimSpace(s)
	if len(tok) < 2 {
		return WeekdayNum{}, grammarErr("", s, "weekday token too short", nil)
	}
	wd, err := ParseWeekday(tok[len(tok)-2:])
	if err != nil {
		return WeekdayNum{}, grammarErr("", s, "unknown weekday code", nil)
	}
	prefix := tok[:len(tok)-2]
	if prefix == "" {
		return Day(wd), nil
	}

	digits := strings.TrimLeft(prefix, "+-")
	if digits == "" || len(prefix)-len(digits) > 1 {
		return WeekdayNum{}, grammarErr("", s, "malformed ordinal", nil)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return WeekdayNum{}, grammarErr("", s, "malformed ordinal", nil)
		}
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return WeekdayNum{}, grammarErr("", s, "malformed ordinal", err)
	}
	if n == 0 {
		return WeekdayNum{}, grammarErr("", s, "ordinal must not be zero", nil)
	}
	if n < -53 || n > 53 {
		return WeekdayNum{}, grammarErr("", s, "ordinal out of range", nil)
	}
	return wd.Nth(n), nil
}
