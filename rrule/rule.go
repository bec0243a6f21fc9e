package rrule

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Frequency is the FREQ of a rule. Lower values are coarser.
type Frequency int

const (
	Yearly Frequency = iota
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

var frequencyNames = [...]string{"YEARLY", "MONTHLY", "WEEKLY", "DAILY", "HOURLY", "MINUTELY", "SECONDLY"}

func (f Frequency) String() string {
	if f < Yearly || f > Secondly {
		return "Frequency(" + strconv.Itoa(int(f)) + ")"
	}
	return frequencyNames[f]
}

// ParseFrequency looks up a FREQ value. Matching is case-insensitive.
func ParseFrequency(s string) (Frequency, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range frequencyNames {
		if n == name {
			return Frequency(i), true
		}
	}
	return Daily, false
}

// subDaily reports whether f advances the time of day.
func (f Frequency) subDaily() bool {
	return f >= Hourly
}

// Rule is a parsed recurrence rule anchored at a start instant.
//
// A nil slice means the corresponding BY* filter is inactive. A Rule is
// read-only once built; the generator works on its own copy of the
// normalized filters.
type Rule struct {
	Freq       Frequency
	Interval   int
	Count      mo.Option[int]
	Until      mo.Option[time.Time]
	ByWeekday  []WeekdayNum
	ByMonthDay []int
	ByMonth    []int
	ByWeekNo   []int
	BySetPos   []int
	WeekStart  Weekday
	Anchor     time.Time
}

// Location returns the zone the rule is expanded in.
func (r *Rule) Location() *time.Location {
	return r.Anchor.Location()
}

// Bounded reports whether COUNT or UNTIL terminates the rule on its own.
func (r *Rule) Bounded() bool {
	return r.Count.IsPresent() || r.Until.IsPresent()
}

// String renders the rule back into RRULE text (without DTSTART). Parts
// with default values are omitted.
func (r *Rule) String() string {
	parts := []string{"FREQ=" + r.Freq.String()}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if n, ok := r.Count.Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(n))
	}
	if u, ok := r.Until.Get(); ok {
		parts = append(parts, "UNTIL="+u.UTC().Format(untilLayoutUTC))
	}
	if len(r.ByWeekday) > 0 {
		days := make([]string, len(r.ByWeekday))
		for i, wd := range r.ByWeekday {
			days[i] = wd.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	parts = appendInts(parts, "BYMONTHDAY", r.ByMonthDay)
	parts = appendInts(parts, "BYMONTH", r.ByMonth)
	parts = appendInts(parts, "BYWEEKNO", r.ByWeekNo)
	parts = appendInts(parts, "BYSETPOS", r.BySetPos)
	if r.WeekStart != MO {
		parts = append(parts, "WKST="+r.WeekStart.String())
	}
	return strings.Join(parts, ";")
}

func appendInts(parts []string, key string, values []int) []string {
	if len(values) == 0 {
		return parts
	}
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}
	return append(parts, key+"="+strings.Join(s, ","))
}

// Validate checks the rule for values and combinations the generator
// cannot honor.
func (r *Rule) Validate() error {
	if r.Anchor.IsZero() {
		return semanticErr("DTSTART", "anchor is required")
	}
	if r.Freq < Yearly || r.Freq > Secondly {
		return semanticErr("FREQ", "unknown frequency %d", int(r.Freq))
	}
	if r.Interval < 1 {
		return semanticErr("INTERVAL", "must be at least 1, got %d", r.Interval)
	}
	if n, ok := r.Count.Get(); ok && n < 0 {
		return semanticErr("COUNT", "must not be negative, got %d", n)
	}
	if r.WeekStart < MO || r.WeekStart > SU {
		return semanticErr("WKST", "unknown weekday %d", int(r.WeekStart))
	}
	if err := checkRange("BYMONTH", r.ByMonth, 1, 12, false); err != nil {
		return err
	}
	if err := checkRange("BYMONTHDAY", r.ByMonthDay, 1, 31, true); err != nil {
		return err
	}
	if err := checkRange("BYWEEKNO", r.ByWeekNo, 1, 53, true); err != nil {
		return err
	}
	if err := checkRange("BYSETPOS", r.BySetPos, 1, 366, true); err != nil {
		return err
	}

	for _, wd := range r.ByWeekday {
		if wd.Weekday < MO || wd.Weekday > SU {
			return semanticErr("BYDAY", "unknown weekday %d", int(wd.Weekday))
		}
		n, ok := wd.N.Get()
		if !ok {
			continue
		}
		if n == 0 || n < -53 || n > 53 {
			return semanticErr("BYDAY", "ordinal %d out of range", n)
		}
		if r.Freq != Monthly && r.Freq != Yearly {
			return semanticErr("BYDAY", "ordinal weekday %s is only allowed with FREQ=MONTHLY or FREQ=YEARLY, not %s", wd, r.Freq)
		}
		if r.Freq == Yearly && len(r.ByWeekNo) > 0 {
			return semanticErr("BYDAY", "ordinal weekday %s cannot be combined with BYWEEKNO", wd)
		}
	}

	if len(r.BySetPos) > 0 && len(r.ByWeekday) == 0 && len(r.ByMonthDay) == 0 &&
		len(r.ByMonth) == 0 && len(r.ByWeekNo) == 0 {
		return semanticErr("BYSETPOS", "requires at least one other BY* part")
	}
	return nil
}

func checkRange(key string, values []int, lo, hi int, signed bool) error {
	for _, v := range values {
		abs := v
		if signed && v < 0 {
			abs = -v
		}
		if abs < lo || abs > hi {
			return semanticErr(key, "value %d out of range", v)
		}
	}
	return nil
}
