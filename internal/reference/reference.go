// Package reference expands rules with github.com/teambition/rrule-go, a Go
// port of python-dateutil. It backs "--engine reference" and serves as an
// independent oracle in cross-check tests.
package reference

import (
	"fmt"
	"time"

	"github.com/samber/mo"
	rrulego "github.com/teambition/rrule-go"

	"github.com/cyp0633/rrulecheck/rrule"
)

var frequencies = [...]rrulego.Frequency{
	rrule.Yearly:   rrulego.YEARLY,
	rrule.Monthly:  rrulego.MONTHLY,
	rrule.Weekly:   rrulego.WEEKLY,
	rrule.Daily:    rrulego.DAILY,
	rrule.Hourly:   rrulego.HOURLY,
	rrule.Minutely: rrulego.MINUTELY,
	rrule.Secondly: rrulego.SECONDLY,
}

var weekdays = [...]rrulego.Weekday{
	rrule.MO: rrulego.MO,
	rrule.TU: rrulego.TU,
	rrule.WE: rrulego.WE,
	rrule.TH: rrulego.TH,
	rrule.FR: rrulego.FR,
	rrule.SA: rrulego.SA,
	rrule.SU: rrulego.SU,
}

// Options converts a validated rule into rrule-go options. COUNT=0 has no
// rrule-go equivalent and is handled by Expand.
func Options(r *rrule.Rule) rrulego.ROption {
	opt := rrulego.ROption{
		Freq:       frequencies[r.Freq],
		Dtstart:    r.Anchor,
		Interval:   r.Interval,
		Wkst:       weekdays[r.WeekStart],
		Bysetpos:   r.BySetPos,
		Bymonth:    r.ByMonth,
		Bymonthday: r.ByMonthDay,
		Byweekno:   r.ByWeekNo,
	}
	if n, ok := r.Count.Get(); ok {
		opt.Count = n
	}
	if u, ok := r.Until.Get(); ok {
		opt.Until = u
	}
	for _, wd := range r.ByWeekday {
		day := weekdays[wd.Weekday]
		if n, ok := wd.N.Get(); ok {
			day = day.Nth(n)
		}
		opt.Byweekday = append(opt.Byweekday, day)
	}
	return opt
}

// Expander implements the same contract as the native engine on top of
// rrule-go.
type Expander struct{}

// Expand returns the occurrences of rule within rng. A positive limit caps
// the result and allows open-ended rules without a range.
func (Expander) Expand(rule *rrule.Rule, rng mo.Option[rrule.Range], limit int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	bounds, hasRange := rng.Get()
	if !hasRange && !rule.Bounded() && limit <= 0 {
		return nil, &rrule.UnboundedExpansionError{Rule: rule.String()}
	}
	if n, ok := rule.Count.Get(); ok && n == 0 {
		return nil, nil
	}

	rr, err := rrulego.NewRRule(Options(rule))
	if err != nil {
		return nil, fmt.Errorf("reference: %s: %w", rule, err)
	}

	var out []time.Time
	next := rr.Iterator()
	for {
		if limit > 0 && len(out) >= limit {
			break
		}
		t, ok := next()
		if !ok {
			break
		}
		if hasRange {
			if t.After(bounds.End) {
				break
			}
			if t.Before(bounds.Start) {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}
