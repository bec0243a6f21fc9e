package rrule

import (
	"iter"
	"sort"
	"time"

	"github.com/cyp0633/rrulecheck/internal/calendar"
)

// Iterator produces the occurrences of a rule on demand. It walks the rule
// one period (year, month, week, day, hour, minute or second, scaled by
// INTERVAL) at a time, filters the candidate days of each period, applies
// BYSETPOS and hands the survivors out in ascending order.
//
// An Iterator is not safe for concurrent use. Expanding the same rule
// again means creating a new Iterator.
type Iterator struct {
	freq     Frequency
	interval int
	wkst     int
	loc      *time.Location
	anchor   time.Time

	until    time.Time
	hasUntil bool
	// horizon ends generation once a whole period starts after it.
	horizon    time.Time
	hasHorizon bool
	left     int
	hasCount bool

	byMonth     [13]bool
	hasByMonth  bool
	byMonthList []int
	byWeekNo    []int
	byWeekday   [7]bool
	hasWeekday  bool
	byNth       []calendar.Nth
	byMonthDay  map[int]bool
	byNMonthDay map[int]bool
	bySetPos    []int

	// cursor
	year, month, day          int
	hour, minute, second      int
	weekday                   int
	anchorH, anchorM, anchorS int

	info *periodInfo

	buf     []time.Time
	pos     int
	last    time.Time
	emitted bool
	final   bool // the buffered period is the last one
	done    bool
}

// periodInfo caches the masks of the year and month the cursor is in.
type periodInfo struct {
	year      *calendar.Year
	weekNo    []bool
	nth       []bool
	lastYear  int
	lastMonth int
}

// Iterator validates the rule and returns a fresh generator positioned
// before the first occurrence.
func (r *Rule) Iterator() (*Iterator, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	it := &Iterator{
		freq:     r.Freq,
		interval: r.Interval,
		wkst:     int(r.WeekStart),
		loc:      r.Location(),
		anchor:   r.Anchor,
	}
	if u, ok := r.Until.Get(); ok {
		it.until, it.hasUntil = u, true
	}
	if n, ok := r.Count.Get(); ok {
		it.left, it.hasCount = n, true
	}

	a := r.Anchor
	it.year, it.month, it.day = a.Year(), int(a.Month()), a.Day()
	it.hour, it.minute, it.second = a.Hour(), a.Minute(), a.Second()
	it.anchorH, it.anchorM, it.anchorS = it.hour, it.minute, it.second
	it.weekday = calendar.FromTimeWeekday(a.Weekday())

	byMonth := r.ByMonth
	byMonthDay := r.ByMonthDay
	byWeekday := r.ByWeekday

	// Without a day-level filter the rule repeats on the anchor's own
	// calendar position.
	if len(r.ByWeekNo) == 0 && len(byMonthDay) == 0 && len(byWeekday) == 0 {
		switch r.Freq {
		case Yearly:
			if len(byMonth) == 0 {
				byMonth = []int{it.month}
			}
			byMonthDay = []int{it.day}
		case Monthly:
			byMonthDay = []int{it.day}
		case Weekly:
			byWeekday = []WeekdayNum{Day(Weekday(it.weekday))}
		}
	}

	for _, m := range byMonth {
		it.byMonth[m] = true
		it.hasByMonth = true
	}
	it.byMonthList = uniqueSorted(byMonth)
	it.byWeekNo = r.ByWeekNo

	for _, wd := range byWeekday {
		if n, ok := wd.N.Get(); ok && r.Freq <= Monthly {
			it.byNth = append(it.byNth, calendar.Nth{Weekday: int(wd.Weekday), N: n})
			continue
		}
		it.byWeekday[wd.Weekday] = true
		it.hasWeekday = true
	}

	if len(byMonthDay) > 0 {
		it.byMonthDay = make(map[int]bool)
		it.byNMonthDay = make(map[int]bool)
		for _, d := range byMonthDay {
			if d > 0 {
				it.byMonthDay[d] = true
			} else {
				it.byNMonthDay[d] = true
			}
		}
	}
	it.bySetPos = r.BySetPos

	it.info = &periodInfo{}
	it.rebuild()
	return it, nil
}

// horizonSlack covers wall-clock shifts between a period's nominal start
// and its earliest candidate instant.
const horizonSlack = 24 * time.Hour

// StopAfter bounds the work of the iterator: once the cursor reaches a
// period that starts after t the iterator is exhausted, even if no
// occurrence was ever produced. Occurrences after t may still be returned
// and are left to the caller to drop.
func (it *Iterator) StopAfter(t time.Time) {
	it.horizon, it.hasHorizon = t, true
}

// Next returns the next occurrence. The second result is false once the
// rule is exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	for !it.done {
		for it.pos < len(it.buf) {
			res := it.buf[it.pos]
			it.pos++
			if it.hasUntil && res.After(it.until) {
				it.done = true
				return time.Time{}, false
			}
			if res.Before(it.anchor) {
				continue
			}
			if it.emitted && !res.After(it.last) {
				// Wall-clock times that collapse onto the same instant,
				// e.g. inside a daylight saving gap.
				continue
			}
			if it.hasCount {
				if it.left == 0 {
					it.done = true
					return time.Time{}, false
				}
				it.left--
			}
			it.last, it.emitted = res, true
			return res, true
		}
		if it.final {
			it.done = true
			break
		}
		it.fill()
	}
	return time.Time{}, false
}

// All returns the remaining occurrences as a sequence. Breaking out of
// the loop simply stops generation.
func (it *Iterator) All() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for {
			t, ok := it.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// fill expands the period under the cursor into buf and advances the
// cursor to the next period.
func (it *Iterator) fill() {
	info := it.info
	y := info.year

	var start, end int
	switch it.freq {
	case Yearly:
		start, end = 0, y.Len
	case Monthly:
		start, end = y.MonthRange(it.month)
	case Weekly:
		// From the cursor day up to the day before the next week start;
		// may run into the next year.
		i := calendar.YearDayIndex(it.year, it.month, it.day)
		start = i
		for j := 0; j < 7; j++ {
			i++
			if y.WeekdayAt(i) == it.wkst {
				break
			}
		}
		end = i
	default:
		start = calendar.YearDayIndex(it.year, it.month, it.day)
		end = start + 1
	}

	if it.hasHorizon {
		first := time.Date(it.year, time.January, 1+start, 0, 0, 0, 0, it.loc)
		if it.freq.subDaily() {
			first = time.Date(it.year, time.January, 1+start, it.hour, it.minute, it.second, 0, it.loc)
		}
		if first.After(it.horizon.Add(horizonSlack)) {
			it.buf = it.buf[:0]
			it.pos = 0
			it.done = true
			return
		}
	}

	days := make([]int, 0, end-start)
	filtered := false
	for i := start; i < end; i++ {
		if it.excluded(i) {
			filtered = true
			continue
		}
		days = append(days, i)
	}

	var clock [3]int
	if it.freq.subDaily() {
		clock = [3]int{it.hour, it.minute, it.second}
	} else {
		clock = [3]int{it.anchorH, it.anchorM, it.anchorS}
	}
	at := func(i int) time.Time {
		return wallTime(it.year, time.January, 1+i, clock[0], clock[1], clock[2], it.loc)
	}

	it.buf = it.buf[:0]
	it.pos = 0
	if len(it.bySetPos) > 0 {
		for _, p := range it.bySetPos {
			idx := p - 1
			if p < 0 {
				idx = len(days) + p
			}
			if idx < 0 || idx >= len(days) {
				continue
			}
			res := at(days[idx])
			if !containsTime(it.buf, res) {
				it.buf = append(it.buf, res)
			}
		}
		sort.Slice(it.buf, func(a, b int) bool { return it.buf[a].Before(it.buf[b]) })
	} else {
		for _, i := range days {
			it.buf = append(it.buf, at(i))
		}
	}

	if !it.advance(filtered) {
		it.final = true
	}
}

// excluded reports whether day index i of the current year fails one of
// the day filters.
func (it *Iterator) excluded(i int) bool {
	info := it.info
	y := info.year
	if it.hasByMonth && !it.byMonth[y.Month(i)] {
		return true
	}
	if info.weekNo != nil && !info.weekNo[i] {
		return true
	}
	if it.hasWeekday && !it.byWeekday[y.WeekdayAt(i)] {
		return true
	}
	if info.nth != nil && (i >= len(info.nth) || !info.nth[i]) {
		return true
	}
	if it.byMonthDay != nil && !it.byMonthDay[y.MonthDay(i)] && !it.byNMonthDay[y.NegMonthDay(i)] {
		return true
	}
	return false
}

// advance moves the cursor by one interval. It returns false when the
// next period would lie beyond calendar.MaxYear.
func (it *Iterator) advance(filtered bool) bool {
	fixDay := false
	switch it.freq {
	case Yearly:
		it.year += it.interval
		if it.year > calendar.MaxYear {
			return false
		}
		it.rebuild()
		return true
	case Monthly:
		it.month += it.interval
		if it.month > 12 {
			div, mod := calendar.DivMod(it.month, 12)
			it.month = mod
			it.year += div
			if it.month == 0 {
				it.month = 12
				it.year--
			}
			if it.year > calendar.MaxYear {
				return false
			}
		}
		it.rebuild()
		return true
	case Weekly:
		if it.wkst > it.weekday {
			it.day += -(it.weekday + 1 + (6 - it.wkst)) + it.interval*7
		} else {
			it.day += -(it.weekday - it.wkst) + it.interval*7
		}
		it.weekday = it.wkst
		fixDay = true
	case Daily:
		it.day += it.interval
		fixDay = true
	case Hourly:
		if filtered {
			// Skip the rest of an excluded day, keeping the phase.
			it.hour += ((23 - it.hour) / it.interval) * it.interval
		}
		var ndays int
		ndays, it.hour = calendar.DivMod(it.hour+it.interval, 24)
		if ndays != 0 {
			it.day += ndays
			fixDay = true
		}
	case Minutely:
		if filtered {
			it.minute += ((1439 - (it.hour*60 + it.minute)) / it.interval) * it.interval
		}
		var nhours, ndays int
		nhours, it.minute = calendar.DivMod(it.minute+it.interval, 60)
		ndays, it.hour = calendar.DivMod(it.hour+nhours, 24)
		if ndays != 0 {
			it.day += ndays
			fixDay = true
		}
	case Secondly:
		if filtered {
			it.second += ((86399 - (it.hour*3600 + it.minute*60 + it.second)) / it.interval) * it.interval
		}
		var nminutes, nhours, ndays int
		nminutes, it.second = calendar.DivMod(it.second+it.interval, 60)
		nhours, it.minute = calendar.DivMod(it.minute+nminutes, 60)
		if nhours != 0 {
			ndays, it.hour = calendar.DivMod(it.hour+nhours, 24)
			if ndays != 0 {
				it.day += ndays
				fixDay = true
			}
		}
	}

	if fixDay && it.day > 28 {
		dim := calendar.DaysInMonth(it.year, it.month)
		if it.day > dim {
			for it.day > dim {
				it.day -= dim
				it.month++
				if it.month == 13 {
					it.month = 1
					it.year++
					if it.year > calendar.MaxYear {
						return false
					}
				}
				dim = calendar.DaysInMonth(it.year, it.month)
			}
			it.rebuild()
		}
	}
	return true
}

// rebuild refreshes the cached year layout and masks after the cursor
// moved to another year or month.
func (it *Iterator) rebuild() {
	info := it.info
	if info.year == nil || info.lastYear != it.year {
		info.year = calendar.NewYear(it.year)
		info.weekNo = nil
		if len(it.byWeekNo) > 0 {
			info.weekNo = calendar.WeekNoMask(info.year, it.byWeekNo, it.wkst)
		}
	}

	if len(it.byNth) > 0 && (it.month != info.lastMonth || it.year != info.lastYear) {
		var ranges [][2]int
		switch it.freq {
		case Yearly:
			if len(it.byMonthList) > 0 {
				for _, m := range it.byMonthList {
					first, last := info.year.MonthRange(m)
					ranges = append(ranges, [2]int{first, last})
				}
			} else {
				ranges = [][2]int{{0, info.year.Len}}
			}
		case Monthly:
			first, last := info.year.MonthRange(it.month)
			ranges = [][2]int{{first, last}}
		}
		if len(ranges) > 0 {
			info.nth = calendar.NthWeekdayMask(info.year, ranges, it.byNth)
		}
	}

	info.lastYear = it.year
	info.lastMonth = it.month
}

func containsTime(ts []time.Time, t time.Time) bool {
	for _, v := range ts {
		if v.Equal(t) {
			return true
		}
	}
	return false
}

func uniqueSorted(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	out := append([]int(nil), values...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// wallTime is time.Date, except that a wall clock skipped by a forward
// transition keeps its reading and takes the offset in effect after the
// transition, so 02:30 on a spring-forward night in New York is
// 02:30-04:00. The instant is the same one time.Date picks.
func wallTime(year int, month time.Month, day, hour, minute, second int, loc *time.Location) time.Time {
	t := time.Date(year, month, day, hour, minute, second, 0, loc)
	want := time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	if t.Hour() == want.Hour() && t.Minute() == want.Minute() && t.Day() == want.Day() {
		return t
	}
	name, off := t.Zone()
	// The requested reading taken at t's offset lands past the transition.
	after := time.Unix(want.Unix()-int64(off), 0).In(loc)
	if n, o := after.Zone(); o > off {
		name, off = n, o
	}
	return time.Date(want.Year(), want.Month(), want.Day(), hour, minute, second, 0, time.FixedZone(name, off))
}
