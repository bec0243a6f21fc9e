package calendar

import "sort"

// Year describes the layout of one calendar year.
type Year struct {
	Year    int
	Len     int // 365 or 366
	NextLen int // length of the following year
	Weekday int // weekday of January 1

	// MonthStart[m-1] is the index of the first day of month m and
	// MonthStart[12] equals Len.
	MonthStart [13]int
}

// NewYear computes the layout of year.
func NewYear(year int) *Year {
	y := &Year{
		Year:    year,
		Len:     DaysInYear(year),
		NextLen: DaysInYear(year + 1),
		Weekday: WeekdayOf(year, 1, 1),
	}
	for m := 1; m <= 12; m++ {
		y.MonthStart[m] = y.MonthStart[m-1] + DaysInMonth(year, m)
	}
	return y
}

// Month returns the month (1-12) of day index i. Indexes past the end of
// the year belong to January.
func (y *Year) Month(i int) int {
	if i >= y.Len {
		return 1
	}
	return sort.SearchInts(y.MonthStart[1:], i+1) + 1
}

// MonthDay returns the day of month of index i.
func (y *Year) MonthDay(i int) int {
	if i >= y.Len {
		return i - y.Len + 1
	}
	return i - y.MonthStart[y.Month(i)-1] + 1
}

// NegMonthDay returns the day of month of index i counted from the end of
// the month: the last day is -1.
func (y *Year) NegMonthDay(i int) int {
	if i >= y.Len {
		return i - y.Len - 31
	}
	return i - y.MonthStart[y.Month(i)]
}

// WeekdayAt returns the weekday of index i. Negative indexes and indexes
// past the end of the year are valid.
func (y *Year) WeekdayAt(i int) int {
	return Mod(y.Weekday+i, 7)
}

// MonthRange returns the half-open index range [first, last) of month.
func (y *Year) MonthRange(month int) (int, int) {
	return y.MonthStart[month-1], y.MonthStart[month]
}
