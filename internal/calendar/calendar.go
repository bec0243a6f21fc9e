// Package calendar implements the Gregorian period arithmetic used by the
// recurrence generator: year layouts, month boundaries and the day masks
// for week numbers and nth weekdays.
//
// Days inside a year are addressed by a zero-based index relative to
// January 1. Indexes past the end of the year continue into January of the
// following year, which lets a week that straddles New Year be expressed
// without switching years. Weekdays are numbered Monday = 0 through
// Sunday = 6.
package calendar

import "time"

// MaxYear is the last year the generator will step into.
const MaxYear = 9999

// Weekday numbers, Monday first.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Mod returns the non-negative remainder of a divided by b.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// DivMod returns floored quotient and non-negative remainder.
func DivMod(a, b int) (int, int) {
	q := a / b
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		q--
		r += b
	}
	return q, r
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

var monthDays = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the length of month (1-12) in year.
func DaysInMonth(year, month int) int {
	if month == 2 && IsLeap(year) {
		return 29
	}
	return monthDays[month]
}

// WeekdayOf returns the Monday-based weekday of the given date.
func WeekdayOf(year, month, day int) int {
	wd := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday()
	return FromTimeWeekday(wd)
}

// FromTimeWeekday converts a time.Weekday (Sunday = 0) to Monday = 0.
func FromTimeWeekday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// ToTimeWeekday converts a Monday-based weekday to time.Weekday.
func ToTimeWeekday(wd int) time.Weekday {
	return time.Weekday((wd + 1) % 7)
}

// YearDayIndex returns the zero-based index of the date within its year.
func YearDayIndex(year, month, day int) int {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).YearDay() - 1
}
