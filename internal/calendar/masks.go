package calendar

// Nth is a weekday qualified by its position inside a range of days:
// N = 1 is the first such weekday, N = -1 the last.
type Nth struct {
	Weekday int
	N       int
}

// WeekNoMask marks the days of y (plus the 7 padding days into the next
// year) that fall in one of the requested week numbers. Week 1 is the
// first week, starting on wkst, that has at least four days in the year;
// negative numbers count back from the last week of the year. Days before
// week 1 belong to the last week of the previous year.
func WeekNoMask(y *Year, weeknos []int, wkst int) []bool {
	mask := make([]bool, y.Len+7)

	no1wkst := Mod(7-y.Weekday+wkst, 7)
	firstwkst := no1wkst
	var wyearlen int
	if no1wkst >= 4 {
		no1wkst = 0
		wyearlen = y.Len + Mod(y.Weekday-wkst, 7)
	} else {
		wyearlen = y.Len - no1wkst
	}
	div, mod := DivMod(wyearlen, 7)
	numweeks := div + mod/4

	markWeek := func(i int) {
		for j := 0; j < 7; j++ {
			mask[i] = true
			i++
			if y.WeekdayAt(i) == wkst {
				break
			}
		}
	}

	hasWeek := func(n int) bool {
		for _, w := range weeknos {
			if w == n {
				return true
			}
		}
		return false
	}

	for _, n := range weeknos {
		if n < 0 {
			n += numweeks + 1
		}
		if n <= 0 || n > numweeks {
			continue
		}
		var i int
		if n > 1 {
			i = no1wkst + (n-1)*7
			if no1wkst != firstwkst {
				i -= 7 - firstwkst
			}
		} else {
			i = no1wkst
		}
		markWeek(i)
	}

	if hasWeek(1) {
		// Week 1 of next year may start inside this year.
		i := no1wkst + numweeks*7
		if no1wkst != firstwkst {
			i -= 7 - firstwkst
		}
		if i < y.Len {
			markWeek(i)
		}
	}

	if no1wkst != 0 {
		// The leading days belong to the last week of the previous year.
		var lnumweeks int
		if !hasWeek(-1) {
			lyearweekday := WeekdayOf(y.Year-1, 1, 1)
			lno1wkst := Mod(7-lyearweekday+wkst, 7)
			lyearlen := DaysInYear(y.Year - 1)
			if lno1wkst >= 4 {
				lnumweeks = 52 + Mod(lyearlen+Mod(lyearweekday-wkst, 7), 7)/4
			} else {
				lnumweeks = 52 + Mod(y.Len-no1wkst, 7)/4
			}
		} else {
			lnumweeks = -1
		}
		if hasWeek(lnumweeks) {
			for i := 0; i < no1wkst; i++ {
				mask[i] = true
			}
		}
	}
	return mask
}

// NthWeekdayMask marks, inside each half-open range [first, last) of day
// indexes of y, the days selected by the nth weekday list.
func NthWeekdayMask(y *Year, ranges [][2]int, nths []Nth) []bool {
	mask := make([]bool, y.Len)
	for _, r := range ranges {
		first, last := r[0], r[1]-1
		for _, nth := range nths {
			var i int
			if nth.N < 0 {
				i = last + (nth.N+1)*7
				i -= Mod(y.WeekdayAt(i)-nth.Weekday, 7)
			} else {
				i = first + (nth.N-1)*7
				i += Mod(7-y.WeekdayAt(i)+nth.Weekday, 7)
			}
			if first <= i && i <= last {
				mask[i] = true
			}
		}
	}
	return mask
}
