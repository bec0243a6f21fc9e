/*
Package rrule expands RFC 5545 recurrence rules into concrete instants.

# Basic Usage

	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule, err := rrule.Parse("FREQ=MONTHLY;BYDAY=1MO;COUNT=3", anchor)
	if err != nil {
		return err
	}
	occurrences, err := rrule.Expand(rule, mo.None[rrule.Range]())
	for _, t := range occurrences {
		fmt.Println(rrule.Format(t))
	}

# Supported Parts

FREQ, INTERVAL, COUNT, UNTIL, BYDAY, BYMONTHDAY, BYMONTH, BYWEEKNO,
BYSETPOS and WKST. Other parts are ignored.

# Termination

A rule without COUNT or UNTIL is open ended. Expand refuses to run it
without a bounding range; Occurrences and Iterator hand out a lazy
sequence and leave it to the caller to stop pulling, for example with
Take.

# Canonical Form

Format writes instants as 2006-01-02T15:04:05-07:00. A UTC instant is
written with +00:00, matching Python's datetime.isoformat, so generated
fixtures can be compared byte for byte.

# Errors

Parse and Expand return *GrammarError, *SemanticError or
*UnboundedExpansionError. Use errors.Is with ErrGrammar, ErrSemantic and
ErrUnbounded to classify them.
*/
package rrule
