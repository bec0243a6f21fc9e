package rrule

import (
	"iter"
	"time"

	"github.com/samber/mo"
)

// Expand returns the occurrences of rule, optionally truncated to rng.
//
// With a range, occurrences before rng.Start are dropped and generation
// stops once generation passes rng.End, whether or not an occurrence was
// produced on the way. Without a range the rule
// itself must terminate through COUNT or UNTIL.
func Expand(rule *Rule, rng mo.Option[Range]) ([]time.Time, error) {
	seq, err := Occurrences(rule, rng)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for t := range seq {
		out = append(out, t)
	}
	return out, nil
}

// Occurrences is the lazy form of Expand.
func Occurrences(rule *Rule, rng mo.Option[Range]) (iter.Seq[time.Time], error) {
	it, err := rule.Iterator()
	if err != nil {
		return nil, err
	}
	r, ok := rng.Get()
	if !ok {
		if !rule.Bounded() {
			return nil, &UnboundedExpansionError{Rule: rule.String()}
		}
		return it.All(), nil
	}
	it.StopAfter(r.End)
	return Within(it.All(), r), nil
}

// Within filters seq to the inclusive range r and stops pulling from seq
// once an element lies past r.End.
func Within(seq iter.Seq[time.Time], r Range) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for t := range seq {
			if t.After(r.End) {
				return
			}
			if t.Before(r.Start) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Take caps seq at n elements.
func Take(seq iter.Seq[time.Time], n int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if n <= 0 {
			return
		}
		i := 0
		for t := range seq {
			if !yield(t) {
				return
			}
			i++
			if i >= n {
				return
			}
		}
	}
}

// Between is a convenience for Expand with a range.
func Between(rule *Rule, start, end time.Time) ([]time.Time, error) {
	return Expand(rule, mo.Some(Range{Start: start, End: end}))
}
