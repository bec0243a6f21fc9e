package recurrence

import (
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/rrulecheck/rrule"
)

// Request is the record a caller hands to the engine: RRULE text, anchor,
// zone name and an optional bounding range. Field names match the fixture
// YAML layout.
type Request struct {
	RRule    string     `yaml:"rrule"`              // RRULE text, with or without "RRULE:" prefix
	DTStart  string     `yaml:"dtstart"`            // anchor date-time
	Timezone string     `yaml:"timezone,omitempty"` // IANA name; empty means the engine default
	Range    *RangeSpec `yaml:"range,omitempty"`    // optional inclusive window
}

// RangeSpec is the textual form of a bounding range.
type RangeSpec struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Prepared is a request with its zone, anchor, range and rule resolved.
type Prepared struct {
	Location *time.Location
	Rule     *rrule.Rule
	Range    mo.Option[rrule.Range]
}

// Result holds the occurrences produced for a request.
type Result struct {
	Request     Request
	Occurrences []time.Time
	// Capped is set when MaxOccurrences stopped the expansion early.
	Capped bool
}

// Strings renders the occurrences in canonical form.
func (r *Result) Strings() []string {
	return rrule.FormatAll(r.Occurrences)
}

// Len returns the number of occurrences.
func (r *Result) Len() int {
	return len(r.Occurrences)
}
