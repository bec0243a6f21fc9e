package recurrence

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-ical"
)

// ErrNoRecurrence is returned for components without an RRULE.
var ErrNoRecurrence = errors.New("recurrence: component has no RRULE")

// RequestFromComponent builds a request from the RRULE and DTSTART of an
// iCalendar component. A TZID parameter on DTSTART becomes the request's
// timezone; a UTC DTSTART keeps its trailing "Z".
func RequestFromComponent(comp *ical.Component) (Request, error) {
	rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
	if rruleProp == nil || strings.TrimSpace(rruleProp.Value) == "" {
		return Request{}, ErrNoRecurrence
	}
	dtstartProp := comp.Props.Get(ical.PropDateTimeStart)
	if dtstartProp == nil || strings.TrimSpace(dtstartProp.Value) == "" {
		return Request{}, fmt.Errorf("%w: %s without DTSTART", ErrInvalidRequest, comp.Name)
	}

	return Request{
		RRule:    rruleProp.Value,
		DTStart:  dtstartProp.Value,
		Timezone: dtstartProp.Params.Get("TZID"),
	}, nil
}

// DecodeRequests reads every calendar in r and returns a request for each
// recurring VEVENT or VTODO, in document order.
func DecodeRequests(r io.Reader) ([]Request, error) {
	dec := ical.NewDecoder(r)

	var requests []Request
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent && child.Name != ical.CompToDo {
				continue
			}
			req, err := RequestFromComponent(child)
			if errors.Is(err, ErrNoRecurrence) {
				continue
			}
			if err != nil {
				return nil, err
			}
			requests = append(requests, req)
		}
	}
	return requests, nil
}
