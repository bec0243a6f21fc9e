package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyp0633/rrulecheck/recurrence"
)

// ExpandOptions holds the flags of the expand command.
type ExpandOptions struct {
	RRule    string
	DTStart  string
	Timezone string
	Start    string
	End      string
	ICS      string
	Limit    int
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExpandOptions{}

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the occurrences of a recurrence rule",
		Long: `Expand a single rule given with --rrule and --dtstart, or every
recurring VEVENT and VTODO of an iCalendar file given with --ics.

Occurrences are printed one per line in canonical ISO-8601 form.
Open-ended rules need a --start/--end range or a --limit.`,
		Example: `  rrulecheck expand --rrule "FREQ=MONTHLY;BYDAY=-1FR;COUNT=3" --dtstart 2024-01-01T10:00:00 --tz Europe/Berlin
  rrulecheck expand --ics calendar.ics --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.RRule, "rrule", "", "recurrence rule, with or without the RRULE: prefix")
	cmd.Flags().StringVar(&opts.DTStart, "dtstart", "", "anchor date-time")
	cmd.Flags().StringVar(&opts.Timezone, "tz", "", "IANA zone of the anchor (default from --timezone)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "inclusive range start")
	cmd.Flags().StringVar(&opts.End, "end", "", "inclusive range end")
	cmd.Flags().StringVar(&opts.ICS, "ics", "", "read rules from an iCalendar file")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many occurrences")
	cmd.MarkFlagsMutuallyExclusive("ics", "rrule")
	cmd.MarkFlagsMutuallyExclusive("ics", "dtstart")
	cmd.MarkFlagsRequiredTogether("start", "end")

	return cmd
}

func runExpand(rootOpts *RootOptions, opts *ExpandOptions, out io.Writer) error {
	if opts.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	var rng *recurrence.RangeSpec
	if opts.Start != "" {
		rng = &recurrence.RangeSpec{Start: opts.Start, End: opts.End}
	}

	var requests []recurrence.Request
	if opts.ICS != "" {
		f, err := os.Open(opts.ICS)
		if err != nil {
			return fmt.Errorf("failed to open calendar: %w", err)
		}
		requests, err = recurrence.DecodeRequests(f)
		f.Close()
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			return fmt.Errorf("%s: %w", opts.ICS, recurrence.ErrNoRecurrence)
		}
		for i := range requests {
			if opts.Timezone != "" {
				requests[i].Timezone = opts.Timezone
			}
			requests[i].Range = rng
		}
	} else {
		if opts.RRule == "" || opts.DTStart == "" {
			return errors.New("either --ics or both --rrule and --dtstart are required")
		}
		requests = []recurrence.Request{{
			RRule:    opts.RRule,
			DTStart:  opts.DTStart,
			Timezone: opts.Timezone,
			Range:    rng,
		}}
	}

	ec := rootOpts.Config.EngineConfig()
	ec.MaxOccurrences = opts.Limit
	x, err := recurrence.ExpanderByName(rootOpts.Config.Engine)
	if err != nil {
		return err
	}
	engine := recurrence.NewEngineWithConfig(ec,
		recurrence.WithExpander(x),
		recurrence.WithLogger(rootOpts.Logger))
	defer engine.Close()

	for i, req := range requests {
		res, err := engine.Expand(req)
		if err != nil {
			return err
		}
		if len(requests) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "# RRULE:%s DTSTART:%s\n", req.RRule, req.DTStart)
		}
		for _, s := range res.Strings() {
			fmt.Fprintln(out, s)
		}
	}
	return nil
}
