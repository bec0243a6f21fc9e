package fixture

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/cyp0633/rrulecheck/recurrence"
)

// Mode tells which operation produced a report.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeVerify   Mode = "verify"
)

// MismatchKind classifies a difference between expected and produced
// occurrences.
type MismatchKind string

const (
	MismatchInstant MismatchKind = "instant" // different point in time
	MismatchFormat  MismatchKind = "format"  // same instant, different text
	MismatchMissing MismatchKind = "missing" // expected but not produced
	MismatchExtra   MismatchKind = "extra"   // produced but not expected
)

// Mismatch is one differing position of an occurrence list.
type Mismatch struct {
	Index    int
	Kind     MismatchKind
	Expected string
	Got      string
}

func (m Mismatch) String() string {
	switch m.Kind {
	case MismatchMissing:
		return fmt.Sprintf("#%d missing: expected %s", m.Index, m.Expected)
	case MismatchExtra:
		return fmt.Sprintf("#%d extra: got %s", m.Index, m.Got)
	default:
		return fmt.Sprintf("#%d %s: expected %s, got %s", m.Index, m.Kind, m.Expected, m.Got)
	}
}

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Index       int
	Name        string
	Request     recurrence.Request
	Occurrences int
	Err         error
	Mismatches  []Mismatch
	Duration    time.Duration
}

// Passed reports whether the case expanded and matched its expectations.
func (c CaseResult) Passed() bool {
	return c.Err == nil && len(c.Mismatches) == 0
}

// FileResult is the outcome of one fixture file.
type FileResult struct {
	Path   string
	Output string // generated file, empty when nothing was written
	Err    error  // file level failure, e.g. unreadable or invalid YAML
	Cases  []CaseResult
}

// Passed reports whether the file and all of its cases passed.
func (f FileResult) Passed() bool {
	if f.Err != nil {
		return false
	}
	for _, c := range f.Cases {
		if !c.Passed() {
			return false
		}
	}
	return true
}

// Report collects the results of a generate or verify run.
type Report struct {
	RunID     uuid.UUID
	Mode      Mode
	StartedAt time.Time
	Duration  time.Duration
	Files     []FileResult
}

// Summary holds aggregate counts of a report.
type Summary struct {
	Files       int
	FailedFiles int
	Cases       int
	FailedCases int
	Occurrences int
}

func newReport(mode Mode, paths []string) *Report {
	r := &Report{
		RunID:     uuid.New(),
		Mode:      mode,
		StartedAt: time.Now(),
		Files:     make([]FileResult, len(paths)),
	}
	for i, p := range paths {
		r.Files[i].Path = p
	}
	return r
}

// Summary computes aggregate counts.
func (r *Report) Summary() Summary {
	var s Summary
	for _, f := range r.Files {
		s.Files++
		if !f.Passed() {
			s.FailedFiles++
		}
		for _, c := range f.Cases {
			s.Cases++
			s.Occurrences += c.Occurrences
			if !c.Passed() {
				s.FailedCases++
			}
		}
	}
	return s
}

// Failed reports whether any file or case failed.
func (r *Report) Failed() bool {
	return r.Summary().FailedFiles > 0
}

// WriteText renders a human readable report. The output contains no run
// identifiers or timings so that it is stable across runs.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Passed() {
			fmt.Fprintf(&b, "ok   %s (%d cases", f.Path, len(f.Cases))
			if f.Output != "" {
				fmt.Fprintf(&b, ", wrote %s", f.Output)
			}
			b.WriteString(")\n")
			continue
		}
		fmt.Fprintf(&b, "FAIL %s\n", f.Path)
		if f.Err != nil {
			fmt.Fprintf(&b, "     %v\n", f.Err)
		}
		for _, c := range f.Cases {
			if c.Passed() {
				continue
			}
			fmt.Fprintf(&b, "     case %d %q", c.Index, c.Name)
			if c.Err != nil {
				fmt.Fprintf(&b, ": %v\n", c.Err)
				continue
			}
			fmt.Fprintf(&b, ": %d mismatches\n", len(c.Mismatches))
			for _, m := range c.Mismatches {
				fmt.Fprintf(&b, "       %s\n", m)
			}
		}
	}

	s := r.Summary()
	fmt.Fprintf(&b, "\n%s: %d/%d files passed, %d/%d cases passed, %d occurrences\n",
		r.Mode, s.Files-s.FailedFiles, s.Files, s.Cases-s.FailedCases, s.Cases, s.Occurrences)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJUnit renders the report as JUnit XML: one testsuite per file and
// one testcase per fixture case.
func (r *Report) WriteJUnit(w io.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	s := r.Summary()
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", "rrulecheck "+string(r.Mode))
	root.CreateAttr("tests", strconv.Itoa(s.Cases))
	root.CreateAttr("failures", strconv.Itoa(s.FailedCases))
	root.CreateAttr("time", seconds(r.Duration))

	for i, f := range r.Files {
		suite := root.CreateElement("testsuite")
		suite.CreateAttr("id", strconv.Itoa(i))
		suite.CreateAttr("name", f.Path)
		suite.CreateAttr("timestamp", r.StartedAt.UTC().Format(time.RFC3339))

		props := suite.CreateElement("properties")
		prop := props.CreateElement("property")
		prop.CreateAttr("name", "run_id")
		prop.CreateAttr("value", r.RunID.String())

		failures, errs := 0, 0
		var total time.Duration
		if f.Err != nil {
			errs++
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", f.Path)
			tc.CreateAttr("name", "load")
			e := tc.CreateElement("error")
			e.CreateAttr("message", f.Err.Error())
			e.CreateAttr("type", "fixture")
		}
		for _, c := range f.Cases {
			total += c.Duration
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", f.Path)
			tc.CreateAttr("name", c.Name)
			tc.CreateAttr("time", seconds(c.Duration))
			switch {
			case c.Err != nil:
				errs++
				e := tc.CreateElement("error")
				e.CreateAttr("message", c.Err.Error())
				e.CreateAttr("type", "expansion")
				e.SetText(c.Request.RRule)
			case len(c.Mismatches) > 0:
				failures++
				e := tc.CreateElement("failure")
				e.CreateAttr("message", fmt.Sprintf("%d mismatching occurrences", len(c.Mismatches)))
				e.CreateAttr("type", "mismatch")
				lines := make([]string, len(c.Mismatches))
				for j, m := range c.Mismatches {
					lines[j] = m.String()
				}
				e.SetText(strings.Join(lines, "\n"))
			}
		}
		suite.CreateAttr("tests", strconv.Itoa(len(f.Cases)))
		suite.CreateAttr("failures", strconv.Itoa(failures))
		suite.CreateAttr("errors", strconv.Itoa(errs))
		suite.CreateAttr("time", seconds(total))
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
