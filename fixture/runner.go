package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"

	"github.com/cyp0633/rrulecheck/recurrence"
	"github.com/cyp0633/rrulecheck/rrule"
)

// ErrTruncated marks a case whose expansion was stopped by the engine's
// occurrence cap. Its output is incomplete and is never written.
var ErrTruncated = errors.New("fixture: expansion truncated by occurrence cap")

// Runner expands fixture files with an engine, several files at a time.
type Runner struct {
	engine  *recurrence.Engine
	workers int
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers sets how many files are processed concurrently.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner around engine.
func NewRunner(engine *recurrence.Engine, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:  engine,
		workers: 4,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate expands every case of the input fixtures at paths and writes the
// generated fixtures into outDir, keeping each file's path relative to the
// deepest directory shared by all inputs. A file with any failing case is
// reported and not written.
func (r *Runner) Generate(ctx context.Context, paths []string, outDir string) (*Report, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	outputs, err := outputPaths(paths, outDir)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, ModeGenerate, paths, func(path string) FileResult {
		return r.generateFile(path, outputs[path])
	})
}

// outputPaths maps every input path to its generated fixture path.
func outputPaths(paths []string, outDir string) (map[string]string, error) {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		abs[i] = a
	}

	var root string
	for i, a := range abs {
		dir := filepath.Dir(a)
		if i == 0 {
			root = dir
			continue
		}
		for !within(root, dir) {
			root = filepath.Dir(root)
		}
	}

	out := make(map[string]string, len(paths))
	seen := make(map[string]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, abs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to place %s under %s: %w", p, outDir, err)
		}
		target := filepath.Join(outDir, rel)
		if prev, ok := seen[target]; ok && prev != abs[i] {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, abs[i], target)
		}
		seen[target] = abs[i]
		out[p] = target
	}
	return out, nil
}

// within reports whether dir is root or lies below it.
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Verify expands the inputs recorded in the generated fixtures at paths and
// compares the results with their expected occurrences.
func (r *Runner) Verify(ctx context.Context, paths []string) (*Report, error) {
	return r.run(ctx, ModeVerify, paths, r.verifyFile)
}

func (r *Runner) run(ctx context.Context, mode Mode, paths []string, process func(string) FileResult) (*Report, error) {
	report := newReport(mode, paths)
	r.logger.Info("fixture run started", "run_id", report.RunID, "mode", mode, "files", len(paths), "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Files[i] = process(path)
			return nil
		})
	}
	// Workers only fail on cancellation, which is checked on ctx below.
	_ = g.Wait()
	report.Duration = time.Since(report.StartedAt)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	s := report.Summary()
	r.logger.Info("fixture run finished",
		"run_id", report.RunID,
		"mode", mode,
		"files", s.Files,
		"failed_files", s.FailedFiles,
		"cases", s.Cases,
		"failed_cases", s.FailedCases,
		"duration", report.Duration)
	return report, nil
}

func (r *Runner) expand(req recurrence.Request) mo.Result[*recurrence.Result] {
	res := mo.TupleToResult(r.engine.Expand(req))
	if res.IsOk() && res.MustGet().Capped {
		return mo.Err[*recurrence.Result](ErrTruncated)
	}
	return res
}

func (r *Runner) generateFile(path, out string) FileResult {
	fr := FileResult{Path: path}
	in, err := LoadInput(path)
	if err != nil {
		r.logger.Error("failed to load fixture", "path", path, "error", err)
		fr.Err = err
		return fr
	}

	generated := make([]GeneratedCase, 0, len(in.Cases))
	for i, c := range in.Cases {
		start := time.Now()
		cr := CaseResult{Index: i, Name: c.Label(i), Request: c.Request}
		res, err := r.expand(c.Request).Get()
		cr.Duration = time.Since(start)
		if err != nil {
			r.logger.Warn("case failed", "path", path, "case", cr.Name, "error", err)
			cr.Err = err
			fr.Cases = append(fr.Cases, cr)
			continue
		}
		cr.Occurrences = res.Len()
		fr.Cases = append(fr.Cases, cr)
		expected := res.Strings()
		if expected == nil {
			expected = []string{}
		}
		generated = append(generated, GeneratedCase{Input: c, Expected: expected})
	}
	if !fr.Passed() {
		return fr
	}

	data, err := MarshalGenerated(in, generated)
	if err != nil {
		fr.Err = err
		return fr
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		fr.Err = fmt.Errorf("failed to create output directory: %w", err)
		return fr
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fr.Err = fmt.Errorf("failed to write fixture: %w", err)
		return fr
	}
	fr.Output = out
	r.logger.Debug("wrote fixture", "path", out, "cases", len(generated))
	return fr
}

func (r *Runner) verifyFile(path string) FileResult {
	fr := FileResult{Path: path}
	exp, err := LoadExpectations(path)
	if err != nil {
		r.logger.Error("failed to load fixture", "path", path, "error", err)
		fr.Err = err
		return fr
	}

	for i, gc := range exp.Cases {
		start := time.Now()
		cr := CaseResult{Index: i, Name: gc.Input.Label(i), Request: gc.Input.Request}
		res, err := r.expand(gc.Input.Request).Get()
		cr.Duration = time.Since(start)
		if err != nil {
			cr.Err = err
		} else {
			cr.Occurrences = res.Len()
			cr.Mismatches = Compare(gc.Expected, res.Occurrences)
		}
		if !cr.Passed() {
			r.logger.Warn("case failed", "path", path, "case", cr.Name,
				"error", cr.Err, "mismatches", len(cr.Mismatches))
		}
		fr.Cases = append(fr.Cases, cr)
	}
	return fr
}

// Compare lines up expected occurrence strings with produced occurrences.
// A position differs by instant when the points in time differ (or the
// expected text is unreadable) and by format when only the rendering does.
func Compare(expected []string, got []time.Time) []Mismatch {
	var out []Mismatch
	n := max(len(expected), len(got))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(got):
			out = append(out, Mismatch{Index: i, Kind: MismatchMissing, Expected: expected[i]})
		case i >= len(expected):
			out = append(out, Mismatch{Index: i, Kind: MismatchExtra, Got: rrule.Format(got[i])})
		default:
			text := rrule.Format(got[i])
			want, err := rrule.ParseOccurrence(expected[i])
			if err != nil || !want.Equal(got[i]) {
				out = append(out, Mismatch{Index: i, Kind: MismatchInstant, Expected: expected[i], Got: text})
			} else if text != expected[i] {
				out = append(out, Mismatch{Index: i, Kind: MismatchFormat, Expected: expected[i], Got: text})
			}
		}
	}
	return out
}
