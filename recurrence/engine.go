package recurrence

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/rrulecheck/internal/reference"
	"github.com/cyp0633/rrulecheck/rrule"
)

var (
	// ErrInvalidRequest is returned for requests missing RRULE or DTSTART.
	ErrInvalidRequest = errors.New("recurrence: invalid request")
	// ErrUnknownTimezone is returned when a zone name cannot be resolved.
	ErrUnknownTimezone = errors.New("recurrence: unknown timezone")
	// ErrUnknownEngine is returned by ExpanderByName.
	ErrUnknownEngine = errors.New("recurrence: unknown engine")
)

// Expander turns a parsed rule into occurrences. A positive limit caps the
// result and lifts the requirement for a terminating rule.
type Expander interface {
	Expand(rule *rrule.Rule, rng mo.Option[rrule.Range], limit int) ([]time.Time, error)
}

// NativeExpander expands with the rrule package.
type NativeExpander struct{}

func (NativeExpander) Expand(rule *rrule.Rule, rng mo.Option[rrule.Range], limit int) ([]time.Time, error) {
	if limit <= 0 {
		return rrule.Expand(rule, rng)
	}
	it, err := rule.Iterator()
	if err != nil {
		return nil, err
	}
	seq := it.All()
	if r, ok := rng.Get(); ok {
		it.StopAfter(r.End)
		seq = rrule.Within(seq, r)
	}
	return slices.Collect(rrule.Take(seq, limit)), nil
}

// Engine names accepted by ExpanderByName.
const (
	EngineNative    = "native"
	EngineReference = "reference"
)

// ExpanderByName returns the expander for "native" (the default) or
// "reference".
func ExpanderByName(name string) (Expander, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineNative:
		return NativeExpander{}, nil
	case EngineReference:
		return reference.Expander{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// Engine resolves requests and expands them, optionally memoizing results.
// It is safe for concurrent use.
type Engine struct {
	config   EngineConfig
	cache    *ResultCache
	zones    rrule.ZoneResolver
	expander Expander
	logger   *slog.Logger
}

// Option represents a configuration option for the Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithZoneResolver replaces the system time zone database.
func WithZoneResolver(zones rrule.ZoneResolver) Option {
	return func(e *Engine) {
		if zones != nil {
			e.zones = zones
		}
	}
}

// WithExpander selects the expansion backend.
func WithExpander(x Expander) Option {
	return func(e *Engine) {
		if x != nil {
			e.expander = x
		}
	}
}

// NewEngine creates an engine with DefaultEngineConfig.
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig, opts...)
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		config:   config,
		zones:    rrule.SystemZones,
		expander: NativeExpander{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if config.CacheEnabled {
		e.cache = NewResultCache(config.CacheConfig)
	}
	return e
}

// Prepare resolves the zone, anchor and range of req and parses its rule.
// Anchor and range values without zone information take the request's
// zone.
func (e *Engine) Prepare(req Request) (*Prepared, error) {
	if strings.TrimSpace(req.RRule) == "" {
		return nil, fmt.Errorf("%w: rrule is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.DTStart) == "" {
		return nil, fmt.Errorf("%w: dtstart is required", ErrInvalidRequest)
	}

	zone := req.Timezone
	if strings.TrimSpace(zone) == "" {
		zone = e.config.DefaultTimezone
	}
	loc, err := e.zones.Zone(zone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTimezone, zone, err)
	}

	anchor, err := rrule.ParseInstant(req.DTStart, loc)
	if err != nil {
		var ge *rrule.GrammarError
		if errors.As(err, &ge) && ge.Key == "" {
			ge.Key = "DTSTART"
		}
		return nil, err
	}

	rng := mo.None[rrule.Range]()
	if req.Range != nil {
		r, err := rrule.ResolveRange(req.Range.Start, req.Range.End, loc)
		if err != nil {
			return nil, err
		}
		rng = mo.Some(r)
	}

	opts := []rrule.ParseOption{rrule.WithLocation(loc)}
	if e.config.StrictFrequency {
		opts = append(opts, rrule.WithStrictFrequency())
	}
	rule, err := rrule.Parse(req.RRule, anchor, opts...)
	if err != nil {
		return nil, err
	}

	return &Prepared{Location: loc, Rule: rule, Range: rng}, nil
}

// Expand produces the occurrences of req.
func (e *Engine) Expand(req Request) (*Result, error) {
	var key string
	if e.cache != nil {
		key = cacheKey(fmt.Sprintf("%T", e.expander), e.config.MaxOccurrences,
			e.config.StrictFrequency, e.config.DefaultTimezone, req)
		if entry, ok := e.cache.Get(key); ok {
			e.logger.Debug("expansion cache hit", "rrule", req.RRule, "dtstart", req.DTStart)
			return &Result{
				Request:     req,
				Occurrences: append([]time.Time(nil), entry.Occurrences...),
				Capped:      entry.Capped,
			}, nil
		}
	}

	p, err := e.Prepare(req)
	if err != nil {
		e.logger.Debug("request rejected", "rrule", req.RRule, "dtstart", req.DTStart, "error", err)
		return nil, err
	}

	limit := e.config.MaxOccurrences
	probe := 0
	if limit > 0 {
		// One extra occurrence tells whether the cap cut the rule short.
		probe = limit + 1
	}
	occurrences, err := e.expander.Expand(p.Rule, p.Range, probe)
	if err != nil {
		return nil, err
	}
	capped := false
	if limit > 0 && len(occurrences) > limit {
		occurrences = occurrences[:limit]
		capped = true
		e.logger.Warn("expansion capped", "rrule", req.RRule, "limit", limit)
	}

	e.logger.Debug("expanded request",
		"rrule", req.RRule,
		"dtstart", req.DTStart,
		"timezone", p.Location.String(),
		"occurrences", len(occurrences))

	if e.cache != nil {
		e.cache.Set(key, occurrences, capped)
	}
	return &Result{Request: req, Occurrences: occurrences, Capped: capped}, nil
}

// HasOccurrenceInRange reports whether the rule of req has at least one
// occurrence in [start, end], further restricted by the request's own range
// if it has one. Generation stops at the first hit.
func (e *Engine) HasOccurrenceInRange(req Request, start, end time.Time) (bool, error) {
	p, err := e.Prepare(req)
	if err != nil {
		return false, err
	}

	window := rrule.Range{Start: start, End: end}
	if r, ok := p.Range.Get(); ok {
		if r.Start.After(window.Start) {
			window.Start = r.Start
		}
		if r.End.Before(window.End) {
			window.End = r.End
		}
	}
	if window.End.Before(window.Start) {
		return false, nil
	}

	occurrences, err := e.expander.Expand(p.Rule, mo.Some(window), 1)
	if err != nil {
		return false, fmt.Errorf("failed to check occurrences: %w", err)
	}
	return len(occurrences) > 0, nil
}

// CacheStats reports the result cache occupancy. The second result is
// false when caching is disabled.
func (e *Engine) CacheStats() (CacheStats, bool) {
	if e.cache == nil {
		return CacheStats{}, false
	}
	return e.cache.Stats(), true
}

// Close releases the cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
