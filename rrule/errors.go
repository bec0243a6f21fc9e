package rrule

import (
	"errors"
	"fmt"
)

var (
	// ErrGrammar matches every *GrammarError.
	ErrGrammar = errors.New("rrule: grammar error")
	// ErrSemantic matches every *SemanticError.
	ErrSemantic = errors.New("rrule: semantic error")
	// ErrUnbounded matches every *UnboundedExpansionError.
	ErrUnbounded = errors.New("rrule: unbounded expansion")
)

// GrammarError reports text that could not be parsed: an unknown token, a
// malformed key/value pair or a value outside its allowed range.
type GrammarError struct {
	Key    string // rule part, e.g. "BYDAY"; empty for segment level errors
	Token  string // offending text
	Reason string
	Err    error // underlying parse error, if any
}

func (e *GrammarError) Error() string {
	msg := "rrule: "
	if e.Key != "" {
		msg += e.Key + ": "
	}
	msg += fmt.Sprintf("invalid value %q", e.Token)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GrammarError) Unwrap() error { return e.Err }

func (e *GrammarError) Is(target error) bool { return target == ErrGrammar }

// SemanticError reports a well-formed rule whose parts cannot be combined.
type SemanticError struct {
	Key    string
	Reason string
}

func (e *SemanticError) Error() string {
	if e.Key == "" {
		return "rrule: " + e.Reason
	}
	return "rrule: " + e.Key + ": " + e.Reason
}

func (e *SemanticError) Is(target error) bool { return target == ErrSemantic }

// UnboundedExpansionError is returned when an expansion has neither COUNT,
// UNTIL nor a bounding range and would therefore never terminate.
type UnboundedExpansionError struct {
	Rule string
}

func (e *UnboundedExpansionError) Error() string {
	if e.Rule == "" {
		return "rrule: expansion needs COUNT, UNTIL or a bounding range"
	}
	return fmt.Sprintf("rrule: %s: expansion needs COUNT, UNTIL or a bounding range", e.Rule)
}

func (e *UnboundedExpansionError) Is(target error) bool { return target == ErrUnbounded }

func grammarErr(key, token, reason string, err error) error {
	return &GrammarError{Key: key, Token: token, Reason: reason, Err: err}
}

func semanticErr(key, format string, args ...any) error {
	return &SemanticError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
