// Package ccerrors classifies the error conditions the optimizer and code
// generator can raise (spec §7) and renders them the way the driver prints
// diagnostics: a located line for analysis errors, an unlocated
// "internal compiler error" line for everything that signals a broken
// invariant.
package ccerrors

import (
	"fmt"
	"strings"
)

// Kind is one of the eight error categories the core distinguishes.
type Kind string

const (
	InvalidParameter Kind = "invalid-parameter"
	NotFound         Kind = "not-found"
	AlreadyExists    Kind = "already-exists"
	OutOfBounds      Kind = "out-of-bounds"
	InternalState    Kind = "internal-state"
	MemoryAllocation Kind = "memory-allocation"
	Analysis         Kind = "analysis"
	IteratorEnd      Kind = "iterator-end"
)

// Location is a source position; analysis errors carry one, internal
// errors never do.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Frame is one entry of a diagnostic's call-stack trail (e.g. the chain of
// inlined/hoisted sites a pass walked through before failing).
type Frame struct {
	Function string
	Location Location
}

// Error is the single error type every core function returns. Internal
// code never wraps it further; a function either returns nil or an *Error.
type Error struct {
	Kind     Kind
	Message  string
	Location Location
	Stack    []Frame
}

func (e *Error) Error() string {
	switch e.Kind {
	case Analysis:
		return fmt.Sprintf("%s: %s", e.Location, e.Message)
	case InternalState:
		return fmt.Sprintf("internal compiler error: %s", e.Message)
	default:
		if e.Location.File != "" {
			return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// WithStack appends call-site frames collected as the error propagates
// upward; no wrapped cause is tracked since every function in the core
// constructs its own Error rather than propagating a foreign one.
func (e *Error) WithStack(frames ...Frame) *Error {
	e.Stack = append(e.Stack, frames...)
	return e
}

func (e *Error) StackString() string {
	if len(e.Stack) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\ntrail:\n")
	for _, f := range e.Stack {
		if f.Function != "" {
			fmt.Fprintf(&sb, "  in %s (%s)\n", f.Function, f.Location)
		} else {
			fmt.Fprintf(&sb, "  %s\n", f.Location)
		}
	}
	return sb.String()
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewAnalysis(loc Location, format string, args ...interface{}) *Error {
	return &Error{Kind: Analysis, Message: fmt.Sprintf(format, args...), Location: loc}
}

func NewInternal(format string, args ...interface{}) *Error {
	return &Error{Kind: InternalState, Message: fmt.Sprintf(format, args...)}
}

// IsIteratorEnd reports whether err is the sentinel "expected end of
// iteration" condition, which callers treat as a normal loop exit rather
// than a failure.
func IsIteratorEnd(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == IteratorEnd
}

var ErrIteratorEnd = &Error{Kind: IteratorEnd, Message: "iterator exhausted"}
