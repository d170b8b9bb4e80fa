// Package diag collects structured diagnostics across the tokenizer, parser,
// compiler, and linker stages, following the scanner.ErrorList idiom the
// teacher pipeline uses (itself adapted from go/scanner): errors accumulate
// in a list instead of a single appended string, and the list as a whole is
// exposed as a single error value for the stage's return signature.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mna/bktk/lang/token"
)

// Kind classifies a Diagnostic per spec.md §7.
type Kind int8

//nolint:revive
const (
	Lexical Kind = iota
	Syntactic
	Semantic
	Resource
	IO
	Reference
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntactic"
	case Semantic:
		return "semantic"
	case Resource:
		return "resource"
	case IO:
		return "io"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Diagnostic is a single reported error with its kind, source position (when
// known), and message.
type Diagnostic struct {
	Kind    Kind
	Pos     token.Position
	Message string
}

func (d Diagnostic) Error() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// List accumulates Diagnostics across a compilation stage. The zero value is
// ready to use.
type List struct {
	items []Diagnostic
}

// Add appends a new diagnostic to the list.
func (l *List) Add(kind Kind, pos token.Position, format string, args ...any) {
	l.items = append(l.items, Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Len reports the number of accumulated diagnostics.
func (l *List) Len() int { return len(l.items) }

// All returns the accumulated diagnostics in report order (after Sort, in
// position order).
func (l *List) All() []Diagnostic { return l.items }

// Sort orders the diagnostics by line, then column, then insertion order
// (stable) for deterministic reporting.
func (l *List) Sort() {
	sort.SliceStable(l.items, func(i, j int) bool {
		a, b := l.items[i].Pos, l.items[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}

// Err returns nil if the list is empty, otherwise a non-nil error whose
// concrete type is *List, which implements Unwrap() []error so callers can
// use errors.Is/errors.As over individual diagnostics.
func (l *List) Err() error {
	if len(l.items) == 0 {
		return nil
	}
	return l
}

// HasFatal reports whether any accumulated diagnostic is of a kind that
// should stop compilation (every kind except none is currently considered
// fatal; the distinction exists for future use e.g. warnings).
func (l *List) HasFatal() bool { return len(l.items) > 0 }

func (l *List) Error() string {
	switch len(l.items) {
	case 0:
		return "no errors"
	case 1:
		return l.items[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:\n", len(l.items))
	for _, d := range l.items {
		sb.WriteString("\t")
		sb.WriteString(d.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Unwrap allows errors.Is/errors.As to reach individual diagnostics.
func (l *List) Unwrap() []error {
	errs := make([]error, len(l.items))
	for i, d := range l.items {
		errs[i] = d
	}
	return errs
}
