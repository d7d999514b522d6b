// Package errs defines the structured error taxonomy shared by every
// stage of the engine (lexer, parser, interpreter, function library):
// one exported struct carrying a closed-set Kind, a human message, and
// enough position information to render a caret-underlined diagnostic.
package errs

import (
	"fmt"
	"strings"
)

// Kind identifies which error category an Error belongs to.
type Kind string

const (
	EmptyExpression      Kind = "EmptyExpression"
	LexerError           Kind = "LexerError"
	ParseError           Kind = "ParseError"
	IncompleteExpression Kind = "IncompleteExpression"
	UnknownFunction      Kind = "UnknownFunction"
	InvalidArity         Kind = "InvalidArity"
	VariadicArity        Kind = "VariadicArity"
	InvalidType          Kind = "InvalidType"
	InvalidValue         Kind = "InvalidValue"
)

// TokenInfo captures the token a ParseError was raised on, for display.
type TokenInfo struct {
	Kind  string
	Value string
}

// Error is the structured error type returned by every public entry
// point of the engine. It is never swallowed internally: callers
// receive it via errors.As.
type Error struct {
	Kind       Kind
	Message    string
	Position   int // byte offset; -1 when not applicable
	Token      *TokenInfo
	Expression string // original source, attached once known
	Err        error  // wrapped cause, if any
}

// New creates an Error with no position information.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Position: -1}
}

// NewAt creates an Error anchored to a byte position.
func NewAt(kind Kind, message string, position int) *Error {
	return &Error{Kind: kind, Message: message, Position: position}
}

// WithToken attaches the offending token for display purposes.
func (e *Error) WithToken(kind, value string) *Error {
	e.Token = &TokenInfo{Kind: kind, Value: value}
	return e
}

// WithExpression attaches the original source expression so Error()
// can render a caret-underlined diagnostic. Safe to call on nil.
func (e *Error) WithExpression(src string) *Error {
	if e == nil {
		return e
	}
	e.Expression = src
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Position >= 0 {
		fmt.Fprintf(&b, " (position %d)", e.Position)
	}
	if e.Expression != "" {
		b.WriteByte('\n')
		b.WriteString(e.Expression)
		b.WriteByte('\n')
		if e.Position >= 0 {
			n := e.Position
			if n > len(e.Expression) {
				n = len(e.Expression)
			}
			b.WriteString(strings.Repeat(" ", n))
			b.WriteByte('^')
		}
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}
