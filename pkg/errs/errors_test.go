package errs_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sandrolain/jpath/pkg/errs"
)

func TestErrorRendersCaretUnderPosition(t *testing.T) {
	e := errs.NewAt(errs.ParseError, "unexpected token: rbracket", 3).
		WithExpression("foo]baz")
	msg := e.Error()
	lines := strings.Split(msg, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (message, expression, caret), got %d:\n%s", len(lines), msg)
	}
	if lines[1] != "foo]baz" {
		t.Fatalf("expression line = %q", lines[1])
	}
	if lines[2] != "   ^" {
		t.Fatalf("caret line = %q, want %q", lines[2], "   ^")
	}
}

func TestErrorWithoutExpressionIsSingleLine(t *testing.T) {
	e := errs.New(errs.InvalidType, "argument 1 to length has wrong type, received number")
	if strings.Contains(e.Error(), "\n") {
		t.Fatalf("expected single-line message, got %q", e.Error())
	}
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	e := errs.New(errs.InvalidValue, "cannot serialize").WithCause(cause)
	if !errors.Is(e, cause) {
		t.Fatal("errors.Is should see through WithCause")
	}
}

func TestErrorCaretClampedToExpressionLength(t *testing.T) {
	e := errs.NewAt(errs.IncompleteExpression, "incomplete expression", 99).
		WithExpression("foo.")
	msg := e.Error()
	lines := strings.Split(msg, "\n")
	if got := lines[len(lines)-1]; got != "    ^" {
		t.Fatalf("caret line = %q, want clamped to end of expression", got)
	}
}
