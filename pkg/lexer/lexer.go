// Package lexer turns a JMESPath expression string into a token
// stream. The scanning technique (rune-at-a-time with backup/ignore)
// follows Rob Pike's "Lexical Scanning in Go" approach.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/token"
)

const eof = -1

// Lexer scans a JMESPath expression into Tokens on demand via Next.
type Lexer struct {
	input   string
	length  int
	start   int
	current int
	width   int
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{input: src, length: len(src)}
}

// Tokenize scans the entire expression into a Token slice terminated
// by an EOF token. It returns EmptyExpression when src is empty, and
// a LexerError on the first unscannable character.
func Tokenize(src string) ([]token.Token, error) {
	if src == "" {
		return nil, errs.New(errs.EmptyExpression, "expression is empty")
	}
	l := New(src)
	var out []token.Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if t.Kind == token.EOF {
			return out, nil
		}
	}
}

// Next returns the next token, or a *errs.Error of kind LexerError if
// the input cannot form a valid token from the current position.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return token.Token{Kind: token.EOF, Start: l.current, End: l.current}, nil
	}

	switch ch {
	case '.':
		return l.newToken(token.Dot), nil
	case '*':
		return l.newToken(token.Star), nil
	case ',':
		return l.newToken(token.Comma), nil
	case ':':
		return l.newToken(token.Colon), nil
	case '@':
		return l.newToken(token.Current), nil
	case '&':
		if l.acceptRune('&') {
			return l.newToken(token.And), nil
		}
		return l.newToken(token.Expref), nil
	case '(':
		return l.newToken(token.LParen), nil
	case ')':
		return l.newToken(token.RParen), nil
	case '{':
		return l.newToken(token.LBrace), nil
	case '}':
		return l.newToken(token.RBrace), nil
	case ']':
		return l.newToken(token.RBracket), nil
	case '[':
		return l.scanLBracket(), nil
	case '<':
		if l.acceptRune('=') {
			return l.newToken(token.Lte), nil
		}
		return l.newToken(token.Lt), nil
	case '>':
		if l.acceptRune('=') {
			return l.newToken(token.Gte), nil
		}
		return l.newToken(token.Gt), nil
	case '=':
		if l.acceptRune('=') {
			return l.newToken(token.Eq), nil
		}
		return l.lexError("unexpected character '=': did you mean '=='?")
	case '!':
		if l.acceptRune('=') {
			return l.newToken(token.Ne), nil
		}
		return l.newToken(token.Not), nil
	case '|':
		if l.acceptRune('|') {
			return l.newToken(token.Or), nil
		}
		return l.newToken(token.Pipe), nil
	case '"':
		return l.scanQuotedIdentifier()
	case '\'':
		return l.scanRawStringLiteral()
	case '`':
		return l.scanLiteral()
	}

	if ch == '-' || isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	if isIdentStart(ch) {
		l.backup()
		return l.scanUnquotedIdentifier(), nil
	}

	return l.lexError(fmt.Sprintf("unknown character %q", ch))
}

// scanLBracket disambiguates '[', '[]' (flatten), and '[?' (filter).
func (l *Lexer) scanLBracket() token.Token {
	if l.acceptRune(']') {
		return l.newToken(token.Flatten)
	}
	if l.acceptRune('?') {
		return l.newToken(token.Filter)
	}
	return l.newToken(token.LBracket)
}

func (l *Lexer) scanNumber() (token.Token, error) {
	l.acceptRune('-')
	if !l.acceptAll(isDigit) {
		return l.lexError("expected digits after '-'")
	}
	return l.newToken(token.Number), nil
}

func (l *Lexer) scanUnquotedIdentifier() token.Token {
	l.nextRune() // first char already validated by isIdentStart
	l.acceptAll(isIdentPart)
	return l.newToken(token.UnquotedIdent)
}

// scanQuotedIdentifier reads a "..." identifier (opening quote
// already consumed) and decodes standard JSON string escapes.
func (l *Lexer) scanQuotedIdentifier() (token.Token, error) {
	raw, err := l.scanDelimited('"')
	if err != nil {
		return token.Token{}, err
	}
	decoded, err := decodeJSONStringBody(raw)
	if err != nil {
		return token.Token{}, errs.NewAt(errs.LexerError, err.Error(), l.start)
	}
	t := l.newToken(token.QuotedIdent)
	t.Value = decoded
	return t, nil
}

// scanRawStringLiteral reads a '...' literal (opening quote already
// consumed). Only \' and \\ are unescaped; no JSON decoding happens.
func (l *Lexer) scanRawStringLiteral() (token.Token, error) {
	raw, err := l.scanDelimited('\'')
	if err != nil {
		return token.Token{}, err
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) && (raw[i+1] == '\'' || raw[i+1] == '\\') {
			b.WriteByte(raw[i+1])
			i++
			continue
		}
		b.WriteByte(raw[i])
	}
	t := l.newToken(token.RawStringLiteral)
	t.Value = b.String()
	return t, nil
}

// scanLiteral reads a `...` JEP-12 literal (opening backtick already
// consumed). The token's Value is the body with \` unescaped and
// left-trimmed; attempting it as JSON (with the string-wrap fallback
// for non-JSON bodies) is the parser's job, since that is where the
// literal's Value is actually materialized.
func (l *Lexer) scanLiteral() (token.Token, error) {
	raw, err := l.scanDelimited('`')
	if err != nil {
		return token.Token{}, err
	}
	body := strings.ReplaceAll(raw, "\\`", "`")
	body = strings.TrimLeft(body, " \t\n\r")
	t := l.newToken(token.Literal)
	t.Value = body
	return t, nil
}

// scanDelimited consumes runes through the closing delim (the opening
// delim has already been consumed), honoring backslash escapes, and
// returns the raw body between the delimiters. l.start stays on the
// opening delimiter so the caller's newToken spans the whole token.
func (l *Lexer) scanDelimited(delim rune) (string, error) {
	bodyStart := l.current
	for {
		ch := l.nextRune()
		switch ch {
		case delim:
			return l.input[bodyStart : l.current-l.width], nil
		case '\\':
			if r := l.nextRune(); r == eof {
				return "", l.unterminated(delim)
			}
		case eof:
			return "", l.unterminated(delim)
		}
	}
}

func (l *Lexer) unterminated(delim rune) error {
	kind := "string"
	switch delim {
	case '"':
		kind = "quoted identifier"
	case '`':
		kind = "literal"
	}
	return errs.NewAt(errs.LexerError, fmt.Sprintf("unclosed %s", kind), l.start)
}

// decodeJSONStringBody decodes the body of a "..." token (without
// quotes) using standard JSON string escapes, UTF-16 surrogate-pair
// aware.
func decodeJSONStringBody(body string) (string, error) {
	var b strings.Builder
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			b.WriteRune(r)
			continue
		}
		i++
		if i >= len(runes) {
			return "", fmt.Errorf("malformed escape sequence")
		}
		switch runes[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			if i+4 >= len(runes) {
				return "", fmt.Errorf("malformed \\u escape")
			}
			hi, err := strconv.ParseUint(string(runes[i+1:i+5]), 16, 32)
			if err != nil {
				return "", fmt.Errorf("malformed \\u escape: %w", err)
			}
			i += 4
			r1 := rune(hi)
			if utf16.IsSurrogate(r1) && i+6 < len(runes) && runes[i+1] == '\\' && runes[i+2] == 'u' {
				lo, err := strconv.ParseUint(string(runes[i+3:i+7]), 16, 32)
				if err == nil {
					decoded := utf16.DecodeRune(r1, rune(lo))
					if decoded != utf8.RuneError {
						b.WriteRune(decoded)
						i += 6
						continue
					}
				}
			}
			b.WriteRune(r1)
		default:
			return "", fmt.Errorf("unsupported escape sequence \\%c", runes[i])
		}
	}
	return b.String(), nil
}

func (l *Lexer) lexError(msg string) (token.Token, error) {
	return token.Token{}, errs.NewAt(errs.LexerError, msg, l.start)
}

func (l *Lexer) newToken(kind token.Kind) token.Token {
	t := token.Token{Kind: kind, Value: l.input[l.start:l.current], Start: l.start, End: l.current}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	if l.nextRune() == r {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	matched := false
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(isWhitespace)
	l.ignore()
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
