// Package parser turns a JMESPath token stream into an AST using
// Pratt top-down operator precedence: each token kind carries a
// binding power and a prefix (nud) and/or infix (led) production, and
// the core loop folds infix forms into the accumulated left node while
// the right binding power allows.
package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/jpath/pkg/ast"
	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/functions"
	"github.com/sandrolain/jpath/pkg/lexer"
	"github.com/sandrolain/jpath/pkg/token"
	"github.com/sandrolain/jpath/pkg/value"
)

// bindingPower is the Pratt precedence table. Token kinds with no
// entry default to 0, which is correct: they never start an infix
// form (rbracket, rparen, comma, eof, literals, ...).
var bindingPower = map[token.Kind]int{
	token.Pipe:     1,
	token.Or:       2,
	token.And:      3,
	token.Eq:       5,
	token.Ne:       5,
	token.Lt:       5,
	token.Lte:      5,
	token.Gt:       5,
	token.Gte:      5,
	token.Flatten:  9,
	token.Star:     20,
	token.Filter:   21,
	token.Dot:      40,
	token.Not:      45,
	token.LBrace:   50,
	token.LBracket: 55,
	token.LParen:   60,
}

func bp(k token.Kind) int { return bindingPower[k] }

// DefaultMaxDepth bounds recursive-descent nesting. It exists to turn
// a pathologically nested expression (`[[[[[...]]]]]`) into a
// ParseError instead of a stack overflow; ordinary expressions never
// come close to it.
const DefaultMaxDepth = 256

// compileConfig holds parser-level settings controlled by CompileOption.
type compileConfig struct {
	maxDepth int
}

// CompileOption configures the parser for a single Parse call.
type CompileOption func(*compileConfig)

// WithMaxDepth overrides DefaultMaxDepth. n <= 0 restores the default.
func WithMaxDepth(n int) CompileOption {
	return func(c *compileConfig) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// Parser holds the token stream and parsing position for a single
// expression. It is not safe for reuse across expressions.
type Parser struct {
	tokens   []token.Token
	pos      int
	source   string
	registry *functions.Registry
	depth    int
	maxDepth int
}

// Parse lexes and parses src against the given function registry
// (used only to arity-check function calls as they're built) and
// returns the compiled expression.
func Parse(src string, registry *functions.Registry, opts ...CompileOption) (*ast.CompiledExpression, error) {
	cfg := compileConfig{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, attach(err, src)
	}
	p := &Parser{tokens: tokens, source: src, registry: registry, maxDepth: cfg.maxDepth}
	root, err := p.parseExpression(0)
	if err != nil {
		return nil, attach(err, src)
	}
	if p.current().Kind != token.EOF {
		return nil, attach(p.errorf(errs.ParseError, "unexpected trailing token: %s", p.current().Kind), src)
	}
	return ast.New(root, src), nil
}

func attach(err error, src string) error {
	if e, ok := err.(*errs.Error); ok {
		return e.WithExpression(src)
	}
	return err
}

func (p *Parser) current() token.Token { return p.tokens[p.pos] }

func (p *Parser) lookahead(n int) token.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[i]
}

func (p *Parser) advance() { p.pos++ }

func (p *Parser) match(k token.Kind) error {
	if p.current().Kind != k {
		return p.errorf(errs.ParseError, "expected %s, received %s", k, p.current().Kind)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(kind errs.Kind, format string, args ...interface{}) *errs.Error {
	tok := p.current()
	// Running out of tokens mid-production is IncompleteExpression, not
	// ParseError, regardless of which production noticed first.
	if kind == errs.ParseError && tok.Kind == token.EOF {
		kind = errs.IncompleteExpression
	}
	e := errs.NewAt(kind, fmt.Sprintf(format, args...), tok.Start)
	return e.WithToken(tok.Kind.String(), tok.Value)
}

// parseExpression is the Pratt engine's core loop: parse one prefix
// form, then keep folding in infix forms while rbp is looser than the
// current token's binding power.
func (p *Parser) parseExpression(rbp int) (*ast.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, p.errorf(errs.ParseError, "expression nested too deeply (max %d)", p.maxDepth)
	}
	leftToken := p.current()
	p.advance()
	left, err := p.nud(leftToken)
	if err != nil {
		return nil, err
	}
	for rbp < bp(p.current().Kind) {
		opToken := p.current()
		p.advance()
		left, err = p.led(opToken, left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func identity() *ast.Node { return &ast.Node{Kind: ast.Identity} }

func (p *Parser) nud(t token.Token) (*ast.Node, error) {
	switch t.Kind {
	case token.Literal:
		v, err := decodeLiteral(t.Value)
		if err != nil {
			return nil, errs.NewAt(errs.LexerError, err.Error(), t.Start)
		}
		return &ast.Node{Kind: ast.Literal, Value: v, Position: t.Start}, nil
	case token.RawStringLiteral:
		return &ast.Node{Kind: ast.Literal, Value: t.Value, Position: t.Start}, nil
	case token.UnquotedIdent:
		return &ast.Node{Kind: ast.Field, Name: t.Value, Position: t.Start}, nil
	case token.QuotedIdent:
		if p.current().Kind == token.LParen {
			return nil, p.errorf(errs.ParseError, "quoted identifiers cannot be used as a function name")
		}
		return &ast.Node{Kind: ast.Field, Name: t.Value, Position: t.Start}, nil
	case token.Star:
		left := identity()
		if p.current().Kind == token.RBracket {
			right := identity()
			return &ast.Node{Kind: ast.ValueProjection, Left: left, Right: right, Position: t.Start}, nil
		}
		right, err := p.parseProjectionRHS(bp(token.Star))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.ValueProjection, Left: left, Right: right, Position: t.Start}, nil
	case token.Filter:
		return p.parseFilter(identity())
	case token.LBrace:
		return p.parseMultiSelectHash()
	case token.Flatten:
		left := &ast.Node{Kind: ast.Flatten, Child: identity()}
		right, err := p.parseProjectionRHS(bp(token.Flatten))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Projection, Left: left, Right: right, Position: t.Start}, nil
	case token.LBracket:
		return p.nudLBracket(t)
	case token.Current:
		return &ast.Node{Kind: ast.CurrentNode, Position: t.Start}, nil
	case token.Expref:
		expr, err := p.parseExpression(bp(token.Expref))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.ExpressionReference, Child: expr, Position: t.Start}, nil
	case token.Not:
		expr, err := p.parseExpression(bp(token.Not))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.NotExpression, Child: expr, Position: t.Start}, nil
	case token.LParen:
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.match(token.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case token.EOF:
		return nil, errs.NewAt(errs.IncompleteExpression, "incomplete expression", t.Start)
	}
	return nil, p.errorf(errs.ParseError, "unexpected token: %s", t.Kind)
}

func (p *Parser) nudLBracket(t token.Token) (*ast.Node, error) {
	switch p.current().Kind {
	case token.Number, token.Colon:
		right, err := p.parseIndexExpression()
		if err != nil {
			return nil, err
		}
		return p.projectIfSlice(identity(), right)
	case token.Star:
		if p.lookahead(1).Kind == token.RBracket {
			p.advance() // star
			p.advance() // rbracket
			right, err := p.parseProjectionRHS(bp(token.Star))
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.Projection, Left: identity(), Right: right, Position: t.Start}, nil
		}
		return p.parseMultiSelectList()
	default:
		return p.parseMultiSelectList()
	}
}

func (p *Parser) led(t token.Token, node *ast.Node) (*ast.Node, error) {
	switch t.Kind {
	case token.Dot:
		if p.current().Kind != token.Star {
			right, err := p.parseDotRHS(bp(token.Dot))
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.SubExpression, Left: node, Right: right}, nil
		}
		p.advance()
		// The projection body binds at star precedence, not dot: a
		// trailing .bar.baz chain stays inside the projection.
		right, err := p.parseProjectionRHS(bp(token.Star))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.ValueProjection, Left: node, Right: right}, nil
	case token.Pipe:
		right, err := p.parseExpression(bp(token.Pipe))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Pipe, Left: node, Right: right}, nil
	case token.Or:
		right, err := p.parseExpression(bp(token.Or))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.OrExpression, Left: node, Right: right}, nil
	case token.And:
		right, err := p.parseExpression(bp(token.And))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.AndExpression, Left: node, Right: right}, nil
	case token.LParen:
		return p.parseFunctionCall(node)
	case token.Filter:
		return p.parseFilter(node)
	case token.Flatten:
		left := &ast.Node{Kind: ast.Flatten, Child: node}
		right, err := p.parseProjectionRHS(bp(token.Flatten))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Projection, Left: left, Right: right}, nil
	case token.Eq, token.Ne, token.Lt, token.Lte, token.Gt, token.Gte:
		right, err := p.parseExpression(bp(t.Kind))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Comparator, Op: compareOp(t.Kind), Left: node, Right: right}, nil
	case token.LBracket:
		if p.current().Kind == token.Number || p.current().Kind == token.Colon {
			right, err := p.parseIndexExpression()
			if err != nil {
				return nil, err
			}
			return p.projectIfSlice(node, right)
		}
		if err := p.match(token.Star); err != nil {
			return nil, err
		}
		if err := p.match(token.RBracket); err != nil {
			return nil, err
		}
		right, err := p.parseProjectionRHS(bp(token.Star))
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Projection, Left: node, Right: right}, nil
	}
	return nil, p.errorf(errs.ParseError, "unexpected token: %s", t.Kind)
}

func compareOp(k token.Kind) ast.CompareOp {
	switch k {
	case token.Eq:
		return ast.OpEq
	case token.Ne:
		return ast.OpNe
	case token.Lt:
		return ast.OpLt
	case token.Lte:
		return ast.OpLte
	case token.Gt:
		return ast.OpGt
	default:
		return ast.OpGte
	}
}

func (p *Parser) parseFunctionCall(node *ast.Node) (*ast.Node, error) {
	if node.Kind != ast.Field {
		return nil, p.errorf(errs.ParseError, "function calls require a bare identifier")
	}
	name := node.Name
	var args []*ast.Node
	for p.current().Kind != token.RParen {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.current().Kind == token.Comma {
			if err := p.match(token.Comma); err != nil {
				return nil, err
			}
		}
	}
	if err := p.match(token.RParen); err != nil {
		return nil, err
	}
	entry, ok := p.registry.Lookup(name)
	if !ok {
		return nil, p.errorf(errs.UnknownFunction, "unknown function: %s", name)
	}
	if !entry.Signature.Accepts(len(args)) {
		err := entry.Signature.ArityError(len(args))
		err.Position = node.Position
		return nil, err
	}
	return &ast.Node{Kind: ast.FunctionExpression, Name: name, Args: args, Position: node.Position}, nil
}

func (p *Parser) parseIndexExpression() (*ast.Node, error) {
	if p.current().Kind == token.Colon || p.lookahead(1).Kind == token.Colon {
		return p.parseSliceExpression()
	}
	tok := p.current()
	n, err := strconv.Atoi(tok.Value)
	if err != nil {
		return nil, p.errorf(errs.ParseError, "invalid index: %s", tok.Value)
	}
	p.advance()
	if err := p.match(token.RBracket); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Index, IndexValue: n, Position: tok.Start}, nil
}

func (p *Parser) parseSliceExpression() (*ast.Node, error) {
	var parts [3]*int
	part := 0
	pos := p.current().Start
	for p.current().Kind != token.RBracket && part < 3 {
		switch p.current().Kind {
		case token.Colon:
			part++
			p.advance()
		case token.Number:
			n, err := strconv.Atoi(p.current().Value)
			if err != nil {
				return nil, p.errorf(errs.ParseError, "invalid slice bound: %s", p.current().Value)
			}
			parts[part] = &n
			p.advance()
		default:
			return nil, p.errorf(errs.ParseError, "expected colon or number in slice, received %s", p.current().Kind)
		}
	}
	if err := p.match(token.RBracket); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Slice, SliceStart: parts[0], SliceStop: parts[1], SliceStep: parts[2], Position: pos}, nil
}

// projectIfSlice wraps left/right into an IndexExpression, further
// wrapping that into a Projection when right turned out to be a
// Slice: a `[::]`-style bracket starts a projection over the sliced
// array, not a single index lookup.
func (p *Parser) projectIfSlice(left, right *ast.Node) (*ast.Node, error) {
	indexExpr := &ast.Node{Kind: ast.IndexExpression, Left: left, Right: right}
	if right.Kind != ast.Slice {
		return indexExpr, nil
	}
	rhs, err := p.parseProjectionRHS(bp(token.Star))
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Projection, Left: indexExpr, Right: rhs}, nil
}

func (p *Parser) parseFilter(node *ast.Node) (*ast.Node, error) {
	condition, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.match(token.RBracket); err != nil {
		return nil, err
	}
	var right *ast.Node
	if p.current().Kind == token.Flatten {
		right = identity()
	} else {
		right, err = p.parseProjectionRHS(bp(token.Filter))
		if err != nil {
			return nil, err
		}
	}
	return &ast.Node{Kind: ast.FilterProjection, Left: node, Right: right, Predicate: condition}, nil
}

// parseDotRHS restricts what may directly follow a `.`: an
// identifier/`*`/function call (via the general expression parse), or
// a dot-prefixed multi-select list/hash (`.[a,b]`, `.{a: x}`).
func (p *Parser) parseDotRHS(bindPower int) (*ast.Node, error) {
	switch p.current().Kind {
	case token.QuotedIdent, token.UnquotedIdent, token.Star:
		return p.parseExpression(bindPower)
	case token.LBracket:
		if err := p.match(token.LBracket); err != nil {
			return nil, err
		}
		return p.parseMultiSelectList()
	case token.LBrace:
		if err := p.match(token.LBrace); err != nil {
			return nil, err
		}
		return p.parseMultiSelectHash()
	}
	return nil, p.errorf(errs.ParseError, "expected identifier, lbracket or lbrace after dot")
}

// parseProjectionRHS decides what sits on the right of a projection:
// Identity once the current token can no longer extend it (bp < 10),
// otherwise the appropriate sub-form.
func (p *Parser) parseProjectionRHS(bindPower int) (*ast.Node, error) {
	switch {
	case bp(p.current().Kind) < 10:
		return identity(), nil
	case p.current().Kind == token.LBracket, p.current().Kind == token.Filter:
		return p.parseExpression(bindPower)
	case p.current().Kind == token.Dot:
		if err := p.match(token.Dot); err != nil {
			return nil, err
		}
		return p.parseDotRHS(bindPower)
	}
	return nil, p.errorf(errs.ParseError, "unexpected token in projection: %s", p.current().Kind)
}

func (p *Parser) parseMultiSelectList() (*ast.Node, error) {
	var items []*ast.Node
	for {
		item, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.current().Kind == token.RBracket {
			break
		}
		if err := p.match(token.Comma); err != nil {
			return nil, err
		}
	}
	if err := p.match(token.RBracket); err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.MultiSelectList, Items: items}, nil
}

func (p *Parser) parseMultiSelectHash() (*ast.Node, error) {
	var pairs []ast.KV
	for {
		keyTok := p.current()
		if keyTok.Kind != token.UnquotedIdent && keyTok.Kind != token.QuotedIdent {
			return nil, p.errorf(errs.ParseError, "expected identifier as multi-select-hash key, received %s", keyTok.Kind)
		}
		p.advance()
		if err := p.match(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ast.KV{Key: keyTok.Value, Expr: val})
		switch p.current().Kind {
		case token.Comma:
			p.advance()
		case token.RBrace:
			p.advance()
			return &ast.Node{Kind: ast.MultiSelectHash, Pairs: pairs}, nil
		default:
			return nil, p.errorf(errs.ParseError, "expected comma or rbrace in multi-select-hash, received %s", p.current().Kind)
		}
	}
}

// decodeLiteral implements the deprecated JEP-12 literal fallback: try
// body as JSON; if it fails and body doesn't start with a JSON
// sentinel, retry with it wrapped as a JSON string.
func decodeLiteral(body string) (interface{}, error) {
	if v, err := value.ParseJSON(body); err == nil {
		return v, nil
	}
	if startsJSON(body) {
		return nil, jsonLiteralErr(body)
	}
	wrapped, err := json.Marshal(body)
	if err != nil {
		return nil, jsonLiteralErr(body)
	}
	v, err := value.ParseJSON(string(wrapped))
	if err != nil {
		return nil, jsonLiteralErr(body)
	}
	return v, nil
}

func jsonLiteralErr(body string) error {
	return errs.New(errs.LexerError, "invalid literal: "+body)
}

func startsJSON(s string) bool {
	s = strings.TrimLeft(s, " \t\n\r")
	if s == "" {
		return false
	}
	switch s[0] {
	case '"', '{', '[', '-':
		return true
	}
	if s[0] >= '0' && s[0] <= '9' {
		return true
	}
	return strings.HasPrefix(s, "true") || strings.HasPrefix(s, "false") || strings.HasPrefix(s, "null")
}
