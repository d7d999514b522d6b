// Package jpath compiles and evaluates JMESPath expressions against
// arbitrary JSON-shaped data.
//
// # Quick Start
//
//	// Simple evaluation
//	result, err := jpath.Search("foo.bar", data)
//
//	// Compile once, evaluate many times
//	expr, err := jpath.Compile("foo[?x==`1`].y")
//	result1, _ := expr.Search(data1)
//	result2, _ := expr.Search(data2)
//
//	// With options
//	result, err := jpath.Search("foo[*].bar", data,
//	    jpath.WithCaching(true),
//	    jpath.WithDebug(true),
//	)
//
// # More Information
//
// For the stage-by-stage implementation, see:
//   - Lexer: github.com/sandrolain/jpath/pkg/lexer
//   - Parser: github.com/sandrolain/jpath/pkg/parser
//   - Interpreter: github.com/sandrolain/jpath/pkg/interp
//   - Functions: github.com/sandrolain/jpath/pkg/functions
package jpath

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sandrolain/jpath/pkg/ast"
	"github.com/sandrolain/jpath/pkg/cache"
	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/functions"
	"github.com/sandrolain/jpath/pkg/interp"
	"github.com/sandrolain/jpath/pkg/parser"
	"github.com/sandrolain/jpath/pkg/value"
)

// Error is the structured error type returned by every public entry
// point in this package. Use errors.As to recover kind/position/token
// detail.
type Error = errs.Error

// ErrorKind enumerates the closed set of failure categories a compile
// or evaluation can raise.
type ErrorKind = errs.Kind

// The error kinds, re-exported so callers never need to import
// pkg/errs directly.
const (
	EmptyExpression      = errs.EmptyExpression
	LexerError           = errs.LexerError
	ParseError           = errs.ParseError
	IncompleteExpression = errs.IncompleteExpression
	UnknownFunction      = errs.UnknownFunction
	InvalidArity         = errs.InvalidArity
	VariadicArity        = errs.VariadicArity
	InvalidType          = errs.InvalidType
	InvalidValue         = errs.InvalidValue
)

// Tag is a JMESPath runtime type tag, as returned by the type()
// function and used to declare custom-function parameter types.
type Tag = value.Tag

// The seven JMESPath type tags.
const (
	TagNull    = value.TagNull
	TagBoolean = value.TagBoolean
	TagNumber  = value.TagNumber
	TagString  = value.TagString
	TagArray   = value.TagArray
	TagObject  = value.TagObject
	TagExpref  = value.TagExpref
)

// ParamSpec declares the set of type tags a custom function's
// parameter accepts; see Of, Any and ArrayOf.
type ParamSpec = functions.ParamSpec

// Of builds a ParamSpec accepting exactly the listed tags.
func Of(tags ...Tag) ParamSpec { return functions.Of(tags...) }

// Any builds a ParamSpec accepting every value without a type check.
func Any() ParamSpec { return functions.Any() }

// ArrayOf builds a ParamSpec accepting an array whose elements all
// carry one of subtypes (the array-number / array-string style
// parameters of the JMESPath function specification).
func ArrayOf(subtypes ...Tag) ParamSpec { return functions.ArrayOfTag(subtypes...) }

// CustomFunctionDef registers a user-defined function callable from
// JMESPath expressions, sharing the same signature/arity/type-checking
// mechanism as the built-ins. Custom functions never shadow a built-in
// of the same name.
type CustomFunctionDef struct {
	Name     string
	Params   []ParamSpec
	Variadic bool
	Fn       func(args []interface{}) (interface{}, error)
}

// Cache is a bounded, random-eviction compile cache. It is safe for
// concurrent use; see WithCache/WithCaching.
type Cache = cache.Cache

// NewCache creates a Cache with the given capacity; capacity <= 0 uses
// cache.DefaultCapacity.
func NewCache(capacity int) *Cache { return cache.New(capacity) }

// config holds the resolved state of every Option for a single
// Compile/Search call.
type config struct {
	registry  *functions.Registry
	maxDepth  int
	cache     *cache.Cache
	logger    *slog.Logger
	debug     bool
	newObject func() value.Object
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		registry:  functions.New(),
		maxDepth:  parser.DefaultMaxDepth,
		logger:    slog.Default(),
		newObject: value.NewObject,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures compilation and/or evaluation. The same Option
// type is used by Compile and Search because custom-function
// registration must be visible to the parser (unknown-function and
// arity errors are raised at parse time) as well as to the
// interpreter.
type Option func(*config)

// WithLogger sets the structured logger used for debug tracing.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithDebug enables debug-level evaluation tracing: entering a
// projection, resolving a function, compile-cache activity.
func WithDebug(enabled bool) Option {
	return func(c *config) { c.debug = enabled }
}

// WithMaxNestingDepth overrides parser.DefaultMaxDepth, the recursion
// bound that turns a pathologically nested expression into a
// ParseError instead of a stack overflow.
func WithMaxNestingDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithDictConstructor overrides the constructor used to materialize
// multi-select-hash results.
func WithDictConstructor(fn func() value.Object) Option {
	return func(c *config) { c.newObject = fn }
}

// WithCache installs an explicit, possibly shared, compile cache.
func WithCache(ch *Cache) Option {
	return func(c *config) { c.cache = ch }
}

// WithCaching enables or disables the default compile cache for this
// call. Passing true without a prior WithCache installs a fresh
// cache.DefaultCapacity-sized cache.
func WithCaching(enabled bool) Option {
	return func(c *config) {
		if !enabled {
			c.cache = nil
			return
		}
		if c.cache == nil {
			c.cache = cache.New(cache.DefaultCapacity)
		}
	}
}

// WithCacheSize is shorthand for WithCache(NewCache(size)).
func WithCacheSize(size int) Option {
	return func(c *config) { c.cache = cache.New(size) }
}

// WithCustomFunction registers def into the registry used for this
// Compile/Search call. See CustomFunctionDef.
func WithCustomFunction(def CustomFunctionDef) Option {
	return func(c *config) {
		c.registry.Register(def.Name, functions.Entry{
			Signature: functions.Signature{Name: def.Name, Params: def.Params, Variadic: def.Variadic},
			Call: func(_ functions.Evaluator, args []interface{}) (interface{}, error) {
				return def.Fn(args)
			},
		})
	}
}

func (c *config) interpreter() *interp.Interpreter {
	return interp.New(
		interp.WithRegistry(c.registry),
		interp.WithLogger(c.logger),
		interp.WithDebug(c.debug),
		interp.WithDictConstructor(c.newObject),
	)
}

// CompiledExpression is the result of Compile: a parsed AST plus the
// registry and evaluation defaults it was compiled with. It is
// immutable and safe to Search concurrently from many goroutines
// against many different inputs.
type CompiledExpression struct {
	compiled  *ast.CompiledExpression
	id        uuid.UUID
	registry  *functions.Registry
	logger    *slog.Logger
	debug     bool
	newObject func() value.Object
}

// ID returns a per-compile diagnostic identifier, useful for
// correlating WithDebug log lines across many cached/shared
// CompiledExpression values.
func (c *CompiledExpression) ID() uuid.UUID { return c.id }

// String returns the original expression source.
func (c *CompiledExpression) String() string { return c.compiled.Source() }

// Search evaluates the compiled expression against data. opts may
// override the logger/debug/dict-constructor defaults captured at
// Compile time; registering an additional custom function here has no
// effect on parse-time arity/unknown-function checks, since those
// already ran during Compile.
func (c *CompiledExpression) Search(data interface{}, opts ...Option) (interface{}, error) {
	cfg := &config{
		registry:  c.registry,
		maxDepth:  parser.DefaultMaxDepth,
		logger:    c.logger,
		debug:     c.debug,
		newObject: c.newObject,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.interpreter().Eval(c.compiled.Root(), data)
}

// Compile compiles a JMESPath expression for repeated evaluation. The
// compiled expression is immutable and safe for concurrent use.
func Compile(src string, opts ...Option) (*CompiledExpression, error) {
	cfg := newConfig(opts...)
	compiled, err := parser.Parse(src, cfg.registry, parser.WithMaxDepth(cfg.maxDepth))
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	if cfg.debug {
		cfg.logger.Debug("compiled expression", "id", id, "source", src)
	}
	return &CompiledExpression{
		compiled:  compiled,
		id:        id,
		registry:  cfg.registry,
		logger:    cfg.logger,
		debug:     cfg.debug,
		newObject: cfg.newObject,
	}, nil
}

// MustCompile is like Compile but panics if src cannot be compiled.
// It simplifies safe initialization of package-level expressions.
func MustCompile(src string, opts ...Option) *CompiledExpression {
	expr, err := Compile(src, opts...)
	if err != nil {
		panic(fmt.Sprintf("jpath: Compile(%q): %v", src, err))
	}
	return expr
}

// Search compiles src and evaluates it against data in one call. When
// WithCaching/WithCache is supplied, the compiled expression is cached
// and reused on subsequent calls sharing the same Option-supplied
// cache and source string.
//
// For repeated evaluation of the same expression against many inputs,
// prefer Compile once and call CompiledExpression.Search repeatedly.
func Search(src string, data interface{}, opts ...Option) (interface{}, error) {
	cfg := newConfig(opts...)
	compileFn := func() (*ast.CompiledExpression, error) {
		return parser.Parse(src, cfg.registry, parser.WithMaxDepth(cfg.maxDepth))
	}
	var (
		compiled *ast.CompiledExpression
		err      error
	)
	if cfg.cache != nil {
		compiled, err = cfg.cache.GetOrCompile(src, compileFn)
		if cfg.debug {
			cfg.logger.Debug("search", "source", src, "cache_len", cfg.cache.Len())
		}
	} else {
		compiled, err = compileFn()
	}
	if err != nil {
		return nil, err
	}
	return cfg.interpreter().Eval(compiled.Root(), data)
}
