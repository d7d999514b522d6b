// Package interp is the tree-walking JMESPath evaluator: a pure
// function of (node, value) with no shared mutable state across
// calls, structured as a context-carrying Interpreter plus a
// recursive per-Kind switch.
package interp

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/sandrolain/jpath/pkg/ast"
	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/functions"
	"github.com/sandrolain/jpath/pkg/value"
)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the structured logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(it *Interpreter) { it.logger = l }
}

// WithDebug gates the entering-a-projection/resolving-a-function trace
// lines emitted at slog.LevelDebug.
func WithDebug(enabled bool) Option {
	return func(it *Interpreter) { it.debug = enabled }
}

// WithRegistry overrides the function registry, e.g. to share one
// registry (with custom functions already registered) across many
// Interpreters.
func WithRegistry(r *functions.Registry) Option {
	return func(it *Interpreter) { it.registry = r }
}

// WithDictConstructor overrides how MultiSelectHash results are
// materialized. Defaults to value.NewObject. The replacement must
// still return value.Object,
// since the interpreter and function library depend on that concrete
// ordered-map type elsewhere; the hook exists for callers that want to
// pre-size the map or wrap construction with their own instrumentation,
// not to swap in a structurally different object representation.
func WithDictConstructor(fn func() value.Object) Option {
	return func(it *Interpreter) { it.newObject = fn }
}

// Interpreter evaluates compiled expressions against input values. It
// holds no per-call state; Eval is safe to call concurrently from
// multiple goroutines against the same Interpreter and the same
// *ast.CompiledExpression.
type Interpreter struct {
	logger    *slog.Logger
	debug     bool
	registry  *functions.Registry
	newObject func() value.Object
}

// New creates an Interpreter with the given options, defaulting to the
// built-in-only function registry and a disabled logger.
func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		logger:    slog.New(slog.DiscardHandler),
		registry:  functions.New(),
		newObject: value.NewObject,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

func (it *Interpreter) debugf(msg string, args ...any) {
	if it.debug {
		it.logger.Debug(msg, args...)
	}
}

// Registry returns the interpreter's function registry, so callers can
// Register custom functions before evaluating.
func (it *Interpreter) Registry() *functions.Registry { return it.registry }

// Eval evaluates root against current. current is normalized into
// the engine's own value representation first (see
// value.Normalize), so callers may pass plain map[string]interface{}/
// []interface{} data (e.g. the output of encoding/json.Unmarshal)
// without pre-converting it via value.ParseJSON themselves.
func (it *Interpreter) Eval(root *ast.Node, current interface{}) (interface{}, error) {
	return it.eval(root, value.Normalize(current), newScope())
}

// EvalExpref satisfies functions.Evaluator: it runs ref against a
// single candidate value, on behalf of a higher-order function like
// map or sort_by.
func (it *Interpreter) EvalExpref(ref value.Expref, current interface{}) (interface{}, error) {
	return it.eval(ref.Node, current, newScope())
}

func (it *Interpreter) eval(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	switch node.Kind {
	case ast.Identity, ast.CurrentNode:
		return cur, nil
	case ast.Literal:
		return node.Value, nil
	case ast.Field:
		return evalField(node.Name, cur), nil
	case ast.Index:
		return evalIndex(node.IndexValue, cur), nil
	case ast.Slice:
		return evalSlice(node, cur)
	case ast.SubExpression, ast.IndexExpression:
		left, err := it.eval(node.Left, cur, sc)
		if err != nil {
			return nil, err
		}
		if left == nil {
			return nil, nil
		}
		return it.eval(node.Right, left, sc)
	case ast.Projection:
		return it.evalProjection(node, cur, sc)
	case ast.ValueProjection:
		return it.evalValueProjection(node, cur, sc)
	case ast.FilterProjection:
		return it.evalFilterProjection(node, cur, sc)
	case ast.Flatten:
		return it.evalFlatten(node, cur, sc)
	case ast.OrExpression:
		left, err := it.eval(node.Left, cur, sc)
		if err != nil {
			return nil, err
		}
		if value.Truthy(left) {
			return left, nil
		}
		return it.eval(node.Right, cur, sc)
	case ast.AndExpression:
		left, err := it.eval(node.Left, cur, sc)
		if err != nil {
			return nil, err
		}
		if !value.Truthy(left) {
			return left, nil
		}
		return it.eval(node.Right, cur, sc)
	case ast.NotExpression:
		v, err := it.eval(node.Child, cur, sc)
		if err != nil {
			return nil, err
		}
		return !value.Truthy(v), nil
	case ast.Comparator:
		return it.evalComparator(node, cur, sc)
	case ast.MultiSelectList:
		return it.evalMultiSelectList(node, cur, sc)
	case ast.MultiSelectHash:
		return it.evalMultiSelectHash(node, cur, sc)
	case ast.Pipe:
		left, err := it.eval(node.Left, cur, sc)
		if err != nil {
			return nil, err
		}
		return it.eval(node.Right, left, sc)
	case ast.ExpressionReference:
		return value.Expref{Node: node.Child}, nil
	case ast.FunctionExpression:
		return it.evalFunctionCall(node, cur, sc)
	}
	return nil, errs.New(errs.ParseError, "unhandled ast node")
}

func evalField(name string, cur interface{}) interface{} {
	obj, ok := cur.(value.Object)
	if !ok {
		return nil
	}
	v, present := obj.Get(name)
	if !present {
		return nil
	}
	return v
}

func evalIndex(i int, cur interface{}) interface{} {
	arr, ok := cur.([]interface{})
	if !ok {
		return nil
	}
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

func (it *Interpreter) evalProjection(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	left, err := it.eval(node.Left, cur, sc)
	if err != nil {
		return nil, err
	}
	arr, ok := left.([]interface{})
	if !ok {
		return nil, nil
	}
	return it.projectOver(arr, node.Right, sc)
}

func (it *Interpreter) evalValueProjection(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	left, err := it.eval(node.Left, cur, sc)
	if err != nil {
		return nil, err
	}
	obj, ok := left.(value.Object)
	if !ok {
		return nil, nil
	}
	return it.projectOver(value.Values(obj), node.Right, sc)
}

func (it *Interpreter) evalFilterProjection(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	left, err := it.eval(node.Left, cur, sc)
	if err != nil {
		return nil, err
	}
	arr, ok := left.([]interface{})
	if !ok {
		return nil, nil
	}
	kept := make([]interface{}, 0, len(arr))
	for _, e := range arr {
		cond, err := it.eval(node.Predicate, e, sc)
		if err != nil {
			return nil, err
		}
		if value.Truthy(cond) {
			kept = append(kept, e)
		}
	}
	return it.projectOver(kept, node.Right, sc)
}

// projectOver evaluates right against every element of elems,
// dropping null results, the projection rule shared by
// Projection/ValueProjection/FilterProjection. The
// null-drop itself is a lo.Filter pass over the mapped results rather
// than an append-if-non-nil loop, since the element-wise eval still
// needs to short-circuit on error (lo.Map has no error-returning
// variant) while the drop step is a pure predicate.
func (it *Interpreter) projectOver(elems []interface{}, right *ast.Node, sc *scope) (interface{}, error) {
	it.debugf("projecting", "count", len(elems))
	mapped := make([]interface{}, len(elems))
	for i, e := range elems {
		v, err := it.eval(right, e, sc)
		if err != nil {
			return nil, err
		}
		mapped[i] = v
	}
	return lo.Filter(mapped, func(v interface{}, _ int) bool { return v != nil }), nil
}

func (it *Interpreter) evalFlatten(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	child, err := it.eval(node.Child, cur, sc)
	if err != nil {
		return nil, err
	}
	arr, ok := child.([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]interface{}, 0, len(arr))
	for _, e := range arr {
		if inner, ok := e.([]interface{}); ok {
			out = append(out, inner...)
		} else {
			out = append(out, e)
		}
	}
	return out, nil
}

func (it *Interpreter) evalComparator(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	left, err := it.eval(node.Left, cur, sc)
	if err != nil {
		return nil, err
	}
	right, err := it.eval(node.Right, cur, sc)
	if err != nil {
		return nil, err
	}
	switch node.Op {
	case ast.OpEq:
		return value.Equal(left, right), nil
	case ast.OpNe:
		return !value.Equal(left, right), nil
	}
	lf, lok := left.(float64)
	rf, rok := right.(float64)
	if !lok || !rok {
		return nil, nil
	}
	switch node.Op {
	case ast.OpLt:
		return lf < rf, nil
	case ast.OpLte:
		return lf <= rf, nil
	case ast.OpGt:
		return lf > rf, nil
	case ast.OpGte:
		return lf >= rf, nil
	}
	return nil, nil
}

func (it *Interpreter) evalMultiSelectList(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	if cur == nil {
		return nil, nil
	}
	out := make([]interface{}, len(node.Items))
	for i, item := range node.Items {
		v, err := it.eval(item, cur, sc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (it *Interpreter) evalMultiSelectHash(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	if cur == nil {
		return nil, nil
	}
	obj := it.newObject()
	for _, pair := range node.Pairs {
		v, err := it.eval(pair.Expr, cur, sc)
		if err != nil {
			return nil, err
		}
		obj.Set(pair.Key, v)
	}
	return obj, nil
}

func (it *Interpreter) evalFunctionCall(node *ast.Node, cur interface{}, sc *scope) (interface{}, error) {
	it.debugf("resolving function", "name", node.Name, "argc", len(node.Args))
	entry, ok := it.registry.Lookup(node.Name)
	if !ok {
		return nil, errs.NewAt(errs.UnknownFunction, "unknown function: "+node.Name, node.Position)
	}
	args := make([]interface{}, len(node.Args))
	for i, a := range node.Args {
		if a.Kind == ast.ExpressionReference {
			args[i] = value.Expref{Node: a.Child}
			continue
		}
		v, err := it.eval(a, cur, sc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if err := entry.Signature.CheckArgs(args); err != nil {
		return nil, err
	}
	return entry.Call(it, args)
}
