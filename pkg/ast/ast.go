// Package ast defines the JMESPath abstract syntax tree and the
// compiled-expression wrapper around it.
//
// The tree is a single flat node struct carrying a Kind tag plus
// whichever of its fields that Kind uses, rather than one Go type per
// node: a tagged sum with direct child ownership, no pointer graph,
// no cycles. Visitors (here, the interpreter) exhaustively switch on
// Kind.
package ast

// Kind tags a Node with its grammar production.
type Kind int

const (
	Identity Kind = iota
	Field
	Index
	Slice
	SubExpression
	IndexExpression
	Projection
	ValueProjection
	FilterProjection
	Flatten
	MultiSelectList
	MultiSelectHash
	KeyValPair
	Literal
	Comparator
	OrExpression
	AndExpression
	NotExpression
	Pipe
	CurrentNode
	ExpressionReference
	FunctionExpression
)

// Comparator operators, used as Node.Op when Kind == Comparator.
type CompareOp string

const (
	OpEq  CompareOp = "=="
	OpNe  CompareOp = "!="
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
)

// KV is a single key/expression pair inside a MultiSelectHash.
type KV struct {
	Key  string
	Expr *Node
}

// Node is a single AST node. Which fields are meaningful is
// determined entirely by Kind, noted per field group below. Nodes
// are built once by the parser and never mutated afterward, which is
// what makes a single shared *Node tree safe to evaluate concurrently
// from many goroutines against a cached CompiledExpression.
type Node struct {
	Kind Kind

	// Field / FunctionExpression
	Name string

	// Index
	IndexValue int

	// Slice
	SliceStart, SliceStop, SliceStep *int

	// SubExpression, IndexExpression, Projection, ValueProjection,
	// FilterProjection, Comparator, OrExpression, AndExpression, Pipe
	Left, Right *Node

	// FilterProjection
	Predicate *Node

	// Flatten, NotExpression, ExpressionReference
	Child *Node

	// MultiSelectList
	Items []*Node

	// MultiSelectHash
	Pairs []KV

	// Literal
	Value interface{}

	// Comparator
	Op CompareOp

	// FunctionExpression
	Args []*Node

	// Position is the byte offset of the token that introduced this
	// node, used only for error messages raised during evaluation
	// (e.g. a zero slice step); the parser itself reports positions
	// straight from the token stream.
	Position int
}
