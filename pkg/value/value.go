// Package value defines the runtime JSON value representation shared
// by the interpreter and the function library, plus the JMESPath
// truthiness, equality, and type-tagging rules.
//
// Values are plain Go data (nil, bool, float64, string,
// []interface{}, ordered object) rather than a dedicated boxed union
// type. The object variant is backed by an ordered map
// (github.com/wk8/go-ordered-map/v2) so key order survives from input
// to output, and a bare Go nil stands for JSON null: a missing field
// and an explicit null both surface as null in JMESPath, so collapsing
// the two costs nothing.
package value

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/sandrolain/jpath/pkg/ast"
)

// Object is the ordered string->Value mapping used for every JSON
// object value in the engine, preserving insertion order.
type Object = *orderedmap.OrderedMap[string, interface{}]

// NewObject creates an empty ordered object.
func NewObject() Object {
	return orderedmap.New[string, interface{}]()
}

// Expref is the runtime value produced by an ExpressionReference
// node (the `&expr` syntax): a first-class handle to a deferred AST
// subtree, consumed only by higher-order functions (map, sort_by,
// min_by, max_by, ...). The interpreter never dereferences it itself.
type Expref struct {
	Node *ast.Node
}

// Tag is one of the JMESPath type names observable via the type()
// function.
type Tag string

const (
	TagNull    Tag = "null"
	TagBoolean Tag = "boolean"
	TagNumber  Tag = "number"
	TagString  Tag = "string"
	TagArray   Tag = "array"
	TagObject  Tag = "object"
	TagExpref  Tag = "expref"
)

// TypeOf returns the JMESPath type tag of v.
func TypeOf(v interface{}) Tag {
	switch v.(type) {
	case nil:
		return TagNull
	case bool:
		return TagBoolean
	case float64:
		return TagNumber
	case string:
		return TagString
	case []interface{}:
		return TagArray
	case Object:
		return TagObject
	case Expref:
		return TagExpref
	default:
		return TagNull
	}
}

// Truthy implements JMESPath truthiness: false, null, "", [], {} are
// falsey; everything else, including the number 0, is truthy.
func Truthy(v interface{}) bool {
	switch tv := v.(type) {
	case nil:
		return false
	case bool:
		return tv
	case string:
		return tv != ""
	case []interface{}:
		return len(tv) > 0
	case Object:
		return tv.Len() > 0
	default:
		return true
	}
}

// Equal implements JMESPath deep structural equality, with the extra
// rule that numeric 0/1 are never equal to false/true.
func Equal(a, b interface{}) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for pair := av.Oldest(); pair != nil; pair = pair.Next() {
			otherVal, present := bv.Get(pair.Key)
			if !present || !Equal(pair.Value, otherVal) {
				return false
			}
		}
		return true
	case Expref:
		bv, ok := b.(Expref)
		return ok && av.Node == bv.Node
	default:
		return false
	}
}

// Keys returns the insertion-ordered keys of an object.
func Keys(o Object) []string {
	keys := make([]string, 0, o.Len())
	for pair := o.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Values returns the insertion-ordered values of an object.
func Values(o Object) []interface{} {
	vals := make([]interface{}, 0, o.Len())
	for pair := o.Oldest(); pair != nil; pair = pair.Next() {
		vals = append(vals, pair.Value)
	}
	return vals
}
