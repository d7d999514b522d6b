// Package functions implements the JMESPath built-in function
// library: the signature/type-tag argument binding and checking
// algorithm, plus the function bodies themselves.
package functions

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/value"
)

// ParamSpec is the set of type tags a single parameter position
// accepts. An array-X tag (ArrayOf) additionally constrains every
// element of an accepted array argument to tag X.
type ParamSpec struct {
	Tags    []value.Tag
	ArrayOf []value.Tag // non-empty only for array-number / array-string style params
}

// Any accepts every value without a tag check.
func Any() ParamSpec { return ParamSpec{Tags: []value.Tag{"any"}} }

// Of accepts exactly the listed tags.
func Of(tags ...value.Tag) ParamSpec { return ParamSpec{Tags: tags} }

// ArrayOfTag accepts an array whose elements all carry one of subtypes.
func ArrayOfTag(subtypes ...value.Tag) ParamSpec {
	return ParamSpec{Tags: []value.Tag{value.TagArray}, ArrayOf: subtypes}
}

// Signature is a function's declared arity and parameter type specs.
type Signature struct {
	Name     string
	Params   []ParamSpec
	Variadic bool
}

// Accepts reports whether argc positional arguments satisfy the arity
// rule: exact match for fixed-arity, at-least for variadic.
func (s Signature) Accepts(argc int) bool {
	if s.Variadic {
		return argc >= len(s.Params)
	}
	return argc == len(s.Params)
}

// ArityError builds the parse-time error for a call with argc
// arguments, choosing VariadicArity or InvalidArity by the
// signature's variadic flag.
func (s Signature) ArityError(argc int) *errs.Error {
	kind := errs.InvalidArity
	if s.Variadic {
		kind = errs.VariadicArity
	}
	return errs.New(kind, "invalid arity for "+s.Name)
}

// paramAt returns the spec governing positional argument i, binding
// overflow arguments of a variadic call to the final declared spec.
func (s Signature) paramAt(i int) ParamSpec {
	if i < len(s.Params) {
		return s.Params[i]
	}
	return s.Params[len(s.Params)-1]
}

// CheckArgs type-checks args against the declared parameter specs,
// returning an *errs.Error of kind InvalidType on the first mismatch.
func (s Signature) CheckArgs(args []interface{}) error {
	for i, arg := range args {
		spec := s.paramAt(i)
		if err := checkOne(s.Name, i, spec, arg); err != nil {
			return err
		}
	}
	return nil
}

func checkOne(fn string, index int, spec ParamSpec, arg interface{}) error {
	for _, t := range spec.Tags {
		if t == "any" {
			return nil
		}
	}
	tag := value.TypeOf(arg)
	accepted := false
	for _, t := range spec.Tags {
		if t == tag {
			accepted = true
			break
		}
	}
	if !accepted {
		return invalidType(fn, index, spec, arg, tag)
	}
	if tag == value.TagArray && len(spec.ArrayOf) > 0 {
		return checkArraySubtype(fn, index, spec, arg.([]interface{}))
	}
	return nil
}

func checkArraySubtype(fn string, index int, spec ParamSpec, elems []interface{}) error {
	if len(elems) == 0 {
		return nil
	}
	pinned := value.TypeOf(elems[0])
	pinnedOK := false
	for _, t := range spec.ArrayOf {
		if t == pinned {
			pinnedOK = true
			break
		}
	}
	if !pinnedOK {
		return invalidType(fn, index, spec, elems[0], pinned)
	}
	for _, e := range elems[1:] {
		if value.TypeOf(e) != pinned {
			return invalidType(fn, index, spec, e, value.TypeOf(e))
		}
	}
	return nil
}

func invalidType(fn string, index int, spec ParamSpec, arg interface{}, tag value.Tag) error {
	var expected []string
	if len(spec.ArrayOf) > 0 {
		for _, t := range spec.ArrayOf {
			expected = append(expected, "array-"+string(t))
		}
	} else {
		for _, t := range spec.Tags {
			expected = append(expected, string(t))
		}
	}
	shown, err := json.Marshal(arg)
	if err != nil || tag == value.TagExpref {
		shown = []byte(string(tag))
	}
	return errs.New(errs.InvalidType, "in function "+fn+"(), argument "+strconv.Itoa(index+1)+": invalid type for value: "+
		string(shown)+", expected one of: "+strings.Join(expected, ", ")+", received: "+string(tag))
}
