package functions

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/sandrolain/jpath/pkg/errs"
	"github.com/sandrolain/jpath/pkg/value"
)

func builtinTable() map[string]Entry {
	return map[string]Entry{
		"abs":         {Signature{Name: "abs", Params: []ParamSpec{Of(value.TagNumber)}}, callAbs},
		"avg":         {Signature{Name: "avg", Params: []ParamSpec{ArrayOfTag(value.TagNumber)}}, callAvg},
		"ceil":        {Signature{Name: "ceil", Params: []ParamSpec{Of(value.TagNumber)}}, callCeil},
		"contains":    {Signature{Name: "contains", Params: []ParamSpec{Of(value.TagArray, value.TagString), Any()}}, callContains},
		"ends_with":   {Signature{Name: "ends_with", Params: []ParamSpec{Of(value.TagString), Of(value.TagString)}}, callEndsWith},
		"floor":       {Signature{Name: "floor", Params: []ParamSpec{Of(value.TagNumber)}}, callFloor},
		"join":        {Signature{Name: "join", Params: []ParamSpec{Of(value.TagString), ArrayOfTag(value.TagString)}}, callJoin},
		"keys":        {Signature{Name: "keys", Params: []ParamSpec{Of(value.TagObject)}}, callKeys},
		"length":      {Signature{Name: "length", Params: []ParamSpec{Of(value.TagString, value.TagArray, value.TagObject)}}, callLength},
		"map":         {Signature{Name: "map", Params: []ParamSpec{Of(value.TagExpref), Of(value.TagArray)}}, callMap},
		"max":         {Signature{Name: "max", Params: []ParamSpec{ArrayOfTag(value.TagNumber, value.TagString)}}, callMax},
		"max_by":      {Signature{Name: "max_by", Params: []ParamSpec{Of(value.TagArray), Of(value.TagExpref)}}, callMaxBy},
		"min":         {Signature{Name: "min", Params: []ParamSpec{ArrayOfTag(value.TagNumber, value.TagString)}}, callMin},
		"min_by":      {Signature{Name: "min_by", Params: []ParamSpec{Of(value.TagArray), Of(value.TagExpref)}}, callMinBy},
		"not_null":    {Signature{Name: "not_null", Params: []ParamSpec{Any()}, Variadic: true}, callNotNull},
		"reverse":     {Signature{Name: "reverse", Params: []ParamSpec{Of(value.TagArray, value.TagString)}}, callReverse},
		"sort":        {Signature{Name: "sort", Params: []ParamSpec{ArrayOfTag(value.TagNumber, value.TagString)}}, callSort},
		"sort_by":     {Signature{Name: "sort_by", Params: []ParamSpec{Of(value.TagArray), Of(value.TagExpref)}}, callSortBy},
		"starts_with": {Signature{Name: "starts_with", Params: []ParamSpec{Of(value.TagString), Of(value.TagString)}}, callStartsWith},
		"sum":         {Signature{Name: "sum", Params: []ParamSpec{ArrayOfTag(value.TagNumber)}}, callSum},
		"to_array":    {Signature{Name: "to_array", Params: []ParamSpec{Any()}}, callToArray},
		"to_number":   {Signature{Name: "to_number", Params: []ParamSpec{Any()}}, callToNumber},
		"to_string":   {Signature{Name: "to_string", Params: []ParamSpec{Any()}}, callToString},
		"type":        {Signature{Name: "type", Params: []ParamSpec{Any()}}, callType},
		"values":      {Signature{Name: "values", Params: []ParamSpec{Of(value.TagObject)}}, callValues},
	}
}

func callAbs(_ Evaluator, args []interface{}) (interface{}, error) {
	return math.Abs(args[0].(float64)), nil
}

func callAvg(_ Evaluator, args []interface{}) (interface{}, error) {
	arr := args[0].([]interface{})
	if len(arr) == 0 {
		return nil, nil
	}
	var sum float64
	for _, e := range arr {
		sum += e.(float64)
	}
	return sum / float64(len(arr)), nil
}

func callCeil(_ Evaluator, args []interface{}) (interface{}, error) {
	return math.Ceil(args[0].(float64)), nil
}

func callContains(_ Evaluator, args []interface{}) (interface{}, error) {
	switch subject := args[0].(type) {
	case string:
		s, ok := args[1].(string)
		return ok && strings.Contains(subject, s), nil
	case []interface{}:
		for _, e := range subject {
			if value.Equal(e, args[1]) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func callEndsWith(_ Evaluator, args []interface{}) (interface{}, error) {
	return strings.HasSuffix(args[0].(string), args[1].(string)), nil
}

func callFloor(_ Evaluator, args []interface{}) (interface{}, error) {
	return math.Floor(args[0].(float64)), nil
}

func callJoin(_ Evaluator, args []interface{}) (interface{}, error) {
	sep := args[0].(string)
	arr := args[1].([]interface{})
	parts := make([]string, len(arr))
	for i, e := range arr {
		parts[i] = e.(string)
	}
	return strings.Join(parts, sep), nil
}

func callKeys(_ Evaluator, args []interface{}) (interface{}, error) {
	o := args[0].(value.Object)
	keys := value.Keys(o)
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}

func callLength(_ Evaluator, args []interface{}) (interface{}, error) {
	switch v := args[0].(type) {
	case string:
		return float64(len([]rune(v))), nil
	case []interface{}:
		return float64(len(v)), nil
	case value.Object:
		return float64(v.Len()), nil
	}
	return float64(0), nil
}

func callMap(ev Evaluator, args []interface{}) (interface{}, error) {
	ref, ok := args[0].(value.Expref)
	if !ok {
		return nil, errs.New(errs.InvalidType, "map: first argument must be an expression reference")
	}
	arr := args[1].([]interface{})
	out := make([]interface{}, len(arr))
	for i, e := range arr {
		v, err := ev.EvalExpref(ref, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func callMax(_ Evaluator, args []interface{}) (interface{}, error) {
	return extremum(args[0].([]interface{}), true)
}

func callMin(_ Evaluator, args []interface{}) (interface{}, error) {
	return extremum(args[0].([]interface{}), false)
}

func extremum(arr []interface{}, wantMax bool) (interface{}, error) {
	if len(arr) == 0 {
		return nil, nil
	}
	best := arr[0]
	for _, e := range arr[1:] {
		if less(best, e) == wantMax {
			best = e
		}
	}
	return best, nil
}

// less reports whether a < b for two values of the same JMESPath
// orderable type (number or string); behavior is undefined for any
// other pairing, since callers only ever pass array-number/array-string
// checked data.
func less(a, b interface{}) bool {
	switch av := a.(type) {
	case float64:
		return av < b.(float64)
	case string:
		return av < b.(string)
	}
	return false
}

func callMaxBy(ev Evaluator, args []interface{}) (interface{}, error) {
	return byExtremum(ev, args, true)
}

func callMinBy(ev Evaluator, args []interface{}) (interface{}, error) {
	return byExtremum(ev, args, false)
}

func byExtremum(ev Evaluator, args []interface{}, wantMax bool) (interface{}, error) {
	arr := args[0].([]interface{})
	if len(arr) == 0 {
		return nil, nil
	}
	ref, ok := args[1].(value.Expref)
	if !ok {
		return nil, errs.New(errs.InvalidType, "max_by/min_by: second argument must be an expression reference")
	}
	keys, pinned, err := pinnedKeys(ev, ref, arr, "max_by/min_by")
	if err != nil {
		return nil, err
	}
	bestIdx := 0
	for i := 1; i < len(arr); i++ {
		better := compareKeys(pinned, keys[i], keys[bestIdx])
		if wantMax {
			better = compareKeys(pinned, keys[bestIdx], keys[i])
		}
		if better {
			bestIdx = i
		}
	}
	return arr[bestIdx], nil
}

func compareKeys(tag value.Tag, a, b interface{}) bool {
	if tag == value.TagString {
		return a.(string) < b.(string)
	}
	return a.(float64) < b.(float64)
}

// pinnedKeys evaluates ref against every element of arr, pinning the
// accepted key type to the first element's key tag.
func pinnedKeys(ev Evaluator, ref value.Expref, arr []interface{}, fn string) ([]interface{}, value.Tag, error) {
	keys := make([]interface{}, len(arr))
	var pinned value.Tag
	for i, e := range arr {
		k, err := ev.EvalExpref(ref, e)
		if err != nil {
			return nil, "", err
		}
		tag := value.TypeOf(k)
		if i == 0 {
			if tag != value.TagNumber && tag != value.TagString {
				return nil, "", errs.New(errs.InvalidType, fn+": key function must return a number or string")
			}
			pinned = tag
		} else if tag != pinned {
			return nil, "", errs.New(errs.InvalidType, fn+": key function returned inconsistent types")
		}
		keys[i] = k
	}
	return keys, pinned, nil
}

func callNotNull(_ Evaluator, args []interface{}) (interface{}, error) {
	nonNull := lo.Filter(args, func(a interface{}, _ int) bool { return a != nil })
	if len(nonNull) == 0 {
		return nil, nil
	}
	return nonNull[0], nil
}

func callReverse(_ Evaluator, args []interface{}) (interface{}, error) {
	switch v := args[0].(type) {
	case string:
		runes := []rune(v)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	case []interface{}:
		out := lo.Map(v, func(e interface{}, _ int) interface{} { return e })
		return lo.Reverse(out), nil
	}
	return nil, nil
}

func callSort(_ Evaluator, args []interface{}) (interface{}, error) {
	arr := args[0].([]interface{})
	out := lo.Map(arr, func(e interface{}, _ int) interface{} { return e })
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func callSortBy(ev Evaluator, args []interface{}) (interface{}, error) {
	arr := args[0].([]interface{})
	if len(arr) == 0 {
		return []interface{}{}, nil
	}
	ref, ok := args[1].(value.Expref)
	if !ok {
		return nil, errs.New(errs.InvalidType, "sort_by: second argument must be an expression reference")
	}
	keys, pinned, err := pinnedKeys(ev, ref, arr, "sort_by")
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(arr))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return compareKeys(pinned, keys[idx[i]], keys[idx[j]])
	})
	out := make([]interface{}, len(arr))
	for i, j := range idx {
		out[i] = arr[j]
	}
	return out, nil
}

func callStartsWith(_ Evaluator, args []interface{}) (interface{}, error) {
	return strings.HasPrefix(args[0].(string), args[1].(string)), nil
}

func callSum(_ Evaluator, args []interface{}) (interface{}, error) {
	arr := args[0].([]interface{})
	var sum float64
	for _, e := range arr {
		sum += e.(float64)
	}
	return sum, nil
}

func callToArray(_ Evaluator, args []interface{}) (interface{}, error) {
	if arr, ok := args[0].([]interface{}); ok {
		return arr, nil
	}
	return []interface{}{args[0]}, nil
}

func callToNumber(_ Evaluator, args []interface{}) (interface{}, error) {
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil
		}
		return n, nil
	}
	return nil, nil
}

func callToString(_ Evaluator, args []interface{}) (interface{}, error) {
	if s, ok := args[0].(string); ok {
		return s, nil
	}
	// args[0] is nil, bool, float64, []interface{}, or value.Object; the
	// latter two marshal recursively through Object's own MarshalJSON, so
	// key order survives without a separate plain-map conversion step.
	b, err := json.Marshal(args[0])
	if err != nil {
		return nil, errs.New(errs.InvalidValue, "to_string: value cannot be serialized").WithCause(err)
	}
	return string(b), nil
}

func callType(_ Evaluator, args []interface{}) (interface{}, error) {
	return string(value.TypeOf(args[0])), nil
}

func callValues(_ Evaluator, args []interface{}) (interface{}, error) {
	o := args[0].(value.Object)
	return value.Values(o), nil
}
