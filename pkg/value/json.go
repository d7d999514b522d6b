package value

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ParseJSON decodes text into the engine's value representation,
// building Object (not a plain map[string]interface{}) for every JSON
// object so insertion order survives. encoding/json's default
// map-based decoding would discard it, which matters for keys()/
// values() and for multi-select-hash equality. Everything after the
// top-level value must be whitespace; trailing garbage is an error.
func ParseJSON(text string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

// Normalize converts an arbitrary Go value supplied by a caller of
// Search/Eval into the engine's own value representation, so the
// interpreter's type switches (evalField's `cur.(Object)` and friends)
// see exactly the shapes ParseJSON would have produced. Without this
// step a perfectly ordinary `map[string]interface{}` built by a caller
// (or decoded by encoding/json without UseNumber) would be invisible to
// Field/keys/values, since none of those are the engine's Object type.
//
// map[string]interface{} has no defined iteration order in Go, so its
// keys are sorted for a deterministic (if not caller-intended) object
// key order; callers that need to preserve a specific order should
// build the input with NewObject directly, or decode it with ParseJSON.
// Already-normalized values (Object, Expref, []interface{} of
// normalized elements) pass through unchanged; integer and
// encoding/json.Number values widen to float64, the engine's one
// numeric representation.
func Normalize(v interface{}) interface{} {
	switch tv := v.(type) {
	case nil, bool, string, float64, Object, Expref:
		return tv
	case json.Number:
		f, err := tv.Float64()
		if err != nil {
			return tv.String()
		}
		return f
	case int:
		return float64(tv)
	case int8:
		return float64(tv)
	case int16:
		return float64(tv)
	case int32:
		return float64(tv)
	case int64:
		return float64(tv)
	case uint:
		return float64(tv)
	case uint8:
		return float64(tv)
	case uint16:
		return float64(tv)
	case uint32:
		return float64(tv)
	case uint64:
		return float64(tv)
	case float32:
		return float64(tv)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = Normalize(e)
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, Normalize(tv[k]))
		}
		return obj
	default:
		return v
	}
}

func decodeJSONValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key")
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []interface{}{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		return t.Float64()
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
