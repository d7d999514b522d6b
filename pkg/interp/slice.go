package interp

import (
	"github.com/sandrolain/jpath/pkg/ast"
	"github.com/sandrolain/jpath/pkg/errs"
)

// evalSlice implements JMESPath array slicing: defined only on
// arrays, step must be non-zero, negative step reverses, and
// start/stop are clamped the way Python's slice semantics clamp them.
func evalSlice(node *ast.Node, cur interface{}) (interface{}, error) {
	arr, ok := cur.([]interface{})
	if !ok {
		return nil, nil
	}
	step := 1
	if node.SliceStep != nil {
		step = *node.SliceStep
	}
	if step == 0 {
		return nil, errs.NewAt(errs.InvalidValue, "slice step cannot be zero", node.Position)
	}
	length := len(arr)
	start, stop := sliceBounds(length, node.SliceStart, node.SliceStop, step)

	out := []interface{}{}
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, arr[i])
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, arr[i])
		}
	}
	return out, nil
}

func sliceBounds(length int, startPtr, stopPtr *int, step int) (start, stop int) {
	if step > 0 {
		if startPtr == nil {
			start = 0
		} else {
			start = capIndex(length, *startPtr, step)
		}
		if stopPtr == nil {
			stop = length
		} else {
			stop = capIndex(length, *stopPtr, step)
		}
		return start, stop
	}
	if startPtr == nil {
		start = length - 1
	} else {
		start = capIndex(length, *startPtr, step)
	}
	if stopPtr == nil {
		stop = -1
	} else {
		stop = capIndex(length, *stopPtr, step)
	}
	return start, stop
}

func capIndex(length, actual, step int) int {
	if actual < 0 {
		actual += length
		if actual < 0 {
			if step > 0 {
				return 0
			}
			return -1
		}
		return actual
	}
	if actual >= length {
		if step > 0 {
			return length
		}
		return length - 1
	}
	return actual
}
