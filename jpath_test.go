package jpath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/jpath"
	"github.com/sandrolain/jpath/pkg/value"
)

func TestSearchFieldAccess(t *testing.T) {
	got, err := jpath.Search("foo.bar", map[string]interface{}{"foo": map[string]interface{}{"bar": "baz"}})
	require.NoError(t, err)
	assert.Equal(t, "baz", got)
}

func TestSearchProjectionAndFlatten(t *testing.T) {
	data := map[string]interface{}{"foo": []interface{}{
		map[string]interface{}{"bar": 1.0},
		map[string]interface{}{"bar": 2.0},
		map[string]interface{}{"bar": 3.0},
	}}
	got, err := jpath.Search("foo[*].bar", data)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, got)
}

func TestCompileThenSearch(t *testing.T) {
	expr, err := jpath.Compile("a.b[?c==`1`].d")
	require.NoError(t, err)
	got, err := expr.Search(map[string]interface{}{
		"a": map[string]interface{}{"b": []interface{}{
			map[string]interface{}{"c": 1.0, "d": "yes"},
			map[string]interface{}{"c": 2.0, "d": "no"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"yes"}, got)
}

func TestCompileIsReusableAcrossDifferentData(t *testing.T) {
	expr, err := jpath.Compile("name")
	require.NoError(t, err)

	got1, err := expr.Search(map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	got2, err := expr.Search(map[string]interface{}{"name": "bob"})
	require.NoError(t, err)

	assert.Equal(t, "alice", got1)
	assert.Equal(t, "bob", got2)
}

func TestMustCompilePanicsOnParseError(t *testing.T) {
	assert.Panics(t, func() {
		jpath.MustCompile("foo]bar")
	})
}

func TestMustCompileDoesNotPanicOnValidExpression(t *testing.T) {
	assert.NotPanics(t, func() {
		jpath.MustCompile("foo.bar")
	})
}

func TestSearchEmptyExpressionIsError(t *testing.T) {
	_, err := jpath.Search("", map[string]interface{}{})
	require.Error(t, err)
	var e *jpath.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, jpath.EmptyExpression, e.Kind)
}

func TestSearchUnknownFunctionIsParseTimeError(t *testing.T) {
	_, err := jpath.Search("nope(@)", map[string]interface{}{})
	require.Error(t, err)
	var e *jpath.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, jpath.UnknownFunction, e.Kind)
}

func TestWithCustomFunction(t *testing.T) {
	shout := jpath.CustomFunctionDef{
		Name:   "shout",
		Params: []jpath.ParamSpec{jpath.Of(jpath.TagString)},
		Fn: func(args []interface{}) (interface{}, error) {
			return args[0].(string) + "!", nil
		},
	}
	got, err := jpath.Search("shout(greeting)", map[string]interface{}{"greeting": "hi"},
		jpath.WithCustomFunction(shout))
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)
}

func TestWithCustomFunctionNeverShadowsBuiltin(t *testing.T) {
	fake := jpath.CustomFunctionDef{
		Name:   "length",
		Params: []jpath.ParamSpec{jpath.Any()},
		Fn: func(args []interface{}) (interface{}, error) {
			return -1.0, nil
		},
	}
	got, err := jpath.Search("length(@)", "abc", jpath.WithCustomFunction(fake))
	require.NoError(t, err)
	assert.Equal(t, 3.0, got, "a custom function named length must not shadow the built-in")
}

func TestWithCaching(t *testing.T) {
	cache := jpath.NewCache(8)
	for i := 0; i < 3; i++ {
		got, err := jpath.Search("a.b", map[string]interface{}{"a": map[string]interface{}{"b": "v"}},
			jpath.WithCache(cache))
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	}
}

func TestWithMaxNestingDepthRejectsDeepExpressions(t *testing.T) {
	src := ""
	for i := 0; i < 40; i++ {
		src += "["
	}
	src += "0"
	for i := 0; i < 40; i++ {
		src += "]"
	}
	_, err := jpath.Compile(src, jpath.WithMaxNestingDepth(5))
	require.Error(t, err)
	var e *jpath.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, jpath.ParseError, e.Kind)
}

func TestWithDebugDoesNotChangeResult(t *testing.T) {
	got, err := jpath.Search("foo", map[string]interface{}{"foo": "bar"}, jpath.WithDebug(true))
	require.NoError(t, err)
	assert.Equal(t, "bar", got)
}

// search(@, v) == v for any document shape. Inputs built from plain Go
// maps/slices are normalized into the engine's own value representation
// on the way in (see value.Normalize), so equality is checked with
// JMESPath value equality against the normalized input rather than
// reflect.DeepEqual against the caller's original Go literal.
func TestIdentityPropertyAcrossDocumentShapes(t *testing.T) {
	docs := []interface{}{
		nil,
		true,
		42.0,
		"a string",
		[]interface{}{1.0, 2.0},
		map[string]interface{}{"k": "v"},
	}
	for _, d := range docs {
		got, err := jpath.Search("@", d)
		require.NoError(t, err)
		assert.True(t, value.Equal(value.Normalize(d), got))
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	const src = "foo[?bar==`1`] | [0].baz"
	a, err := jpath.Compile(src)
	require.NoError(t, err)
	b, err := jpath.Compile(src)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.ID(), b.ID(), "each compilation gets a fresh diagnostic id")
}

func TestIncompleteExpressionErrorPosition(t *testing.T) {
	_, err := jpath.Search("foo.", map[string]interface{}{})
	require.Error(t, err)
	var e *jpath.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, jpath.IncompleteExpression, e.Kind)
	assert.Equal(t, 4, e.Position)
}
