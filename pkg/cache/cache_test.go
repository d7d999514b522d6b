package cache_test

import (
	"testing"

	"github.com/sandrolain/jpath/pkg/ast"
	"github.com/sandrolain/jpath/pkg/cache"
)

func compileStub(src string) *ast.CompiledExpression {
	return ast.New(&ast.Node{Kind: ast.Identity}, src)
}

func TestCacheNew(t *testing.T) {
	c := cache.New(10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := cache.New(0)
	// capacity isn't directly exposed; exercise it indirectly by
	// filling past DefaultCapacity and confirming eviction still runs.
	for i := 0; i < cache.DefaultCapacity+1; i++ {
		c.Set(string(rune('a'+i%26))+string(rune(i)), compileStub("@"))
	}
	if c.Len() > cache.DefaultCapacity {
		t.Fatalf("expected eviction once default capacity is exceeded, got %d entries", c.Len())
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New(4)
	expr := compileStub("foo.bar")
	c.Set("foo.bar", expr)
	if got := c.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	got, ok := c.Get("foo.bar")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != expr {
		t.Fatal("expected same expression pointer")
	}
}

func TestCacheMiss(t *testing.T) {
	c := cache.New(4)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

// TestCacheRandomEvictionHalvesOnOverflow exercises the eviction
// policy: on overflow, evict a random subset (half), not track
// recency.
func TestCacheRandomEvictionHalvesOnOverflow(t *testing.T) {
	c := cache.New(4)
	for i := 0; i < 4; i++ {
		c.Set(string(rune('a'+i)), compileStub("@"))
	}
	if got := c.Len(); got != 4 {
		t.Fatalf("expected 4 entries at capacity, got %d", got)
	}
	c.Set("e", compileStub("@")) // 5th insert triggers eviction before insert
	if got := c.Len(); got > 3 {
		t.Fatalf("expected eviction to roughly halve the cache, got %d entries", got)
	}
	if _, ok := c.Get("e"); !ok {
		t.Fatal("expected the just-inserted entry to survive its own insert")
	}
}

func TestCachePurge(t *testing.T) {
	c := cache.New(4)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, compileStub("@"))
	}
	c.Purge()
	if got := c.Len(); got != 0 {
		t.Fatalf("expected 0 after Purge, got %d", got)
	}
}

func TestCacheGetOrCompile(t *testing.T) {
	c := cache.New(4)
	callCount := 0
	compileFn := func() (*ast.CompiledExpression, error) {
		callCount++
		return compileStub("age"), nil
	}

	expr1, err := c.GetOrCompile("age", compileFn)
	if err != nil || expr1 == nil {
		t.Fatalf("first GetOrCompile: %v", err)
	}
	if callCount != 1 {
		t.Fatalf("expected 1 compile call, got %d", callCount)
	}

	expr2, err := c.GetOrCompile("age", compileFn)
	if err != nil || expr2 == nil {
		t.Fatalf("second GetOrCompile: %v", err)
	}
	if callCount != 1 {
		t.Fatalf("expected still 1 call (cached), got %d", callCount)
	}
	if expr1 != expr2 {
		t.Fatal("expected same pointer from cache")
	}
}

func TestCacheGetOrCompileDoesNotCacheErrors(t *testing.T) {
	c := cache.New(4)
	callCount := 0
	failOnce := func() (*ast.CompiledExpression, error) {
		callCount++
		if callCount == 1 {
			return nil, errNotCompilable{}
		}
		return compileStub("ok"), nil
	}
	if _, err := c.GetOrCompile("k", failOnce); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := c.GetOrCompile("k", failOnce); err != nil {
		t.Fatalf("expected second call to succeed, got %v", err)
	}
	if callCount != 2 {
		t.Fatalf("expected compile to be retried after a failure, callCount=%d", callCount)
	}
}

type errNotCompilable struct{}

func (errNotCompilable) Error() string { return "not compilable" }

func TestCacheSetUpdate(t *testing.T) {
	c := cache.New(4)
	expr1 := compileStub("a")
	expr2 := compileStub("b")
	c.Set("k", expr1)
	c.Set("k", expr2) // overwrite
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if got != expr2 {
		t.Fatal("expected updated expression pointer")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", c.Len())
	}
}
