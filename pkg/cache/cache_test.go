package cache_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/sandrolain/goreql/pkg/cache"
	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/reql"
)

func build(v float64) *ql2.Term {
	return reql.Expr(v).Add(1).Release()
}

func TestCacheNew(t *testing.T) {
	c := cache.New(10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := cache.New(0)
	if got := c.Capacity(); got != 256 {
		t.Fatalf("expected default capacity 256, got %d", got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New(4)
	term := build(1)
	c.Set("a", term)
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Equal(term) {
		t.Fatalf("expected %s, got %s", term, got)
	}
	if got == term {
		t.Fatal("expected a copy, got the stored pointer")
	}
}

func TestCacheReturnsIndependentCopies(t *testing.T) {
	c := cache.New(4)
	term := build(1)
	c.Set("a", term)
	term.Args[0].Datum.Num = 50 // caller keeps ownership of what it passed in

	first, _ := c.Get("a")
	first.Args[0].Datum.Num = 99
	second, _ := c.Get("a")
	if second.Args[0].Datum.Num != 1 {
		t.Fatalf("expected cached value 1, got %s", second)
	}
}

func TestCacheMiss(t *testing.T) {
	c := cache.New(4)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New(3)
	for i, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, build(float64(i)))
	}
	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal(`expected "a" to be evicted (LRU)`)
	}
	if _, ok := c.Get("d"); !ok {
		t.Fatal(`expected most-recently-inserted "d" to survive`)
	}
}

func TestCacheGetPromotes(t *testing.T) {
	c := cache.New(2)
	c.Set("a", build(1))
	c.Set("b", build(2))
	c.Get("a")
	c.Set("c", build(3))
	if _, ok := c.Get("a"); !ok {
		t.Fatal(`expected recently read "a" to survive`)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal(`expected "b" to be evicted`)
	}
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := cache.New(4)
	c.Set("k", build(1))
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after Invalidate")
	}
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, build(1))
	}
	c.Clear()
	if got := c.Len(); got != 0 {
		t.Fatalf("expected 0 after Clear, got %d", got)
	}
}

func TestCacheGetOrBuild(t *testing.T) {
	c := cache.New(4)
	calls := 0
	fn := func() (*ql2.Term, error) {
		calls++
		return build(7), nil
	}

	t1, hit, err := c.GetOrBuild("k", fn)
	if err != nil || t1 == nil || hit {
		t.Fatalf("first GetOrBuild: term=%v hit=%v err=%v", t1, hit, err)
	}
	t2, hit, err := c.GetOrBuild("k", fn)
	if err != nil || !hit {
		t.Fatalf("second GetOrBuild: hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 build call, got %d", calls)
	}
	if !t1.Equal(t2) {
		t.Fatalf("expected equal terms, got %s and %s", t1, t2)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Len != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCacheGetOrBuildError(t *testing.T) {
	c := cache.New(4)
	boom := errors.New("boom")
	if _, _, err := c.GetOrBuild("k", func() (*ql2.Term, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("expected errors not to be cached")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := cache.New(8)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%8))
			term, _, err := c.GetOrBuild(key, func() (*ql2.Term, error) { return build(float64(i % 8)), nil })
			if err != nil || term == nil {
				t.Errorf("GetOrBuild(%s): %v", key, err)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 8 {
		t.Fatalf("expected 8 entries, got %d", c.Len())
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := cache.New(16)
	c.Set("k", build(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := c.Get("k"); !ok {
			b.Fatal("expected hit")
		}
	}
}
