package cache

import (
	"sync"
	"testing"
)

func TestCache_Basic(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}
	if _, ok := c.Get("d"); ok {
		t.Error("Get(d) should miss")
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch 'a' so 'b' becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("'b' should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}
}

func TestCache_Update(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("a", 10)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should miss after Delete")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should miss after Clear")
	}
}

func TestCache_GetOrSet(t *testing.T) {
	c := New[string, int](2)

	calls := 0
	v := c.GetOrSet("a", func() int {
		calls++
		return 42
	})
	if v != 42 {
		t.Errorf("GetOrSet = %d; want 42", v)
	}

	v = c.GetOrSet("a", func() int {
		calls++
		return 99
	})
	if v != 42 {
		t.Errorf("GetOrSet = %d; want cached 42", v)
	}
	if calls != 1 {
		t.Errorf("fn called %d times; want 1", calls)
	}
}

func TestCache_Keys(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	seen := make(map[string]bool)
	for _, k := range c.Keys() {
		seen[k] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Errorf("Keys() missing %q", want)
		}
	}
}

func TestCache_ZeroCapacity(t *testing.T) {
	c := New[string, int](0)

	for i := 0; i < 50; i++ {
		c.Set(string(rune('a'+i)), i)
	}
	if c.Len() != 50 {
		t.Errorf("Len() = %d; want 50", c.Len())
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(i, i*10)
			c.GetOrSet(i, func() int { return i * 10 })
			c.Get(i)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		if v, ok := c.Get(i); ok && v != i*10 {
			t.Errorf("Get(%d) = %d; want %d", i, v, i*10)
		}
	}
}

func BenchmarkCache_GetOrSet(b *testing.B) {
	c := New[int, int](1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetOrSet(i%1000, func() int { return i })
	}
}
