package milvus

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

// verifyUsage checks that usage equals the sum of the live entries' sizes and
// is non-negative.
func verifyUsage(t *testing.T, c *Cache) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum int64
	for _, key := range c.store.Keys() {
		e, ok := c.store.Peek(key)
		if !ok {
			t.Fatalf("key %q listed but not peekable", key)
		}
		sum += e.data.Size()
	}
	if c.usage != sum {
		t.Fatalf("usage = %d, want %d (sum of entry sizes)", c.usage, sum)
	}
	if c.usage < 0 {
		t.Fatalf("usage = %d, must never be negative", c.usage)
	}
}

func mustNewCache(t *testing.T, capacity int64, opts ...Option) *Cache {
	t.Helper()
	c, err := NewCache(capacity, opts...)
	if err != nil {
		t.Fatalf("NewCache(%d) error = %v", capacity, err)
	}
	return c
}

func TestNewCache_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int64{0, -1, -100} {
		if _, err := NewCache(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewCache(%d) error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}
}

func TestNewCache_InvalidThreshold(t *testing.T) {
	for _, fraction := range []float64{0, -0.5, 1.01} {
		_, err := NewCache(100, WithThresholdFraction(fraction))
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("NewCache(WithThresholdFraction(%v)) error = %v, want ErrInvalidThreshold",
				fraction, err)
		}
	}
}

func TestCache_GetMissAndHit(t *testing.T) {
	c := mustNewCache(t, 100)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = ok, want miss")
	}

	c.Insert("a", Blob("hello"))
	data, ok := c.Get("a")
	if !ok {
		t.Fatal("Get(a) missed after Insert")
	}
	if string(data.(Blob)) != "hello" {
		t.Errorf("Get(a) = %q, want %q", data, "hello")
	}
}

func TestCache_ExistsDoesNotPromote(t *testing.T) {
	c := mustNewCache(t, 100, WithThresholdFraction(1.0))

	c.Insert("a", Blob(make([]byte, 40)))
	c.Insert("b", Blob(make([]byte, 40)))

	if !c.Exists("a") {
		t.Fatal("Exists(a) = false, want true")
	}

	// a stayed least-recently-used, so it is the one evicted.
	c.Insert("c", Blob(make([]byte, 40)))
	if c.Exists("a") {
		t.Error("a should have been evicted; Exists must not promote")
	}
	if !c.Exists("b") {
		t.Error("b should have survived")
	}
}

func TestCache_UsageConsistency(t *testing.T) {
	c := mustNewCache(t, 1<<20)

	ops := []struct {
		name string
		run  func()
	}{
		{"insert a", func() { c.Insert("a", Blob(make([]byte, 10))) }},
		{"insert b", func() { c.Insert("b", Blob(make([]byte, 20))) }},
		{"overwrite a", func() { c.Insert("a", Blob(make([]byte, 5))) }},
		{"erase b", func() { c.Erase("b") }},
		{"erase missing", func() { c.Erase("nope") }},
		{"insert c", func() { c.Insert("c", Blob(make([]byte, 7))) }},
		{"clear", func() { c.Clear() }},
		{"insert after clear", func() { c.Insert("d", Blob(make([]byte, 3))) }},
	}

	for _, op := range ops {
		op.run()
		verifyUsage(t, c)
	}
}

func TestCache_OverwriteAdjustsUsageByDelta(t *testing.T) {
	c := mustNewCache(t, 1000)

	c.Insert("key", Blob(make([]byte, 10)))
	if got := c.Usage(); got != 10 {
		t.Fatalf("Usage() = %d, want 10", got)
	}

	c.Insert("key", Blob(make([]byte, 25)))
	if got := c.Usage(); got != 25 {
		t.Errorf("Usage() after overwrite = %d, want 25 (not 35)", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	verifyUsage(t, c)
}

func TestCache_LRUOrderRespected(t *testing.T) {
	// Threshold fraction 1.0 makes an eviction pass free exactly the
	// over-capacity amount, so a single victim suffices.
	c := mustNewCache(t, 100, WithThresholdFraction(1.0))

	c.Insert("a", Blob(make([]byte, 30)))
	c.Insert("b", Blob(make([]byte, 30)))
	c.Insert("c", Blob(make([]byte, 30)))

	// Promote a: b becomes the least-recently-used entry.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) missed")
	}

	c.Insert("d", Blob(make([]byte, 30)))

	if c.Exists("b") {
		t.Error("b should have been evicted as least-recently-used")
	}
	for _, key := range []string{"a", "c", "d"} {
		if !c.Exists(key) {
			t.Errorf("%s should have survived", key)
		}
	}
	verifyUsage(t, c)
}

func TestCache_ThresholdBehavior(t *testing.T) {
	// capacity 100, default fraction 0.85: exceeding capacity must bring
	// usage down to at most 85, not just back to 100.
	c := mustNewCache(t, 100)

	c.Insert("k1", Blob(make([]byte, 50)))
	c.Insert("k2", Blob(make([]byte, 50)))
	if got := c.Usage(); got != 100 {
		t.Fatalf("Usage() = %d, want 100 (no eviction at exactly capacity)", got)
	}

	c.Insert("k3", Blob(make([]byte, 30)))

	if got := c.Usage(); got > 85 {
		t.Errorf("Usage() after eviction = %d, want <= 85", got)
	}
	if c.Exists("k1") {
		t.Error("k1 was least-recently-used and should have been evicted")
	}
	verifyUsage(t, c)
}

func TestCache_EraseIdempotent(t *testing.T) {
	c := mustNewCache(t, 100)
	c.Insert("a", Blob(make([]byte, 10)))

	c.Erase("missing")
	if got := c.Usage(); got != 10 {
		t.Errorf("Usage() = %d after erasing missing key, want 10", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d after erasing missing key, want 1", got)
	}

	c.Erase("a")
	c.Erase("a")
	if got := c.Usage(); got != 0 {
		t.Errorf("Usage() = %d after double erase, want 0", got)
	}
	verifyUsage(t, c)
}

func TestCache_SetCapacityShrinkReclaims(t *testing.T) {
	c := mustNewCache(t, 100)

	for i := 0; i < 3; i++ {
		c.Insert(fmt.Sprintf("k%d", i), Blob(make([]byte, 30)))
	}
	if got := c.Usage(); got != 90 {
		t.Fatalf("Usage() = %d, want 90", got)
	}

	// Shrinking must reclaim immediately, without waiting for an insert.
	c.SetCapacity(50)

	shrunkCap := float64(50)
	threshold := int64(shrunkCap * 0.85)
	if got := c.Usage(); got > threshold {
		t.Errorf("Usage() after shrink = %d, want <= %d", got, threshold)
	}
	if got := c.Capacity(); got != 50 {
		t.Errorf("Capacity() = %d, want 50", got)
	}
	verifyUsage(t, c)
}

func TestCache_SetCapacityNonPositiveIgnored(t *testing.T) {
	c := mustNewCache(t, 100)
	c.Insert("a", Blob(make([]byte, 40)))

	c.SetCapacity(0)
	c.SetCapacity(-5)

	if got := c.Capacity(); got != 100 {
		t.Errorf("Capacity() = %d, want 100 (non-positive values ignored)", got)
	}
	if got := c.Usage(); got != 40 {
		t.Errorf("Usage() = %d, want 40", got)
	}
	if !c.Exists("a") {
		t.Error("a should be untouched by rejected capacity changes")
	}
}

func TestCache_ZeroSizePayload(t *testing.T) {
	c := mustNewCache(t, 100)

	c.Insert("empty", Blob(nil))
	if got := c.Usage(); got != 0 {
		t.Errorf("Usage() = %d, want 0", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 (zero-size payload still occupies a slot)", got)
	}
	if _, ok := c.Get("empty"); !ok {
		t.Error("Get(empty) missed")
	}
}

func TestCache_NilPayloadIgnored(t *testing.T) {
	c := mustNewCache(t, 100)
	c.Insert("nil", nil)

	if c.Exists("nil") {
		t.Error("nil payload should not be inserted")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestCache_MaxEntriesBound(t *testing.T) {
	c := mustNewCache(t, 1<<20, WithMaxEntries(2))

	c.Insert("a", Blob(make([]byte, 10)))
	c.Insert("b", Blob(make([]byte, 10)))
	c.Insert("c", Blob(make([]byte, 10)))

	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if c.Exists("a") {
		t.Error("a should have been dropped by the entry bound")
	}
	if got := c.Usage(); got != 20 {
		t.Errorf("Usage() = %d, want 20 (bound eviction must settle usage)", got)
	}
	verifyUsage(t, c)
}

func TestCache_Clear(t *testing.T) {
	c := mustNewCache(t, 100)
	c.Insert("a", Blob(make([]byte, 10)))
	c.Insert("b", Blob(make([]byte, 20)))

	c.Clear()

	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := c.Usage(); got != 0 {
		t.Errorf("Usage() = %d, want 0", got)
	}
	if c.Exists("a") || c.Exists("b") {
		t.Error("entries should be gone after Clear")
	}
}

func TestCache_EvictionDropsCacheReferenceOnly(t *testing.T) {
	c := mustNewCache(t, 100, WithThresholdFraction(1.0))

	c.Insert("a", Blob("payload-a"))
	held, ok := c.Get("a")
	if !ok {
		t.Fatal("Get(a) missed")
	}

	c.Erase("a")

	// The caller's handle stays valid after the cache drops its own.
	if string(held.(Blob)) != "payload-a" {
		t.Errorf("held payload = %q, want %q", held, "payload-a")
	}
}

func TestCache_Stats(t *testing.T) {
	c := mustNewCache(t, 100)
	c.Insert("a", Blob(make([]byte, 10)))

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 {
		t.Errorf("Stats().Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", s.Misses)
	}
	if s.Entries != 1 {
		t.Errorf("Stats().Entries = %d, want 1", s.Entries)
	}
	if s.Usage != 10 {
		t.Errorf("Stats().Usage = %d, want 10", s.Usage)
	}
	if s.Capacity != 100 {
		t.Errorf("Stats().Capacity = %d, want 100", s.Capacity)
	}
	if got := s.HitRate(); got < 66 || got > 67 {
		t.Errorf("Stats().HitRate() = %v, want ~66.7", got)
	}
}

func TestStats_HitRate(t *testing.T) {
	tests := []struct {
		name     string
		hits     int64
		misses   int64
		expected float64
	}{
		{"no requests", 0, 0, 0},
		{"all hits", 10, 0, 100},
		{"all misses", 0, 10, 0},
		{"50% hit rate", 5, 5, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Stats{Hits: tt.hits, Misses: tt.misses}
			if got := s.HitRate(); got != tt.expected {
				t.Errorf("HitRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCache_ConcurrentInsertGet(t *testing.T) {
	c := mustNewCache(t, 1<<20)

	const (
		writers       = 8
		readers       = 4
		keysPerWriter = 200
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keysPerWriter; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				c.Insert(key, Blob(make([]byte, 1+i%64)))
			}
		}(w)
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(r)))
			for i := 0; i < writers*keysPerWriter; i++ {
				key := fmt.Sprintf("w%d-k%d", rng.Intn(writers), rng.Intn(keysPerWriter))
				c.Get(key)
				c.Exists(key)
			}
		}(r)
	}
	wg.Wait()

	if got := c.Len(); got != writers*keysPerWriter {
		t.Errorf("Len() = %d, want %d", got, writers*keysPerWriter)
	}
	verifyUsage(t, c)
}

// TestCache_ConcurrentEvictionStress hammers a small cache so eviction passes
// overlap with inserts, reads and erases. The eviction scan intentionally
// releases the lock before erasing its victims, so a victim promoted in that
// window may still be evicted; whatever interleaving happens, usage must end
// up equal to the surviving entries' sizes and never go negative.
func TestCache_ConcurrentEvictionStress(t *testing.T) {
	c := mustNewCache(t, 4096)

	const (
		goroutines = 8
		iterations = 500
		keySpace   = 64
	)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(g)))
			for i := 0; i < iterations; i++ {
				key := fmt.Sprintf("k%d", rng.Intn(keySpace))
				switch rng.Intn(4) {
				case 0, 1:
					c.Insert(key, Blob(make([]byte, 1+rng.Intn(512))))
				case 2:
					c.Get(key)
				case 3:
					c.Erase(key)
				}
			}
		}(g)
	}
	wg.Wait()

	verifyUsage(t, c)
}
