// Package simulation replays reproducible key-access workloads against a
// cache to measure hit rates, eviction behavior and operation latency.
package simulation

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fireae/milvus"
)

// Distribution selects how workload keys are drawn from the key space.
type Distribution string

const (
	// DistributionUniform draws every key with equal probability.
	DistributionUniform Distribution = "uniform"

	// DistributionZipf draws keys with a heavy skew toward a small hot set,
	// the usual shape of real cache traffic.
	DistributionZipf Distribution = "zipf"
)

// Workload describes one reproducible access pattern.
type Workload struct {
	Name         string
	Ops          int          // Total lookups to perform.
	KeySpace     int          // Number of distinct keys.
	MinValueSize int          // Smallest payload, bytes.
	MaxValueSize int          // Largest payload, bytes.
	Distribution Distribution // Key-draw distribution.
	Seed         int64        // Seed for the key sequence.
}

// Result contains the outcome of replaying one workload.
type Result struct {
	Workload Workload

	Lookups int
	Hits    int
	Misses  int

	// LatencyNS holds one get-or-insert latency per operation, in
	// nanoseconds, for downstream statistical analysis.
	LatencyNS []float64

	// CacheStats is the cache's own snapshot after the run.
	CacheStats milvus.Stats
}

// HitRate returns the workload hit rate as a percentage.
func (r *Result) HitRate() float64 {
	if r.Lookups == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Lookups) * 100
}

// Simulator replays workloads against a cache.
type Simulator struct {
	cache *milvus.Cache
}

// NewSimulator creates a Simulator driving the given cache.
func NewSimulator(cache *milvus.Cache) *Simulator {
	return &Simulator{cache: cache}
}

// Run replays the workload: each operation looks the key up and, on a miss,
// inserts a payload of the key's size. The key sequence is fully determined
// by the workload's seed.
func (s *Simulator) Run(w Workload) (*Result, error) {
	if w.Ops <= 0 {
		return nil, fmt.Errorf("simulation: workload %q has no operations", w.Name)
	}
	if w.KeySpace <= 0 {
		return nil, fmt.Errorf("simulation: workload %q has an empty key space", w.Name)
	}
	if w.MinValueSize < 0 || w.MaxValueSize < w.MinValueSize {
		return nil, fmt.Errorf("simulation: workload %q has an invalid value size range [%d, %d]",
			w.Name, w.MinValueSize, w.MaxValueSize)
	}

	draw, err := newKeyDrawer(w)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Workload:  w,
		LatencyNS: make([]float64, 0, w.Ops),
	}

	for i := 0; i < w.Ops; i++ {
		id := draw()
		key := fmt.Sprintf("key-%d", id)

		start := time.Now()
		if _, ok := s.cache.Get(key); ok {
			result.Hits++
		} else {
			result.Misses++
			s.cache.Insert(key, milvus.Blob(make([]byte, valueSize(id, w))))
		}
		result.LatencyNS = append(result.LatencyNS, float64(time.Since(start).Nanoseconds()))
		result.Lookups++
	}

	result.CacheStats = s.cache.Stats()
	return result, nil
}

// newKeyDrawer returns a deterministic generator of key IDs in
// [0, w.KeySpace).
func newKeyDrawer(w Workload) (func() uint64, error) {
	rng := rand.New(rand.NewSource(w.Seed))
	switch w.Distribution {
	case DistributionUniform, "":
		n := uint64(w.KeySpace)
		return func() uint64 { return rng.Uint64() % n }, nil
	case DistributionZipf:
		zipf := rand.NewZipf(rng, 1.1, 1, uint64(w.KeySpace-1))
		return zipf.Uint64, nil
	default:
		return nil, fmt.Errorf("simulation: unknown distribution %q", w.Distribution)
	}
}

// valueSize derives a stable payload size for a key ID, so a key re-inserted
// after eviction contributes the same number of bytes as before.
func valueSize(id uint64, w Workload) int {
	span := w.MaxValueSize - w.MinValueSize + 1
	return w.MinValueSize + int((id*2654435761)%uint64(span))
}
