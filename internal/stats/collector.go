// Package stats provides a unified interface for collecting cache metrics.
package stats

// Metric names used throughout the library.
const (
	// Access metrics.
	MetricHits      = "milvus_cache_hits_total"
	MetricMisses    = "milvus_cache_misses_total"
	MetricInserts   = "milvus_cache_inserts_total"
	MetricEvictions = "milvus_cache_evictions_total"

	// Occupancy metrics.
	MetricUsageBytes    = "milvus_cache_usage_bytes"
	MetricCapacityBytes = "milvus_cache_capacity_bytes"
	MetricEntries       = "milvus_cache_entries"

	// Eviction pass metrics.
	MetricEvictionReleasedBytes = "milvus_cache_eviction_released_bytes"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
