// Package analysis provides statistical analysis for workload results.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DescriptiveStats contains basic descriptive statistics for a sample.
type DescriptiveStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P90    float64
	P99    float64
}

// Describe computes descriptive statistics for a sample.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}

	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	return &DescriptiveStats{
		N:      len(sample),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		StdDev: stat.StdDev(sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}

// Comparison contains the difference between two samples.
type Comparison struct {
	Name1, Name2   string
	Stats1, Stats2 *DescriptiveStats

	MeanDiff    float64 // Positive means sample1's mean is larger.
	MeanDiffPct float64
}

// Compare describes two samples and their mean difference.
func Compare(name1 string, sample1 []float64, name2 string, sample2 []float64) *Comparison {
	s1 := Describe(sample1)
	s2 := Describe(sample2)

	c := &Comparison{
		Name1:    name1,
		Name2:    name2,
		Stats1:   s1,
		Stats2:   s2,
		MeanDiff: s1.Mean - s2.Mean,
	}
	if s2.Mean != 0 {
		c.MeanDiffPct = (s1.Mean - s2.Mean) / s2.Mean * 100
	}
	return c
}
