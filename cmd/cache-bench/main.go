// Package main provides the cache-bench CLI tool for replaying reproducible
// key-access workloads against the cache and reporting hit rates, eviction
// behavior and latency.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fireae/milvus"
	"github.com/fireae/milvus/benchmark/analysis"
	"github.com/fireae/milvus/benchmark/reporting"
	"github.com/fireae/milvus/benchmark/simulation"
)

var (
	capacity          int64
	thresholdFraction float64
	maxEntries        int
	ops               int
	keySpace          int
	minValueSize      int
	maxValueSize      int
	distributions     []string
	seed              int64
	outputFormat      string
	outputFile        string
	verbose           bool
)

var rootCmd = &cobra.Command{
	Use:   "cache-bench",
	Short: "Benchmark workloads against the LRU cache",
	Long: `cache-bench replays reproducible key-access workloads against the cache
and reports hit rates, eviction counts and operation latency.

Each workload gets a fresh cache, so results are directly comparable.

Examples:
  # Compare zipf and uniform traffic against a 1 MiB cache
  cache-bench run --capacity 1048576

  # Stress eviction with a tighter threshold
  cache-bench run --capacity 65536 --threshold 0.7 --dists zipf

  # Output as markdown report
  cache-bench run --format markdown --output report.md`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the workload simulation",
	RunE:  runBenchmark,
}

func init() {
	runCmd.Flags().Int64VarP(&capacity, "capacity", "c", 1<<20, "cache capacity in bytes")
	runCmd.Flags().Float64VarP(&thresholdFraction, "threshold", "t", 0.85, "eviction threshold fraction in (0, 1]")
	runCmd.Flags().IntVar(&maxEntries, "max-entries", 0, "entry-count bound (0 = unbounded)")
	runCmd.Flags().IntVarP(&ops, "ops", "n", 100000, "operations per workload")
	runCmd.Flags().IntVarP(&keySpace, "keys", "k", 10000, "number of distinct keys")
	runCmd.Flags().IntVar(&minValueSize, "min-value", 64, "smallest payload size in bytes")
	runCmd.Flags().IntVar(&maxValueSize, "max-value", 1024, "largest payload size in bytes")
	runCmd.Flags().StringSliceVarP(&distributions, "dists", "d", []string{"zipf", "uniform"}, "key distributions to replay")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "workload seed")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug-level cache logs)")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer l.Sync()
		logger = l
	}

	// One fresh cache per workload so results are comparable.
	results := make([]*simulation.Result, 0, len(distributions))
	for _, dist := range distributions {
		cache, err := milvus.NewCache(capacity,
			milvus.WithThresholdFraction(thresholdFraction),
			milvus.WithMaxEntries(maxEntries),
			milvus.WithLogger(logger.Named("cache")),
		)
		if err != nil {
			return fmt.Errorf("creating cache: %w", err)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Running %s workload...\n", dist)
		}

		result, err := simulation.NewSimulator(cache).Run(simulation.Workload{
			Name:         dist,
			Ops:          ops,
			KeySpace:     keySpace,
			MinValueSize: minValueSize,
			MaxValueSize: maxValueSize,
			Distribution: simulation.Distribution(dist),
			Seed:         seed,
		})
		if err != nil {
			return fmt.Errorf("running workload %q: %w", dist, err)
		}
		results = append(results, result)
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch outputFormat {
	case "markdown":
		writeMarkdown(output, results)
	case "text":
		writeText(output, results)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	return nil
}

func writeMarkdown(w io.Writer, results []*simulation.Result) {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("Cache workload benchmark")
	report.WriteMethodology(capacity, thresholdFraction, ops, keySpace)
	report.WriteSummaryTable(results)

	if len(results) >= 2 {
		report.WriteComparison(analysis.Compare(
			results[0].Workload.Name, results[0].LatencyNS,
			results[1].Workload.Name, results[1].LatencyNS,
		))
	}
}

func writeText(w io.Writer, results []*simulation.Result) {
	for _, res := range results {
		stats := analysis.Describe(res.LatencyNS)
		fmt.Fprintf(w, "Workload:    %s\n", res.Workload.Name)
		fmt.Fprintf(w, "  Lookups:   %d (%.1f%% hit rate)\n", res.Lookups, res.HitRate())
		fmt.Fprintf(w, "  Evictions: %d\n", res.CacheStats.Evictions)
		fmt.Fprintf(w, "  Usage:     %d / %d bytes, %d entries\n",
			res.CacheStats.Usage, res.CacheStats.Capacity, res.CacheStats.Entries)
		fmt.Fprintf(w, "  Latency:   mean %.0fns, p99 %.0fns, max %.0fns\n",
			stats.Mean, stats.P99, stats.Max)
		fmt.Fprintln(w)
	}
}
