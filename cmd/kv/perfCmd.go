package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/shardkv/cmd/util"
	"github.com/ValentinKolb/shardkv/lib/shard"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for a sharded deployment",
		Long:    "Runs set, get, del, incr, pipeline and mixed workloads through the router and reports throughput and latency percentiles.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfPipelineSize     = 20
	perfSkip             = make([]string, 0)

	// routerMetrics collects per node call statistics of the router
	routerMetrics = shard.NewMetrics()

	// perfTimers holds one latency timer per test
	perfTimers = gometrics.NewRegistry()
)

// perfResult is the outcome of one test
type perfResult struct {
	bench testing.BenchmarkResult
	timer gometrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "pipeline-size"
	perfTestCmd.Flags().Int(key, 20, util.WrapString("Number of commands per pipeline in the pipeline test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "router-metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the per node router metrics (Prometheus format) after the tests"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfPipelineSize = max(viper.GetInt("pipeline-size"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	router := session.Router
	ctx := context.Background()

	fmt.Println("Performance testing tool for shardkv")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Nodes: %s\n", strings.Join(router.Nodes(), ", "))
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]perfResult)
	smallValue := []byte("test")
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	benchmarks := []struct {
		name    string
		prepare bool // write every key before the test
		op      func(key string, counter int) error
	}{
		{"set", false, func(key string, _ int) error {
			_, err := router.Set(ctx, key, smallValue)
			return err
		}},
		{"set-large", false, func(key string, _ int) error {
			_, err := router.Set(ctx, key, largeValue)
			return err
		}},
		{"get", true, func(key string, _ int) error {
			_, err := router.Get(ctx, key)
			return err
		}},
		{"del", true, func(key string, _ int) error {
			_, err := router.Del(ctx, key)
			return err
		}},
		{"incr", false, func(key string, _ int) error {
			_, err := router.Incr(ctx, key)
			return err
		}},
		{"pipeline", true, func(_ string, counter int) error {
			p := router.Pipeline()
			for i := 0; i < perfPipelineSize; i++ {
				p.Queue("get", perfKey("pipeline", counter+i))
			}
			for _, res := range p.Exec(ctx) {
				if res.Err != nil {
					return res.Err
				}
			}
			return nil
		}},
		{"mixed", true, func(key string, counter int) error {
			var err error
			switch counter % 4 {
			case 0: // set
				_, err = router.Set(ctx, key, smallValue)
			case 1: // get
				_, err = router.Get(ctx, key)
			case 2: // del
				_, err = router.Del(ctx, key)
			case 3: // exists
				_, err = router.Exists(ctx, key)
			}
			return err
		}},
	}

	for _, bm := range benchmarks {
		timer := gometrics.GetOrRegisterTimer(bm.name, perfTimers)
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bm.name) {
				return
			}

			// prepare keys
			if bm.prepare {
				forEachKey(bm.name, func(k string) {
					if _, err := router.Set(ctx, k, smallValue); err != nil {
						log.Printf("(%s) - error setting key: %v\n", bm.name, err)
					}
				})
			}

			// cleanup
			b.Cleanup(func() {
				forEachKey(bm.name, func(k string) {
					if _, err := router.Del(ctx, k); err != nil {
						log.Printf("(%s) - error deleting key: %v\n", bm.name, err)
					}
				})
			})

			b.SetParallelism(perfNumThreads)

			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					start := time.Now()
					err := bm.op(perfKey(bm.name, counter), counter)
					timer.UpdateSince(start)
					if err != nil {
						log.Printf("(%s) - error: %v\n", bm.name, err)
					}
					counter++
				}
			})
		})

		results[bm.name] = perfResult{bench: result, timer: timer.Snapshot()}
		printResult(bm.name, results[bm.name])
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("router-metrics") {
		fmt.Println()
		routerMetrics.WritePrometheus(cmd.OutOrStdout())
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// perfKey returns the i-th test key of a test (with wraparound)
func perfKey(test string, i int) string {
	return fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i%perfKeySpread)
}

// forEachKey applies fn to every test key of a test
func forEachKey(test string, fn func(string)) {
	for i := 0; i < perfKeySpread; i++ {
		fn(perfKey(test, i))
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	ps := result.timer.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"P50", "P99", "Max",
		"Nodes", "Serializer", "Transport", "Hash", "Replicas",
		"Threads", "LargeValueSizeKB", "Keys Count", "PipelineSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		ps := result.timer.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			time.Duration(result.timer.Max()).String(),
			strings.Join(session.Router.Nodes(), ";"),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			viper.GetString("hash"),
			strconv.Itoa(viper.GetInt("replicas")),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfPipelineSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
