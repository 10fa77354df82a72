package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"logwal/pkg/wal"

	"github.com/spf13/cobra"
)

type benchResult struct {
	TotalOps      int
	SuccessfulOps int
	FailedOps     int
	Duration      time.Duration
	OpsPerSec     float64
	AvgLatency    time.Duration
	MinLatency    time.Duration
	MaxLatency    time.Duration
}

func newBenchCmd(g *globalFlags) *cobra.Command {
	var (
		ops         int
		concurrency int
		size        int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure write and read throughput through the WAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ops <= 0 || concurrency <= 0 {
				return fmt.Errorf("ops and concurrency must be positive")
			}

			seq, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer seq.Close()

			out := cmd.OutOrStdout()
			blob := make([]byte, size)
			for i := range blob {
				blob[i] = byte('a' + i%26)
			}

			first := seq.NextIndex()
			fmt.Fprintf(out, "Writes (%d operations, %d goroutines)\n", ops, concurrency)
			printBench(out, benchWrites(cmd.Context(), seq, ops, concurrency, blob))

			fmt.Fprintf(out, "Reads (%d operations, %d goroutines)\n", ops, concurrency)
			printBench(out, benchReads(cmd.Context(), seq, first, ops, concurrency))
			return nil
		},
	}
	cmd.Flags().IntVar(&ops, "ops", 100, "operations per phase")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "goroutines per phase")
	cmd.Flags().IntVar(&size, "size", 64, "blob size in bytes")
	return cmd
}

func benchWrites(ctx context.Context, seq *wal.Sequencer, totalOps, concurrency int, blob []byte) benchResult {
	return runBench(totalOps, concurrency, func(i int) bool {
		_, err := seq.Write(ctx, uint64(i), blob)
		return err == nil
	})
}

func benchReads(ctx context.Context, seq *wal.Sequencer, first uint64, totalOps, concurrency int) benchResult {
	return runBench(totalOps, concurrency, func(i int) bool {
		_, ok, err := seq.Read(ctx, first+uint64(i))
		return err == nil && ok
	})
}

// runBench spreads totalOps calls of op over concurrency goroutines.
func runBench(totalOps, concurrency int, op func(i int) bool) benchResult {
	start := time.Now()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		latencies = make([]time.Duration, 0, totalOps)
	)

	next := make(chan int)
	go func() {
		for i := 0; i < totalOps; i++ {
			next <- i
		}
		close(next)
	}()

	for g := 0; g < concurrency; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				opStart := time.Now()
				ok := op(i)
				latency := time.Since(opStart)

				mu.Lock()
				if ok {
					succeeded++
				}
				latencies = append(latencies, latency)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	res := benchResult{
		TotalOps:      totalOps,
		SuccessfulOps: succeeded,
		FailedOps:     totalOps - succeeded,
		Duration:      duration,
		OpsPerSec:     float64(succeeded) / duration.Seconds(),
	}
	if len(latencies) > 0 {
		var sum time.Duration
		res.MinLatency, res.MaxLatency = latencies[0], latencies[0]
		for _, lat := range latencies {
			res.MinLatency = min(res.MinLatency, lat)
			res.MaxLatency = max(res.MaxLatency, lat)
			sum += lat
		}
		res.AvgLatency = sum / time.Duration(len(latencies))
	}
	return res
}

func printBench(w io.Writer, r benchResult) {
	fmt.Fprintf(w, "  Total Operations: %d\n", r.TotalOps)
	fmt.Fprintf(w, "  Successful: %d\n", r.SuccessfulOps)
	fmt.Fprintf(w, "  Failed: %d\n", r.FailedOps)
	fmt.Fprintf(w, "  Duration: %v\n", r.Duration)
	fmt.Fprintf(w, "  Operations/sec: %.2f\n", r.OpsPerSec)
	fmt.Fprintf(w, "  Avg Latency: %v\n", r.AvgLatency)
	fmt.Fprintf(w, "  Min Latency: %v\n", r.MinLatency)
	fmt.Fprintf(w, "  Max Latency: %v\n", r.MaxLatency)
}
