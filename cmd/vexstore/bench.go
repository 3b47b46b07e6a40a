// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/uzqw/vexstore/internal/protocol"
)

type benchResult struct {
	TotalTime    time.Duration
	QPS          float64
	AvgLatency   time.Duration
	P50, P95, P99,
	Min, Max time.Duration
	SuccessCount, ErrorCount int64
}

func newBenchCmd() *cobra.Command {
	var (
		host        string
		port        string
		concurrency int
		totalOps    int
		mode        string
		dim         int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test a running vexstore serve instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("=== vexstore bench ===")
			fmt.Printf("Mode:        %s\n", mode)
			fmt.Printf("Host:        %s:%s\n", host, port)
			fmt.Printf("Concurrency: %d\n", concurrency)
			fmt.Printf("Total Ops:   %d\n", totalOps)
			fmt.Printf("Dimensions:  %d\n", dim)
			fmt.Println("---")

			var result *benchResult
			switch mode {
			case "insert":
				result = runInsertBenchmark(host, port, concurrency, totalOps, dim)
			case "search":
				result = runSearchBenchmark(host, port, concurrency, totalOps, dim)
			default:
				return fmt.Errorf("unknown mode %q (want insert or search)", mode)
			}
			printBenchResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "localhost", "server host")
	cmd.Flags().StringVar(&port, "port", "6379", "server port")
	cmd.Flags().IntVar(&concurrency, "concurrency", 50, "number of concurrent connections")
	cmd.Flags().IntVar(&totalOps, "n", 100000, "total number of operations")
	cmd.Flags().StringVar(&mode, "mode", "insert", "benchmark mode: insert or search")
	cmd.Flags().IntVar(&dim, "dim", 128, "vector dimension")
	return cmd
}

func runInsertBenchmark(host, port string, concurrency, totalOps, dim int) *benchResult {
	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	latencies := make([]time.Duration, totalOps)
	opsPerWorker := totalOps / concurrency

	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
			if err != nil {
				errorCount.Add(int64(opsPerWorker))
				return
			}
			defer conn.Close()

			writer := protocol.NewRESPWriter(conn)
			reader := protocol.NewRESPReader(conn)

			for j := 0; j < opsPerWorker; j++ {
				idx := workerID*opsPerWorker + j
				vector := randomVector(dim)

				opStart := time.Now()
				cmd := []string{"VAPPEND", formatVectorJSON(vector), "0"}
				if err := sendCommand(writer, cmd); err != nil {
					errorCount.Add(1)
					continue
				}
				if _, err := reader.ReadCommand(); err != nil {
					errorCount.Add(1)
					continue
				}
				latencies[idx] = time.Since(opStart)
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()
	return calculateBenchResult(latencies, time.Since(start), successCount.Load(), errorCount.Load())
}

func runSearchBenchmark(host, port string, concurrency, totalOps, dim int) *benchResult {
	fmt.Println("Preparing data for search benchmark...")
	prepareSearchData(host, port, dim)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	latencies := make([]time.Duration, totalOps)
	opsPerWorker := totalOps / concurrency

	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
			if err != nil {
				errorCount.Add(int64(opsPerWorker))
				return
			}
			defer conn.Close()

			writer := protocol.NewRESPWriter(conn)
			reader := protocol.NewRESPReader(conn)

			for j := 0; j < opsPerWorker; j++ {
				idx := workerID*opsPerWorker + j
				vector := randomVector(dim)

				opStart := time.Now()
				cmd := []string{"VSEARCH", formatVectorJSON(vector), "10", "1", "0"}
				if err := sendCommand(writer, cmd); err != nil {
					errorCount.Add(1)
					continue
				}
				if _, err := reader.ReadCommand(); err != nil {
					errorCount.Add(1)
					continue
				}
				latencies[idx] = time.Since(opStart)
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()
	return calculateBenchResult(latencies, time.Since(start), successCount.Load(), errorCount.Load())
}

func prepareSearchData(host, port string, dim int) {
	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		fmt.Printf("failed to connect: %s\n", err)
		return
	}
	defer conn.Close()

	writer := protocol.NewRESPWriter(conn)
	reader := protocol.NewRESPReader(conn)
	for i := 0; i < 1000; i++ {
		vector := randomVector(dim)
		cmd := []string{"VAPPEND", formatVectorJSON(vector), "0"}
		if err := sendCommand(writer, cmd); err != nil {
			continue
		}
		_, _ = reader.ReadCommand()
	}
	fmt.Println("data preparation complete.")
}

func sendCommand(writer *protocol.RESPWriter, cmd []string) error {
	if err := writer.WriteArray(cmd); err != nil {
		return err
	}
	return writer.Flush()
}

func randomVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
	}
	return vec
}

func formatVectorJSON(vec []float32) string {
	var sb []byte
	sb = append(sb, '[')
	for i, v := range vec {
		if i > 0 {
			sb = append(sb, ',', ' ')
		}
		sb = append(sb, []byte(fmt.Sprintf("%.6f", v))...)
	}
	sb = append(sb, ']')
	return string(sb)
}

func calculateBenchResult(latencies []time.Duration, totalTime time.Duration, successCount, errorCount int64) *benchResult {
	valid := make([]time.Duration, 0, len(latencies))
	for _, l := range latencies {
		if l > 0 {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return &benchResult{TotalTime: totalTime, SuccessCount: successCount, ErrorCount: errorCount}
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })

	var total time.Duration
	for _, l := range valid {
		total += l
	}
	n := len(valid)
	return &benchResult{
		TotalTime:    totalTime,
		QPS:          float64(successCount) / totalTime.Seconds(),
		AvgLatency:   total / time.Duration(n),
		P50:          valid[n*50/100],
		P95:          valid[min(n*95/100, n-1)],
		P99:          valid[min(n*99/100, n-1)],
		Min:          valid[0],
		Max:          valid[n-1],
		SuccessCount: successCount,
		ErrorCount:   errorCount,
	}
}

func printBenchResult(r *benchResult) {
	fmt.Println()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Time:  %v\n", r.TotalTime)
	fmt.Printf("QPS:         %.0f ops/sec\n", r.QPS)
	fmt.Printf("Success:     %d\n", r.SuccessCount)
	fmt.Printf("Errors:      %d\n", r.ErrorCount)
	fmt.Println()
	fmt.Println("Latency:")
	fmt.Printf("  Min: %v  Avg: %v  P50: %v  P95: %v  P99: %v  Max: %v\n",
		r.Min, r.AvgLatency, r.P50, r.P95, r.P99, r.Max)
}
