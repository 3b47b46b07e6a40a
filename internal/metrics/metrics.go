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

// Package metrics tracks the process-wide counters cmd/vexstore serve
// exposes through STATS/INFO: commands handled, connections open, the
// store's own slot count, and approximate memory usage. All counters are
// atomic so a handler goroutine never blocks on a metrics read/write.
package metrics

import (
	"encoding/json"
	"runtime"
	"sync/atomic"
	"time"
)

// Stats holds the live counters for one running vexstore server.
type Stats struct {
	totalCommands     atomic.Uint64 // RESP commands dispatched since start
	activeConnections atomic.Int64  // open RESP connections
	vectorCount       atomic.Uint64 // mirrors store.Store.Stats().Count
	memoryUsage       atomic.Uint64 // last runtime.MemStats.Alloc sample

	startTime time.Time
}

var global = &Stats{
	startTime: time.Now(),
}

// Global returns the process-wide Stats instance.
func Global() *Stats {
	return global
}

// IncrementCommands records one dispatched RESP command.
func (s *Stats) IncrementCommands() {
	s.totalCommands.Add(1)
}

// IncrementActiveConnections records a newly accepted connection.
func (s *Stats) IncrementActiveConnections() {
	s.activeConnections.Add(1)
}

// DecrementActiveConnections records a closed connection.
func (s *Stats) DecrementActiveConnections() {
	s.activeConnections.Add(-1)
}

// SetVectorCount records the store's current slot count. It is not an
// independently maintained counter: cmd/vexstore calls it with
// store.Store.Stats().Count (or Store.Count()) after every VAPPEND,
// VDEL, and VCOMPACT, so a metrics snapshot can never drift
// from what the store itself would report.
func (s *Stats) SetVectorCount(n uint64) {
	s.vectorCount.Store(n)
}

// SetMemoryUsage records the most recent resident memory sample.
func (s *Stats) SetMemoryUsage(bytes uint64) {
	s.memoryUsage.Store(bytes)
}

// GetTotalCommands returns the number of RESP commands dispatched.
func (s *Stats) GetTotalCommands() uint64 {
	return s.totalCommands.Load()
}

// GetActiveConnections returns the number of open RESP connections.
func (s *Stats) GetActiveConnections() int64 {
	return s.activeConnections.Load()
}

// GetVectorCount returns the last vector count reported by the store.
func (s *Stats) GetVectorCount() uint64 {
	return s.vectorCount.Load()
}

// GetMemoryUsage returns the last sampled resident memory in bytes.
func (s *Stats) GetMemoryUsage() uint64 {
	return s.memoryUsage.Load()
}

// GetUptime returns how long this process has been running.
func (s *Stats) GetUptime() time.Duration {
	return time.Since(s.startTime)
}

// Snapshot is a point-in-time view of a server's metrics, suitable for
// JSON serialization over the STATS/INFO RESP commands.
type Snapshot struct {
	Goroutines        int     `json:"goroutines"`
	TotalCommands     uint64  `json:"total_commands"`
	ActiveConnections int64   `json:"active_connections"`
	VectorCount       uint64  `json:"vector_count"`
	MemoryUsageMB     float64 `json:"memory_usage_mb"`
	Uptime            string  `json:"uptime"`
	QPS               float64 `json:"qps"`
}

// Snapshot captures a consistent view of all metrics.
func (s *Stats) Snapshot() *Snapshot {
	uptime := s.GetUptime()
	totalCommands := s.GetTotalCommands()

	var qps float64
	if uptime.Seconds() > 0 {
		qps = float64(totalCommands) / uptime.Seconds()
	}

	return &Snapshot{
		Goroutines:        runtime.NumGoroutine(),
		TotalCommands:     totalCommands,
		ActiveConnections: s.GetActiveConnections(),
		VectorCount:       s.GetVectorCount(),
		MemoryUsageMB:     float64(s.GetMemoryUsage()) / 1024 / 1024,
		Uptime:            uptime.String(),
		QPS:               qps,
	}
}

// JSON renders the current snapshot as indented JSON, as returned by the
// STATS/INFO RESP commands.
func (s *Stats) JSON() (string, error) {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
