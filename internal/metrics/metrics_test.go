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

package metrics

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestGlobalReturnsSingleton(t *testing.T) {
	g := Global()
	if g == nil {
		t.Fatal("Global() returned nil")
	}
	if g2 := Global(); g != g2 {
		t.Error("Global() should return the same instance on every call")
	}
}

func TestCommandCounter(t *testing.T) {
	s := &Stats{startTime: time.Now()}

	initial := s.GetTotalCommands()
	s.IncrementCommands()
	s.IncrementCommands()
	s.IncrementCommands()

	if got := s.GetTotalCommands() - initial; got != 3 {
		t.Errorf("after 3 IncrementCommands, GetTotalCommands delta = %d, want 3", got)
	}
}

func TestActiveConnections(t *testing.T) {
	s := &Stats{startTime: time.Now()}

	s.IncrementActiveConnections()
	s.IncrementActiveConnections()
	if got := s.GetActiveConnections(); got != 2 {
		t.Errorf("GetActiveConnections() = %d, want 2", got)
	}

	s.DecrementActiveConnections()
	if got := s.GetActiveConnections(); got != 1 {
		t.Errorf("GetActiveConnections() after decrement = %d, want 1", got)
	}
}

// TestVectorCountMirrorsStore checks that SetVectorCount behaves as a
// plain mirror of whatever the store last reported, not an independently
// incrementing counter: setting it twice in a row to the same value, or
// to a lower value after a delete, both just take effect immediately.
func TestVectorCountMirrorsStore(t *testing.T) {
	s := &Stats{startTime: time.Now()}

	s.SetVectorCount(5)
	if got := s.GetVectorCount(); got != 5 {
		t.Errorf("GetVectorCount() = %d, want 5", got)
	}

	s.SetVectorCount(5) // a second VAPPEND reporting the same store count
	if got := s.GetVectorCount(); got != 5 {
		t.Errorf("GetVectorCount() after repeated Set = %d, want 5", got)
	}

	s.SetVectorCount(4) // a VDEL (tombstone) does not change count, but a Compact can lower it
	if got := s.GetVectorCount(); got != 4 {
		t.Errorf("GetVectorCount() after lowering Set = %d, want 4", got)
	}
}

func TestMemoryUsage(t *testing.T) {
	s := &Stats{startTime: time.Now()}

	s.SetMemoryUsage(1024 * 1024 * 100) // 100 MB

	if got := s.GetMemoryUsage(); got != 104857600 {
		t.Errorf("GetMemoryUsage() = %d, want 104857600", got)
	}
}

func TestUptime(t *testing.T) {
	s := &Stats{startTime: time.Now().Add(-time.Second * 5)}

	uptime := s.GetUptime()
	if uptime < time.Second*4 || uptime > time.Second*6 {
		t.Errorf("GetUptime() = %v, expected around 5s", uptime)
	}
}

func TestSnapshot(t *testing.T) {
	s := &Stats{startTime: time.Now().Add(-time.Second * 10)}

	s.IncrementCommands()
	s.IncrementCommands()
	s.IncrementActiveConnections()
	s.SetVectorCount(7)
	s.SetMemoryUsage(1024 * 1024)

	snap := s.Snapshot()

	if snap.TotalCommands < 2 {
		t.Errorf("Snapshot.TotalCommands = %d, want >= 2", snap.TotalCommands)
	}
	if snap.ActiveConnections != 1 {
		t.Errorf("Snapshot.ActiveConnections = %d, want 1", snap.ActiveConnections)
	}
	if snap.VectorCount != 7 {
		t.Errorf("Snapshot.VectorCount = %d, want 7", snap.VectorCount)
	}
	if snap.MemoryUsageMB < 0.9 || snap.MemoryUsageMB > 1.1 {
		t.Errorf("Snapshot.MemoryUsageMB = %f, want ~1.0", snap.MemoryUsageMB)
	}
	if snap.Goroutines <= 0 {
		t.Error("Snapshot.Goroutines should be > 0")
	}
	if snap.QPS <= 0 {
		t.Error("Snapshot.QPS should be > 0")
	}
	if snap.Uptime == "" {
		t.Error("Snapshot.Uptime should not be empty")
	}
}

func TestJSONRendersAllFields(t *testing.T) {
	s := &Stats{startTime: time.Now()}

	s.IncrementCommands()
	s.IncrementActiveConnections()
	s.SetVectorCount(3)
	s.SetMemoryUsage(1024)

	jsonStr, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("JSON() returned invalid JSON: %v", err)
	}

	for _, field := range []string{"goroutines", "total_commands", "active_connections", "vector_count", "memory_usage_mb", "uptime", "qps"} {
		if _, ok := result[field]; !ok {
			t.Errorf("JSON() missing field: %s", field)
		}
	}

	if !strings.Contains(jsonStr, "\n") {
		t.Error("JSON() should be pretty printed with newlines")
	}
}
