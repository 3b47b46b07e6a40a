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

package store

import (
	"bytes"
	"encoding/json"

	natomic "github.com/natefinch/atomic"
)

// sidecarStats is the on-disk shape of the ".stats.json" companion
// file: a best-effort diagnostic snapshot, never read back by Open or
// any other Store method for correctness (per spec §9(b): a different
// dims on reopen cannot be detected from the headerless format itself,
// and this file is not an attempt to work around that — it exists
// purely so a host operator can `cat path.stats.json` without opening
// the store).
type sidecarStats struct {
	Dims          int    `json:"dims"`
	Count         uint64 `json:"count"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// WriteSidecarStats atomically (re)writes path's ".stats.json"
// companion with the store's current dims, count and logical file size.
// Atomic rename-on-write, grounded on calvinalkan-agent-task's use of
// natefinch/atomic for its own config writes, guards against a
// half-written file if the process is killed mid-write; nothing in
// vexstore reads it back, it is only a hint for humans.
func (s *Store) WriteSidecarStats() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeSidecarStatsLocked()
}

// writeSidecarStatsLocked assumes the caller already holds mu (shared
// or exclusive) for the duration of the call.
func (s *Store) writeSidecarStatsLocked() error {
	stats := sidecarStats{
		Dims:          s.dims,
		Count:         s.count(),
		FileSizeBytes: s.mf.Size(),
	}
	path := s.mf.Path() + ".stats.json"

	body, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return natomic.WriteFile(path, bytes.NewReader(body))
}
