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
	"runtime"

	"github.com/uzqw/vexstore/internal/heap"
	"github.com/uzqw/vexstore/internal/kernel"
	"github.com/uzqw/vexstore/internal/storeerr"
	"github.com/uzqw/vexstore/internal/workerpool"
)

// Thread-selector constants from spec §6.
const (
	AUTO   = 0
	SINGLE = 1
)

// maxAutoThreads caps AUTO's thread count the way spec §4.6 specifies:
// min(cpu_count, 8).
const maxAutoThreads = 8

// Search runs an exact top-n cosine-similarity scan over every
// non-tombstoned slot (C6). mostSimilar selects the direction (spec
// §4.2); threads follows the AUTO/SINGLE/explicit-count contract of
// spec §6.
func (s *Store) Search(query []float32, n int, mostSimilar bool, threads int) ([]heap.Candidate, error) {
	if n <= 0 {
		return nil, storeerr.New("search", storeerr.KindInvalidArgument, nil)
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storeerr.New("search", storeerr.KindInvalidArgument, storeerr.ErrClosed)
	}
	if len(query) != s.dims {
		s.mu.RUnlock()
		return nil, storeerr.New("search", storeerr.KindInvalidArgument, storeerr.ErrDimensionMismatch)
	}
	count := s.count()
	dims := s.dims
	s.mu.RUnlock()

	if count == 0 {
		return nil, nil
	}

	dir := heap.LeastSimilar
	if mostSimilar {
		dir = heap.MostSimilar
	}

	queryNorm := kernel.Norm(query)
	t := resolveThreads(threads, count)

	if t == 1 {
		buf := s.currentBytes()
		local := heap.NewBounded(n, dir)
		scanRange(s, buf, dims, 0, count, query, queryNorm, local)
		return local.Sorted(), nil
	}

	pool, err := s.poolFor(t)
	if err != nil {
		return nil, err
	}

	ranges := partition(count, t)
	locals := make([]*heap.Bounded, len(ranges))
	buf := s.currentBytes()
	for i, r := range ranges {
		i, r := i, r
		locals[i] = heap.NewBounded(n, dir)
		pool.Submit(func() {
			scanRange(s, buf, dims, r.start, r.end, query, queryNorm, locals[i])
		})
	}
	pool.Wait()

	merged := heap.NewBounded(n, dir)
	for _, local := range locals {
		for _, c := range local.Sorted() {
			merged.Push(c.ID, c.Score)
		}
	}
	return merged.Sorted(), nil
}

// currentBytes fetches a fresh snapshot of the mapping under the shared
// lock, matching spec §9's "never cache raw pointers across mutating
// calls" — the returned slice is only safe to read while no mutating
// call runs concurrently, a responsibility spec §5 assigns to the host.
func (s *Store) currentBytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mf.Bytes()
}

// poolFor lazily creates the store's worker pool, double-checked under
// the exclusive lock per spec §4.5 and §9 ("create-once and
// destroy-at-close"). It never shrinks or grows an existing pool even
// if a later search asks for a different thread count — the pool's
// goroutine count is fixed at first use, matching the reference
// implementation's single create(n) call per store lifetime.
func (s *Store) poolFor(t int) (*workerpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storeerr.New("search", storeerr.KindInvalidArgument, storeerr.ErrClosed)
	}
	if s.pool == nil {
		s.pool = workerpool.New(t)
	}
	return s.pool, nil
}

// resolveThreads implements spec §4.6 step 3: AUTO -> min(NumCPU, 8),
// SINGLE or an explicit positive count -> as given, then clamp to
// [1, count].
func resolveThreads(threads int, count uint64) int {
	var t int
	switch {
	case threads == AUTO:
		t = runtime.NumCPU()
		if t > maxAutoThreads {
			t = maxAutoThreads
		}
	case threads <= SINGLE:
		t = 1
	default:
		t = threads
	}
	if t < 1 {
		t = 1
	}
	if uint64(t) > count {
		t = int(count)
	}
	return t
}

type idRange struct{ start, end uint64 }

// partition splits [0, count) into t contiguous ranges of size
// count/t, with the first count%t ranges getting one extra element,
// per spec §4.6 step 5.
func partition(count uint64, t int) []idRange {
	base := count / uint64(t)
	rem := count % uint64(t)
	ranges := make([]idRange, t)
	var cursor uint64
	for i := 0; i < t; i++ {
		size := base
		if uint64(i) < rem {
			size++
		}
		ranges[i] = idRange{start: cursor, end: cursor + size}
		cursor += size
	}
	return ranges
}

// scanRange is the per-task worker body (spec §4.6 "Per-task worker"):
// for each i in [start, end), skip all-zero (tombstoned) slots, compute
// cosine similarity against query using its precomputed norm, and push
// into local.
func scanRange(s *Store, buf []byte, dims int, start, end uint64, query []float32, queryNorm float32, local *heap.Bounded) {
	for i := start; i < end; i++ {
		v := s.slotFloats(buf, i)
		if kernel.IsZero(v) {
			continue
		}
		sim := kernel.CosineGivenNormA(query, queryNorm, v)
		local.Push(i, sim)
	}
}
