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

// Package store implements the embedded vector store: a single
// memory-mapped, headerless file of fixed-dimension float32 embeddings,
// with durable append, in-place replace, tombstone delete, trailing
// compaction, and exact parallel top-N cosine search. It composes
// internal/mmapfile (C3), internal/kernel (C1), internal/heap (C2), and
// internal/workerpool (C5), generalizing the teacher's
// internal/storage.Storage (sharded in-memory map keyed by string) into
// an id-addressed flat file store, keeping the teacher's mutex-guarded
// method shape and %w error wrapping throughout.
package store

import (
	"sync"
	"unsafe"

	"github.com/uzqw/vexstore/internal/kernel"
	"github.com/uzqw/vexstore/internal/mmapfile"
	"github.com/uzqw/vexstore/internal/storeerr"
	"github.com/uzqw/vexstore/internal/workerpool"
)

// Store is an open embedding store. The zero value is not usable;
// construct with Open.
type Store struct {
	mu     sync.RWMutex
	mf     *mmapfile.File
	dims   int
	slotSz int64
	pool   *workerpool.Pool
	closed bool
}

// Open opens path, creating it if absent, adopting any existing bytes
// verbatim. dims must be > 0. If the file's existing size is not an
// exact multiple of dims*4, Open rejects it with ErrCorruptFile per the
// resolution of spec.md §9(a) recorded in DESIGN.md — the reference
// implementation's silent integer-division is not replicated here
// because a headerless format gives no other way to detect the
// mismatch, and silently dropping a trailing remainder would discard
// whatever partial slot is there without telling the caller.
func Open(path string, dims int) (*Store, error) {
	if dims <= 0 {
		return nil, storeerr.New("open", storeerr.KindInvalidArgument, storeerr.ErrZeroDims)
	}
	mf, err := mmapfile.Open(path)
	if err != nil {
		return nil, err
	}
	slotSz := int64(dims) * 4
	if mf.Size()%slotSz != 0 {
		_ = mf.Close()
		return nil, storeerr.New("open", storeerr.KindInvalidArgument, storeerr.ErrCorruptFile)
	}
	return &Store{mf: mf, dims: dims, slotSz: slotSz}, nil
}

// Dims returns the fixed embedding dimension for this store.
func (s *Store) Dims() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Count returns the number of slots currently defined, file_size/(D*4).
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count()
}

// count assumes the caller already holds mu (shared or exclusive).
func (s *Store) count() uint64 {
	return uint64(s.mf.Size() / s.slotSz)
}

// slotFloats reinterprets the dims*4 bytes at the given slot index as a
// []float32, zero-copy, matching the file format's "native byte order"
// contract (spec §6) directly rather than via encoding/binary, grounded
// on nomasters-haystack's unsafe-pointer struct casting over a mapped
// region. buf must be the current mapping fetched at call time — per
// spec §9 "remap after growth", a stale slice from before a growing
// call must never be reused.
func (s *Store) slotFloats(buf []byte, slot uint64) []float32 {
	off := int64(slot) * s.slotSz
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[off])), s.dims)
}

// Append writes data as a new embedding. If reuse is true and an
// all-zero slot exists at some index < count, the smallest such index
// is overwritten and returned instead of growing the file (spec §4.4).
func (s *Store) Append(data []float32, reuse bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, storeerr.New("append", storeerr.KindInvalidArgument, storeerr.ErrClosed)
	}
	if len(data) != s.dims {
		return 0, storeerr.New("append", storeerr.KindInvalidArgument, storeerr.ErrDimensionMismatch)
	}

	count := s.count()
	target := count
	if reuse {
		buf := s.mf.Bytes()
		for i := uint64(0); i < count; i++ {
			if kernel.IsZero(s.slotFloats(buf, i)) {
				target = i
				break
			}
		}
	}

	if target == count {
		newSize := s.mf.Size() + s.slotSz
		if err := s.mf.EnsureCapacity(newSize); err != nil {
			return 0, err
		}
		s.mf.SetLogicalSize(newSize)
	}

	buf := s.mf.Bytes() // re-fetch: EnsureCapacity may have remapped
	copy(s.slotFloats(buf, target), data)
	return target, nil
}

// Replace overwrites the embedding at id in place.
func (s *Store) Replace(id uint64, data []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeerr.New("replace", storeerr.KindInvalidArgument, storeerr.ErrClosed)
	}
	if len(data) != s.dims {
		return storeerr.New("replace", storeerr.KindInvalidArgument, storeerr.ErrDimensionMismatch)
	}
	if id >= s.count() {
		return storeerr.New("replace", storeerr.KindInvalidID, storeerr.ErrInvalidID)
	}
	copy(s.slotFloats(s.mf.Bytes(), id), data)
	return nil
}

// Delete zeroes the slot's bytes (the tombstone convention), leaving
// count unchanged.
func (s *Store) Delete(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeerr.New("delete", storeerr.KindInvalidArgument, storeerr.ErrClosed)
	}
	if id >= s.count() {
		return storeerr.New("delete", storeerr.KindInvalidID, storeerr.ErrInvalidID)
	}
	v := s.slotFloats(s.mf.Bytes(), id)
	for i := range v {
		v[i] = 0
	}
	return nil
}

// Get returns a borrowed read-only view of id's D floats, or nil if
// id >= count. The returned slice aliases the mapping directly and is
// invalidated by the next mutating call (spec §3 "Ownership"); callers
// that need the data to outlive that must copy it themselves.
func (s *Store) Get(id uint64) []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || id >= s.count() {
		return nil
	}
	return s.slotFloats(s.mf.Bytes(), id)
}

// IsZeroed reports whether id's slot is all-zero, or true if id is out
// of range (spec §4.4: "true iff the slot is all-zero, or iff id >=
// count").
func (s *Store) IsZeroed(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= s.count() {
		return true
	}
	return kernel.IsZero(s.slotFloats(s.mf.Bytes(), id))
}

// Similarity returns the cosine similarity between two arbitrary
// D-length vectors, independent of anything stored; a thin wrapper over
// internal/kernel per spec §6's similarity/similarity_raw pair.
func (s *Store) Similarity(a, b []float32) (float32, error) {
	s.mu.RLock()
	dims := s.dims
	s.mu.RUnlock()
	if len(a) != dims || len(b) != dims {
		return 0, storeerr.New("similarity", storeerr.KindInvalidArgument, storeerr.ErrDimensionMismatch)
	}
	return kernel.Cosine(a, b), nil
}

// SimilarityRaw is Similarity without a store handle, matching spec
// §6's similarity_raw(a, b, D) entry: any two equal-length vectors.
func SimilarityRaw(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, storeerr.New("similarity_raw", storeerr.KindInvalidArgument, storeerr.ErrDimensionMismatch)
	}
	return kernel.Cosine(a, b), nil
}

// Compact finds the largest k <= count such that slot k-1 is non-zero,
// then truncates away any all-zero suffix. Interior zero slots are
// preserved; idempotent; count never grows.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeerr.New("compact", storeerr.KindInvalidArgument, storeerr.ErrClosed)
	}
	if err := s.compactLocked(); err != nil {
		return err
	}
	_ = s.writeSidecarStatsLocked() // best-effort diagnostic only, see sidecar.go
	return nil
}

// compactLocked assumes mu is already held exclusively.
func (s *Store) compactLocked() error {
	count := s.count()
	buf := s.mf.Bytes()
	k := count
	for k > 0 && kernel.IsZero(s.slotFloats(buf, k-1)) {
		k--
	}
	if k == count {
		return nil
	}
	newSize := int64(k) * s.slotSz
	if err := s.mf.Resize(newSize); err != nil {
		return err
	}
	return s.mf.Remap(newSize)
}

// Close releases the store's resources. If compact is true, a full
// tombstone compaction runs first. Regardless of compact, Close always
// shrinks the backing file down to its exact logical size before the
// final unmap — see DESIGN.md's "capacity growth vs. on-disk size after
// close" entry for why this is required independent of tombstone
// compaction: EnsureCapacity may have left real on-disk capacity ahead
// of the committed byte count, and nothing else ever reconciles that
// before the file is read back on a future Open.
func (s *Store) Close(compact bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.pool != nil {
		s.pool.Destroy()
		s.pool = nil
	}

	var firstErr error
	if compact {
		if err := s.compactLocked(); err != nil {
			firstErr = err
		}
	}
	if s.mf.Capacity() != s.mf.Size() {
		if err := s.mf.Resize(s.mf.Size()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = s.writeSidecarStatsLocked() // best-effort diagnostic only, see sidecar.go
	if err := s.mf.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Stats is a point-in-time snapshot of the store's size accounting,
// consumed by the CLI's info and compact subcommands.
type Stats struct {
	Count         uint64
	Dims          int
	FileSizeBytes int64
	CapacityBytes int64
}

// Stats returns a snapshot of the store's current size accounting.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Count:         s.count(),
		Dims:          s.dims,
		FileSizeBytes: s.mf.Size(),
		CapacityBytes: s.mf.Capacity(),
	}
}
