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

//go:build !windows

package mmapfile

import (
	"path/filepath"
	"testing"
)

func TestOpenFreshFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	if f.Size() != 0 {
		t.Errorf("Size() = %d, want 0", f.Size())
	}
	if f.Capacity() != 0 {
		t.Errorf("Capacity() = %d, want 0 for an unmapped fresh file", f.Capacity())
	}
}

func TestEnsureCapacityDoubles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	if err := f.EnsureCapacity(5000); err != nil {
		t.Fatalf("EnsureCapacity() error = %v", err)
	}
	if f.Capacity() < 5000 {
		t.Errorf("Capacity() = %d, want >= 5000", f.Capacity())
	}
	if f.Capacity()%minCapacity != 0 {
		t.Errorf("Capacity() = %d, want a multiple of %d (doubling from the floor)", f.Capacity(), minCapacity)
	}
	if f.Size() != 0 {
		t.Errorf("Size() = %d, want unchanged at 0 (EnsureCapacity must not advance logical size)", f.Size())
	}
}

func TestWriteResizeRemapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := f.EnsureCapacity(16); err != nil {
		t.Fatalf("EnsureCapacity() error = %v", err)
	}
	copy(f.Bytes()[:16], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	f.SetLogicalSize(16)

	// EnsureCapacity grew the file to the 4096-byte floor, well past the
	// 16 committed bytes. Per spec §3 the persisted file must be an exact
	// multiple of the slot size with no leftover capacity slack, so the
	// owner (internal/store) always shrinks back to the logical size
	// before the final close; do that explicitly here too.
	if err := f.Resize(16); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if reopened.Size() != 16 {
		t.Errorf("reopened Size() = %d, want 16 (no capacity slack should survive a close)", reopened.Size())
	}
	if int64(len(reopened.Bytes())) != reopened.Size() {
		t.Errorf("reopened mapping length = %d, want %d", len(reopened.Bytes()), reopened.Size())
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	got := reopened.Bytes()[:16]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResizeTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	if err := f.EnsureCapacity(4096); err != nil {
		t.Fatalf("EnsureCapacity() error = %v", err)
	}
	if err := f.Resize(1024); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if f.Size() != 1024 {
		t.Errorf("Size() after Resize = %d, want 1024", f.Size())
	}
	if err := f.Remap(1024); err != nil {
		t.Fatalf("Remap() error = %v", err)
	}
	if f.Capacity() != 1024 {
		t.Errorf("Capacity() after Remap = %d, want 1024", f.Capacity())
	}
}
