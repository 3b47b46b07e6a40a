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

// Package mmapfile implements the memory-mapped growable file that
// backs a vexstore: open/grow/remap/resize/close over a single flat
// file, mapped read/write and shared, with capacity doubling on
// growth. Grounded on the unmap-before-truncate-before-remap sequence
// used by the haystack and vox-vector-engine mmap stores in the
// retrieved example pack.
package mmapfile

import (
	"fmt"
	"os"
	"syscall"

	"github.com/uzqw/vexstore/internal/storeerr"
)

// minCapacity is the smallest mapping vexstore will ever establish,
// matching spec §4.3's "max(mapped_capacity, 4096)" growth floor.
const minCapacity = 4096

// File is a memory-mapped, dynamically grown file. The zero value is
// not usable; construct with Open.
type File struct {
	path     string
	file     *os.File
	mapping  []byte
	fileSize int64
}

// Open opens path for read/write, creating it if absent, and maps its
// entire current contents (if non-empty) read/write and shared.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, storeerr.New("open", storeerr.KindFileOpen, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, storeerr.New("open", storeerr.KindFileOpen, err)
	}

	mf := &File{path: path, file: f, fileSize: info.Size()}
	if info.Size() > 0 {
		if err := mf.Remap(info.Size()); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return mf, nil
}

// Size returns the logical file_size: the number of bytes the caller
// has committed so far. It is not advanced by EnsureCapacity.
func (f *File) Size() int64 { return f.fileSize }

// Capacity returns the length of the current mapping, which may
// exceed Size() because growth doubles capacity ahead of need.
func (f *File) Capacity() int64 { return int64(len(f.mapping)) }

// Bytes returns the current mapping. Per spec §9 ("remap after
// growth"), the returned slice must never be cached across a call
// that can grow or resize the file; every access must re-fetch Bytes.
func (f *File) Bytes() []byte { return f.mapping }

// EnsureCapacity grows the mapping, if needed, so that it is at least
// bytes long. The new capacity is computed by repeatedly doubling from
// max(capacity, 4096) until it reaches bytes; the logical Size is left
// untouched, exactly as spec §4.3 specifies ("the caller advances it
// after writing").
func (f *File) EnsureCapacity(bytes int64) error {
	if bytes <= f.Capacity() {
		return nil
	}
	newCap := f.Capacity()
	if newCap < minCapacity {
		newCap = minCapacity
	}
	for newCap < bytes {
		newCap *= 2
	}
	if err := f.file.Truncate(newCap); err != nil {
		return storeerr.New("ensure_capacity", storeerr.KindTruncate, err)
	}
	return f.Remap(newCap)
}

// SetLogicalSize advances the in-memory Size counter without touching
// the file or the mapping. Per spec §4.3, EnsureCapacity never advances
// Size itself; the caller (internal/store) calls this once new slot
// bytes have actually been written into the mapping.
func (f *File) SetLogicalSize(n int64) { f.fileSize = n }

// Resize unmaps the file, truncates it to exactly newSize bytes, and
// updates the logical Size. Remapping is left to the caller, matching
// the platform contract in spec §4.3 for systems without mremap.
func (f *File) Resize(newSize int64) error {
	if err := f.unmap(); err != nil {
		return storeerr.New("resize", storeerr.KindMmap, err)
	}
	if err := f.file.Truncate(newSize); err != nil {
		return storeerr.New("resize", storeerr.KindTruncate, err)
	}
	f.fileSize = newSize
	return nil
}

// Remap tears down any existing mapping and establishes a new one of
// newCapacity bytes.
func (f *File) Remap(newCapacity int64) error {
	if err := f.unmap(); err != nil {
		return storeerr.New("remap", storeerr.KindMmap, err)
	}
	if newCapacity == 0 {
		return nil
	}
	m, err := syscall.Mmap(int(f.file.Fd()), 0, int(newCapacity), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return storeerr.New("remap", storeerr.KindMmap, fmt.Errorf("mmap %d bytes: %w", newCapacity, err))
	}
	f.mapping = m
	return nil
}

func (f *File) unmap() error {
	if f.mapping == nil {
		return nil
	}
	if err := syscall.Munmap(f.mapping); err != nil {
		return err
	}
	f.mapping = nil
	return nil
}

// Close unmaps the file and closes the underlying handle. It always
// attempts both steps regardless of errors along the way, matching
// spec §7's "close path always attempts to free all resources".
func (f *File) Close() error {
	unmapErr := f.unmap()
	closeErr := f.file.Close()
	if unmapErr != nil {
		return storeerr.New("close", storeerr.KindMmap, unmapErr)
	}
	if closeErr != nil {
		return storeerr.New("close", storeerr.KindFileOpen, closeErr)
	}
	return nil
}

// Path returns the file's backing path, for diagnostics (fsnotify
// watches, the sidecar stats writer).
func (f *File) Path() string { return f.path }
