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

//go:build windows

// Package mmapfile on Windows is an explicit stub: none of the
// retrieved example repos contain a working CreateFileMapping/
// MapViewOfFile implementation to ground one on (the one Windows mmap
// example in the pack, vox-vector-engine's MmapVectorStore, stores
// syscall.Handle fields but never calls the Windows mapping APIs), so
// rather than fabricate an ungrounded implementation this platform
// reports storeerr.ErrUnsupportedPlatform.
package mmapfile

import "github.com/uzqw/vexstore/internal/storeerr"

type File struct {
	path string
}

func Open(path string) (*File, error) {
	return nil, storeerr.New("open", storeerr.KindFileOpen, storeerr.ErrUnsupportedPlatform)
}

func (f *File) Size() int64                     { return 0 }
func (f *File) Capacity() int64                 { return 0 }
func (f *File) Bytes() []byte                   { return nil }
func (f *File) EnsureCapacity(bytes int64) error { return storeerr.ErrUnsupportedPlatform }
func (f *File) Resize(newSize int64) error       { return storeerr.ErrUnsupportedPlatform }
func (f *File) Remap(newCapacity int64) error    { return storeerr.ErrUnsupportedPlatform }
func (f *File) SetLogicalSize(n int64)           {}
func (f *File) Close() error                     { return nil }
func (f *File) Path() string                     { return f.path }
