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

// Package storeerr defines the small error taxonomy shared by every
// vexstore component: mmap, store, and workerpool operations all
// surface failures through a Kind-coded *Error so a host can branch on
// errors.Is/errors.As without parsing strings.
package storeerr

import "fmt"

// Kind classifies a vexstore failure the way the embedded store's
// reference implementation classifies its integer error codes.
type Kind int

const (
	// KindOK is never attached to a returned error; it exists so the
	// zero value of Kind reads as "no error" rather than a silent
	// misclassification.
	KindOK Kind = iota
	KindInvalidArgument
	KindInvalidID
	KindFileOpen
	KindMmap
	KindAlloc
	KindTruncate
	KindThreadCreation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindInvalidID:
		return "invalid-id"
	case KindFileOpen:
		return "file-open"
	case KindMmap:
		return "mmap"
	case KindAlloc:
		return "alloc"
	case KindTruncate:
		return "truncate"
	case KindThreadCreation:
		return "thread-creation"
	case KindNotFound:
		return "not-found"
	default:
		return "ok"
	}
}

// Error is the concrete error type returned by every public vexstore
// operation that can fail.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vexstore: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("vexstore: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-coded error for op, wrapping cause when present.
func New(op string, kind Kind, cause error) error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// Is reports whether err carries the given Kind, looking through any
// wrapping via errors.As semantics.
func Is(err error, kind Kind) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind == kind
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Sentinel errors for conditions a caller commonly checks with
// errors.Is independent of Kind, mirroring the teacher's
// vector.ErrDimensionMismatch / vector.ErrZeroVector pattern.
var (
	ErrClosed              = fmt.Errorf("store is closed")
	ErrDimensionMismatch   = fmt.Errorf("vector dimension does not match store dims")
	ErrCorruptFile         = fmt.Errorf("file size is not a multiple of dims*4")
	ErrExternallyModified  = fmt.Errorf("backing file changed on disk outside this handle")
	ErrUnsupportedPlatform = fmt.Errorf("mmap is not supported on this platform")
	ErrZeroDims            = fmt.Errorf("dims must be > 0")
	ErrInvalidID           = fmt.Errorf("id is out of range")
)
