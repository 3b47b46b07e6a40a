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
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/uzqw/vexstore/internal/storeerr"
)

// WatchExternalTruncation is a safety-net enrichment beyond spec.md's
// scope (the spec assigns the host sole responsibility for serializing
// concurrent access, per §5 "Shared-resource policy"). It watches the
// store's own backing path for writes, removals or renames and surfaces
// storeerr.ErrExternallyModified on the returned channel when one is
// seen, so a host that does share a file across processes gets an early
// signal instead of a silent SIGBUS-prone mismatch. It does not tell
// this handle's own file-size changes (growth on Append, Compact, Close)
// apart from another process's. It is never consulted by any other
// Store method; purely
// advisory. Grounded on ihavespoons-zrok's use of fsnotify to watch its
// on-disk index for external changes.
func (s *Store) WatchExternalTruncation(ctx context.Context) (<-chan error, error) {
	s.mu.RLock()
	path := s.mf.Path()
	s.mu.RUnlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, storeerr.New("watch", storeerr.KindFileOpen, err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, storeerr.New("watch", storeerr.KindFileOpen, err)
	}

	out := make(chan error, 1)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					select {
					case out <- storeerr.ErrExternallyModified:
					default:
					}
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case out <- werr:
				default:
				}
			}
		}
	}()
	return out, nil
}
