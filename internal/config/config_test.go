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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewAppliesOptionsOverDefaults(t *testing.T) {
	o := New("/tmp/vectors.bin", WithDims(16), WithThreads(4), WithReuseOnAppend(false))
	if o.Dims != 16 {
		t.Errorf("Dims = %d, want 16", o.Dims)
	}
	if o.DefaultThreads != 4 {
		t.Errorf("DefaultThreads = %d, want 4", o.DefaultThreads)
	}
	if o.ReuseOnAppend {
		t.Errorf("ReuseOnAppend = true, want false")
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	o := New("/tmp/vectors.bin")
	got, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), o)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got != o {
		t.Errorf("LoadFile() with a missing file changed Options: got %+v, want %+v", got, o)
	}
}

func TestLoadFileAppliesJSONCWithCommentsAndTrailingCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vexstore.json")
	body := `{
		// default thread count for search calls that don't override it
		"default_threads": 4,
		"log_format": "json",
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	o := New("/tmp/vectors.bin")
	got, err := LoadFile(path, o)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got.DefaultThreads != 4 {
		t.Errorf("DefaultThreads = %d, want 4", got.DefaultThreads)
	}
	if got.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", got.LogFormat)
	}
}
