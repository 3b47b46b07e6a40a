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

// Package config holds open-time defaults for a vexstore, as a plain
// struct built with functional options, the shape the teacher uses for
// logger.Config. The core internal/store package itself takes no
// Config; this only exists for the CLI driver (cmd/vexstore), which
// needs to turn flags and an optional on-disk vexstore.json into the
// arguments Store.Open/Search/Append already accept.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Options are the CLI's open-time and per-call defaults.
type Options struct {
	Path            string
	Dims            int
	ReuseOnAppend   bool
	DefaultThreads  int
	DefaultResultsN int
	LogFormat       string
}

// Option mutates an Options value during construction.
type Option func(*Options)

// WithDims sets the store's fixed embedding dimension.
func WithDims(d int) Option {
	return func(o *Options) { o.Dims = d }
}

// WithThreads sets the default thread-selector passed to Search calls
// that don't override it.
func WithThreads(t int) Option {
	return func(o *Options) { o.DefaultThreads = t }
}

// WithReuseOnAppend sets whether Append defaults to reuse=true.
func WithReuseOnAppend(reuse bool) Option {
	return func(o *Options) { o.ReuseOnAppend = reuse }
}

// WithLogFormat sets the default log format ("text" or "json").
func WithLogFormat(format string) Option {
	return func(o *Options) { o.LogFormat = format }
}

// New builds Options for path with sane defaults, then applies opts in
// order.
func New(path string, opts ...Option) Options {
	o := Options{
		Path:            path,
		Dims:            0,
		ReuseOnAppend:   true,
		DefaultThreads:  0, // AUTO
		DefaultResultsN: 10,
		LogFormat:       "text",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fileDefaults is the shape of an optional vexstore.json, loaded by the
// CLI driver so a host need not pass flags every invocation. Comments
// and trailing commas are tolerated via hujson, the same
// standardize-then-json.Unmarshal approach calvinalkan-agent-task uses
// for its own config file.
type fileDefaults struct {
	DefaultThreads int    `json:"default_threads,omitempty"`
	ReuseOnAppend  *bool  `json:"reuse_on_append,omitempty"`
	LogFormat      string `json:"log_format,omitempty"`
}

// LoadFile reads a JSONC-tolerant vexstore.json at path and applies any
// fields it sets on top of o. A missing file is not an error; it simply
// leaves o unchanged.
func LoadFile(path string, o Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return o, nil
		}
		return o, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return o, fmt.Errorf("config: %s is not valid JSONC: %w", path, err)
	}

	var fd fileDefaults
	if err := json.Unmarshal(standardized, &fd); err != nil {
		return o, fmt.Errorf("config: %s: %w", path, err)
	}

	if fd.DefaultThreads != 0 {
		o.DefaultThreads = fd.DefaultThreads
	}
	if fd.ReuseOnAppend != nil {
		o.ReuseOnAppend = *fd.ReuseOnAppend
	}
	if fd.LogFormat != "" {
		o.LogFormat = fd.LogFormat
	}
	return o, nil
}
