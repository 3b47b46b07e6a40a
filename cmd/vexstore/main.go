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

// Command vexstore is the host-side driver for a vexstore embedding
// store: it is not part of the embeddable store itself (spec §1 "Out
// of scope: the command-line driver"), just one caller among many that
// opens internal/store, serves it over a RESP wire protocol, benchmarks
// it, or inspects/compacts a file offline. Replaces the teacher's flat
// flag-based cmd/server and cmd/benchmark binaries with a single
// github.com/spf13/cobra tree of subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "vexstore",
		Short:   "Embedded single-file float32 vector store",
		Version: Version,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newCompactCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
