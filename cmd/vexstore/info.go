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

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uzqw/vexstore/internal/store"
)

func newInfoCmd() *cobra.Command {
	var (
		path string
		dims int
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print a vexstore file's count/dims/size accounting",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(path, dims)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close(false)

			body, err := json.MarshalIndent(s.Stats(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "vectors.bin", "backing file for the store")
	cmd.Flags().IntVar(&dims, "dims", 128, "embedding dimension")
	return cmd
}
