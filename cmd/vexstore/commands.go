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
	"fmt"
	"strconv"
	"strings"

	"github.com/uzqw/vexstore/internal/metrics"
	"github.com/uzqw/vexstore/internal/protocol"
	"github.com/uzqw/vexstore/internal/store"
)

// processCommand dispatches one parsed RESP command against s, writing
// the reply through writer. It returns true if the connection should
// close after this command (QUIT).
func processCommand(s *store.Store, writer *protocol.RESPWriter, cmd []string) bool {
	switch strings.ToUpper(cmd[0]) {
	case "PING":
		handlePing(writer, cmd)
	case "ECHO":
		handleEcho(writer, cmd)
	case "VAPPEND":
		handleVAppend(s, writer, cmd)
	case "VGET":
		handleVGet(s, writer, cmd)
	case "VDEL":
		handleVDel(s, writer, cmd)
	case "VREPLACE":
		handleVReplace(s, writer, cmd)
	case "VSEARCH":
		handleVSearch(s, writer, cmd)
	case "VCOMPACT":
		handleVCompact(s, writer)
	case "STATS", "INFO":
		handleStats(s, writer)
	case "QUIT":
		_ = writer.WriteSimpleString("OK")
		return true
	default:
		_ = writer.WriteError(fmt.Sprintf("unknown command '%s'", cmd[0]))
	}
	return false
}

func handlePing(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) == 1 {
		_ = writer.WriteSimpleString("PONG")
		return
	}
	_ = writer.WriteBulkString(cmd[1])
}

func handleEcho(writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'echo' command")
		return
	}
	_ = writer.WriteBulkString(cmd[1])
}

// handleVAppend: VAPPEND <floats-json> <reuse:0|1> -> integer id
func handleVAppend(s *store.Store, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vappend' command")
		return
	}
	values, err := protocol.FastVectorParser(cmd[1])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}
	reuse := cmd[2] == "1"

	id, err := s.Append(values, reuse)
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	metrics.Global().SetVectorCount(s.Count())
	_ = writer.WriteInteger(int64(id))
}

// handleVGet: VGET <id> -> bulk string (JSON floats) or null
func handleVGet(s *store.Store, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'vget' command")
		return
	}
	id, err := strconv.ParseUint(cmd[1], 10, 64)
	if err != nil {
		_ = writer.WriteError("invalid id")
		return
	}
	values := s.Get(id)
	if values == nil {
		_ = writer.WriteNullBulkString()
		return
	}
	_ = writer.WriteVector(values)
}

// handleVDel: VDEL <id> -> integer (1 ok, 0 invalid id)
func handleVDel(s *store.Store, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 2 {
		_ = writer.WriteError("wrong number of arguments for 'vdel' command")
		return
	}
	id, err := strconv.ParseUint(cmd[1], 10, 64)
	if err != nil {
		_ = writer.WriteError("invalid id")
		return
	}
	if err := s.Delete(id); err != nil {
		_ = writer.WriteInteger(0)
		return
	}
	metrics.Global().SetVectorCount(s.Count())
	_ = writer.WriteInteger(1)
}

// handleVReplace: VREPLACE <id> <floats-json> -> simple string OK or error
func handleVReplace(s *store.Store, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 3 {
		_ = writer.WriteError("wrong number of arguments for 'vreplace' command")
		return
	}
	id, err := strconv.ParseUint(cmd[1], 10, 64)
	if err != nil {
		_ = writer.WriteError("invalid id")
		return
	}
	values, err := protocol.FastVectorParser(cmd[2])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}
	if err := s.Replace(id, values); err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteSimpleString("OK")
}

// handleVSearch: VSEARCH <floats-json> <n> <most:0|1> <threads> -> array
// of "<id>:<score>" bulk strings, ranked.
func handleVSearch(s *store.Store, writer *protocol.RESPWriter, cmd []string) {
	if len(cmd) < 5 {
		_ = writer.WriteError("wrong number of arguments for 'vsearch' command")
		return
	}
	query, err := protocol.FastVectorParser(cmd[1])
	if err != nil {
		_ = writer.WriteError(fmt.Sprintf("invalid vector format: %s", err.Error()))
		return
	}
	n, err := strconv.Atoi(cmd[2])
	if err != nil || n <= 0 {
		_ = writer.WriteError("n must be a positive integer")
		return
	}
	most := cmd[3] == "1"
	threads, err := strconv.Atoi(cmd[4])
	if err != nil {
		_ = writer.WriteError("invalid thread count")
		return
	}

	results, err := s.Search(query, n, most, threads)
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}

	out := make([]string, len(results))
	for i, c := range results {
		out[i] = fmt.Sprintf("%d:%.6f", c.ID, c.Score)
	}
	_ = writer.WriteArray(out)
}

// handleVCompact: VCOMPACT -> integer new count
func handleVCompact(s *store.Store, writer *protocol.RESPWriter) {
	if err := s.Compact(); err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	count := s.Count()
	metrics.Global().SetVectorCount(count)
	_ = writer.WriteInteger(int64(count))
}

func handleStats(s *store.Store, writer *protocol.RESPWriter) {
	jsonStr, err := metrics.Global().JSON()
	if err != nil {
		_ = writer.WriteError(err.Error())
		return
	}
	_ = writer.WriteBulkString(jsonStr)
}
