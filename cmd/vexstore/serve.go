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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/uzqw/vexstore/internal/config"
	"github.com/uzqw/vexstore/internal/metrics"
	"github.com/uzqw/vexstore/internal/protocol"
	"github.com/uzqw/vexstore/internal/store"
	"github.com/uzqw/vexstore/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var (
		path      string
		dims      int
		host      string
		port      string
		logFormat string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a vexstore file over a RESP-like TCP protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.New(path, config.WithDims(dims), config.WithLogFormat(logFormat))
			opts, err := config.LoadFile("vexstore.json", opts)
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			switch strings.ToLower(logLevel) {
			case "debug":
				level = slog.LevelDebug
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
			format := logger.FormatText
			if strings.ToLower(opts.LogFormat) == "json" {
				format = logger.FormatJSON
			}
			// Logs are routed to stderr; RESP replies travel only over
			// each TCP connection, never the process's stdout.
			log := logger.New(logger.Config{Format: format, Level: level, Output: os.Stderr})

			s, err := store.Open(opts.Path, opts.Dims)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close(false)

			return runServer(cmd.Context(), s, log, host, port)
		},
	}

	cmd.Flags().StringVar(&path, "path", "vectors.bin", "backing file for the store")
	cmd.Flags().IntVar(&dims, "dims", 128, "embedding dimension (required for a fresh file)")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "host to bind to")
	cmd.Flags().StringVar(&port, "port", "6379", "port to listen on")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func runServer(parent context.Context, s *store.Store, log *logger.Logger, host, port string) error {
	addr := net.JoinHostPort(host, port)
	log.Info("starting vexstore server", slog.String("addr", addr))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		listener.Close()
	}()

	go monitorMemory(ctx)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info("shutting down server")
				return nil
			default:
				log.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}
		}
		metrics.Global().IncrementActiveConnections()
		go handleConnection(ctx, s, log, conn)
	}
}

func handleConnection(ctx context.Context, s *store.Store, log *logger.Logger, conn net.Conn) {
	defer func() {
		conn.Close()
		metrics.Global().DecrementActiveConnections()
	}()

	requestID := uuid.New().String()
	connLog := log.WithRequestID(ctx, requestID)
	connLog.Info("new connection", slog.String("remote", conn.RemoteAddr().String()))

	reader := protocol.NewRESPReader(conn)
	writer := protocol.NewRESPWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		cmd, err := reader.ReadCommand()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				connLog.Debug("connection closed")
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				connLog.Info("connection timeout")
				return
			}
			connLog.Warn("protocol error", slog.String("error", err.Error()))
			_ = writer.WriteError(err.Error())
			_ = writer.Flush()
			return
		}

		if len(cmd) == 0 {
			continue
		}

		metrics.Global().IncrementCommands()

		start := time.Now()
		quit := processCommand(s, writer, cmd)
		latency := time.Since(start)

		connLog.Debug("command executed",
			slog.String("cmd", cmd[0]),
			slog.Int("args", len(cmd)-1),
			slog.Duration("latency", latency),
		)

		if err := writer.Flush(); err != nil {
			connLog.Error("failed to flush response", slog.String("error", err.Error()))
			return
		}
		if quit {
			return
		}
	}
}

// monitorMemory periodically updates memory usage metrics, kept from
// the teacher's cmd/server verbatim in shape.
func monitorMemory(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.Global().SetMemoryUsage(m.Alloc)
		}
	}
}
