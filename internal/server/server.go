// Package server exposes the ingestion engine over a line-oriented TCP
// protocol: a client sends one file path per line, the server ingests
// it and writes back a one-line validity summary. Each path sent gets
// its own run, matching the core engine's "one parser per input
// stream" concurrency rule (spec.md §5).
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/cwr"
)

// Start binds port and serves connections until the listener fails or
// is closed. It blocks the calling goroutine.
func Start(port int, engine *cwr.Engine, cfg config.Config, logger *slog.Logger) error {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding to port %d: %w", port, err)
	}
	defer listener.Close()

	logger.Info("cwrctl server listening", "port", port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		go handleConnection(conn, engine, cfg, logger)
	}
}

func handleConnection(conn net.Conn, engine *cwr.Engine, cfg config.Config, logger *slog.Logger) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" {
			continue
		}
		if path == "exit" || path == "\\q" {
			return
		}

		result, err := engine.ParseFile(path, cfg)
		if err != nil {
			io.WriteString(conn, fmt.Sprintf("error: %v\n", err))
			continue
		}
		writeSummary(conn, result)
	}

	if err := scanner.Err(); err != nil {
		logger.Error("connection error", "remote_addr", conn.RemoteAddr(), "error", err)
	}
}

func writeSummary(w io.Writer, result cwr.Result) {
	fmt.Fprintf(w, "run_id=%s is_valid=%t groups=%d diagnostics=%d\n",
		result.RunID, result.IsValid, len(result.File.Groups), len(result.Diagnostics))
}
