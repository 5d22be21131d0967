// Package logging wires the process-wide structured logger: a console
// text handler fanned out alongside a Seq sink, matching the ambient
// logging stack this module was grown from. CWR ingestion is pull-based
// and single-threaded per run (spec.md §5), so every log line is tagged
// with the run's id to disambiguate interleaved runs sharing one sink.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// multiHandler forwards log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Options configures SetupLogger. SeqURL defaults to localhost:5341,
// matching Seq's standard ingestion port; an unreachable Seq is not an
// error, the process just falls back to console-only.
type Options struct {
	SeqURL string
	Level  slog.Level
	Debug  bool // AddSource on every handler
}

// DefaultOptions returns the options cwrctl runs with unless overridden.
func DefaultOptions() Options {
	return Options{SeqURL: "http://localhost:5341", Level: slog.LevelInfo}
}

// SetupLogger builds the process-wide logger and returns a cleanup
// function that must run before the process exits, to flush any
// buffered Seq events.
func SetupLogger(opts Options) (*slog.Logger, func()) {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.Debug}

	consoleHandler := slog.NewTextHandler(os.Stdout, handlerOpts)

	_, seqHandler := slogseq.NewLogger(
		opts.SeqURL,
		slogseq.WithBatchSize(20),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(handlerOpts),
	)

	if seqHandler == nil {
		console := slog.New(consoleHandler)
		return console, func() {}
	}

	multi := &multiHandler{handlers: []slog.Handler{consoleHandler, seqHandler}}
	logger := slog.New(multi)
	return logger, func() { seqHandler.Close() }
}

// ForRun returns a logger scoped to one ingestion run, carrying its id
// on every subsequent record so concurrent cwrctl -server sessions can
// be told apart in a shared Seq stream.
func ForRun(base *slog.Logger, runID string) *slog.Logger {
	return base.With("run_id", runID)
}
