// Package cwr is the top-level entry point wiring Tokenizer -> Decoder
// -> StructuralParser -> Validator into a single ParseFile/Parse
// operation, and drawing the line between host errors (typed Go
// errors, returned) and content diagnostics (always carried in-result,
// never thrown).
package cwr

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/decoder"
	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/logging"
	"github.com/cwrcore/cwr-ingest/internal/lookup"
	"github.com/cwrcore/cwr-ingest/internal/parser"
	"github.com/cwrcore/cwr-ingest/internal/schema"
	"github.com/cwrcore/cwr-ingest/internal/tokenizer"
	"github.com/cwrcore/cwr-ingest/internal/validator"
	"github.com/google/uuid"
)

// IOError wraps a failure to read the input source itself — a host
// error, never a content diagnostic (spec.md §7).
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("reading %s: %v", e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// ConfigError reports a caller mistake in how the pipeline was
// invoked — an unsupported version string, a nil registry — distinct
// from anything the input file itself could cause.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "cwr: " + e.Reason }

// Result is the structured output of one ingestion run (spec.md §6).
type Result struct {
	RunID       string
	IsValid     bool
	File        parser.File
	Diagnostics []diag.Diagnostic
}

// Engine bundles the immutable, freely shareable resources a parse run
// needs: the schema registry and the lookup manager. Construct one
// Engine per process and reuse it across runs (spec.md §5).
type Engine struct {
	Registry *schema.Registry
	Lookups  *lookup.Manager
	Logger   *slog.Logger
}

// NewEngine constructs an Engine. A nil logger falls back to
// slog.Default(). Lookups may be nil, in which case L2 lookup-membership
// checks are skipped entirely (spec.md §4.2: lookups are optional
// collaborators, not a hard dependency).
func NewEngine(registry *schema.Registry, lookups *lookup.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Registry: registry, Lookups: lookups, Logger: logger}
}

// ParseFile opens path and runs Parse against its contents. Any
// filesystem failure is returned as an *IOError; the path never
// existing is exactly as much a host error as a permission failure.
func (e *Engine) ParseFile(path string, cfg config.Config) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, &IOError{Path: path, Err: err}
	}
	defer f.Close()
	return e.Parse(f, cfg)
}

// Parse runs the full pipeline over r and returns a Result. Parse never
// returns an error for malformed *content* — that is always expressed
// as diagnostics inside Result — only for host failures (bad config,
// an unreadable source once reading begins).
func (e *Engine) Parse(r io.Reader, cfg config.Config) (Result, error) {
	runID := uuid.NewString()
	log := logging.ForRun(e.Logger, runID)

	if cfg.Version != "" && !schema.SupportsVersion(schema.Version(cfg.Version)) {
		return Result{}, &ConfigError{Reason: fmt.Sprintf("unsupported CWR version %q", cfg.Version)}
	}
	if e.Registry == nil {
		return Result{}, &ConfigError{Reason: "nil schema registry"}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, &IOError{Path: "input", Err: err}
	}

	bag := &diag.Bag{}
	lines := tokenizer.Tokenize(bytes.NewReader(data), bag)
	log.Debug("tokenized input", "lines", len(lines))

	version := detectVersion(e.Registry, cfg, lines, bag)

	p := parser.New(e.Registry, cfg, bag)
	for _, line := range lines {
		rec := decoder.Decode(version, e.Registry, line.Number, line.Text, bag)
		p.Feed(rec)
	}
	file := p.Result()

	if !cfg.SkipValidation {
		v := validator.New(e.Registry, e.Lookups, cfg)
		v.Validate(version, file, bag)
	}

	result := Result{
		RunID:       runID,
		IsValid:     bag.IsValid(),
		File:        file,
		Diagnostics: bag.Items(),
	}
	log.Info("ingestion complete", "is_valid", result.IsValid, "diagnostics", len(result.Diagnostics), "groups", len(file.Groups))
	return result, nil
}

// detectVersion implements spec.md §4.5's version-enforcement rule:
// HDR.version_number gates which schema the decoder uses for the rest
// of the file, unless the caller pinned one explicitly via cfg.Version
// (the CLI's --version flag). The HDR record layout itself is
// version-invariant, so it is safe to decode with either table before
// the real version is known.
func detectVersion(registry *schema.Registry, cfg config.Config, lines []tokenizer.Line, bag *diag.Bag) schema.Version {
	if cfg.Version != "" {
		return schema.Version(cfg.Version)
	}
	if len(lines) == 0 {
		return schema.Version22
	}
	probe := &diag.Bag{}
	hdr := decoder.Decode(schema.Version22, registry, lines[0].Number, lines[0].Text, probe)
	if v, ok := hdr.Field("version_number"); ok && v.Str != "" {
		candidate := schema.Version(v.Str)
		if schema.SupportsVersion(candidate) {
			return candidate
		}
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal, Code: diag.CodeVersionMismatch,
			Message: "HDR.version_number " + v.Str + " is not a supported CWR revision",
			Line:    lines[0].Number, RecordType: "HDR", Field: "version_number",
		})
	}
	return schema.Version22
}
