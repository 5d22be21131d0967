// Command cwrctl ingests a CWR file and reports its validity, either as
// a one-shot CLI run or as a persistent TCP server that ingests one
// path per connection line.
package main

import (
	"bytes"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/cwr"
	"github.com/cwrcore/cwr-ingest/internal/logging"
	"github.com/cwrcore/cwr-ingest/internal/lookup"
	"github.com/cwrcore/cwr-ingest/internal/report"
	"github.com/cwrcore/cwr-ingest/internal/schema"
	"github.com/cwrcore/cwr-ingest/internal/server"
)

//go:embed starter_lookups.csv
var starterLookups []byte

const (
	exitValid     = 0
	exitInvalid   = 1
	exitHostError = 2
)

func main() {
	serverMode := flag.Bool("server", false, "run in server mode")
	port := flag.Int("port", 4444, "port to listen on in server mode")
	version := flag.String("version", "", "CWR revision to assume (2.1 or 2.2); inferred from HDR if omitted")
	noValidate := flag.Bool("no-validate", false, "run only the structural stages, skip L1-L4 validation")
	output := flag.String("output", "", "write the diagnostic report here instead of stdout")
	debug := flag.Bool("debug", false, "enable source-location logging")
	flag.Parse()

	opts := logging.DefaultOptions()
	opts.Debug = *debug
	logger, closeFn := logging.SetupLogger(opts)
	defer closeFn()
	slog.SetDefault(logger)

	registry := schema.NewRegistry()
	lookups := lookup.NewManager(lookup.SourceFromBulkCSV(bytes.NewReader(starterLookups)), logger)
	engine := cwr.NewEngine(registry, lookups, logger)

	cfg := config.Default()
	cfg.SkipValidation = *noValidate
	if *version != "" {
		cfg.Version = normalizeVersion(*version)
	}

	if *serverMode {
		if err := server.Start(*port, engine, cfg, logger); err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(exitHostError)
		}
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: cwrctl [flags] <input-file>")
		os.Exit(exitHostError)
	}

	result, err := engine.ParseFile(args[0], cfg)
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(exitHostError)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Error("failed to open output file", "path", *output, "error", err)
			os.Exit(exitHostError)
		}
		defer f.Close()
		report.Write(f, result)
	} else {
		report.Write(out, result)
	}

	if result.IsValid {
		os.Exit(exitValid)
	}
	os.Exit(exitInvalid)
}

// normalizeVersion maps the CLI's "2.1"/"2.2" spelling onto the
// internal "02.10"/"02.20" schema.Version strings.
func normalizeVersion(v string) string {
	switch v {
	case "2.1":
		return string(schema.Version21)
	case "2.2":
		return string(schema.Version22)
	default:
		return v
	}
}
