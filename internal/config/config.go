// Package config carries the two behavioral Open Questions spec.md §9
// leaves unresolved, as explicit fields rather than guessed defaults.
package config

import "github.com/cwrcore/cwr-ingest/internal/diag"

// Config tunes ambiguous structural/validation behavior.
type Config struct {
	// GroupRecordCountIncludesBounds selects the convention for a
	// group's declared record_count: whether the bounding GRH and GRT
	// themselves count toward it (spec.md §4.5, §9). Default true,
	// following the sibling TRL's own full-accounting convention.
	GroupRecordCountIncludesBounds bool

	// SequenceErrorSeverity is the severity emitted for a malformed
	// transaction_sequence (spec.md §9: the source implementation
	// elevates this to Transaction severity, but the specification
	// text suggests Record severity may be more appropriate).
	SequenceErrorSeverity diag.Severity

	// Version, if non-empty, overrides the version inferred from
	// HDR.version_number (spec.md §6 CLI surface: --version).
	Version string

	// SkipValidation runs the Tokenizer/Decoder/StructuralParser stages
	// only, producing structural diagnostics alone (spec.md §6: --no-validate).
	SkipValidation bool
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		GroupRecordCountIncludesBounds: true,
		SequenceErrorSeverity:          diag.SeverityTransaction,
	}
}
