// Package validator runs the layered rule set against an assembled
// parser.File: mandatory fields (L1), lookup membership (L2) and
// cross-record integrity (L3). The structural counts (L4) are emitted
// by internal/parser into the same diagnostic bag and are not checked
// again here (spec.md §4.6).
package validator

import (
	"fmt"

	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/decoder"
	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/lookup"
	"github.com/cwrcore/cwr-ingest/internal/parser"
	"github.com/cwrcore/cwr-ingest/internal/schema"
)

// shareTolerance is ±0.003% expressed in thousandths-of-a-percent
// integer units, the representation Value.Int already carries for
// Numeric share fields (spec.md §4.6).
const shareTolerance = 3

// Validator runs L1-L4 against a structural parse result. It holds no
// mutable state of its own beyond what a single Validate call needs, so
// one instance may be reused across files sharing a registry/lookups.
type Validator struct {
	registry *schema.Registry
	lookups  *lookup.Manager
	cfg      config.Config
}

func New(registry *schema.Registry, lookups *lookup.Manager, cfg config.Config) *Validator {
	return &Validator{registry: registry, lookups: lookups, cfg: cfg}
}

// Validate appends L1-L4 diagnostics for file into bag. It never
// mutates file and never returns an error: every failure mode is a
// content diagnostic (spec.md §7 totality guarantee).
func (v *Validator) Validate(version schema.Version, file parser.File, bag *diag.Bag) {
	v.validateRecord(version, file.Header, bag)
	v.validateRecord(version, file.Trailer, bag)

	for _, g := range file.Groups {
		v.validateRecord(version, g.Header, bag)
		v.validateRecord(version, g.Trailer, bag)
		for _, txn := range g.Transactions {
			v.validateTransaction(version, txn, bag)
		}
		v.checkGroupSequencing(g, bag)
	}

	// L4 (structural counts) is enforced by internal/parser at assembly
	// time, into the same diagnostic bag; re-checking here would double
	// every CountMismatch (spec.md §8: "exactly one diagnostic at the
	// corresponding scope is emitted"). Validate is still the layer
	// spec.md §4.6 describes L4 as belonging to, it simply has nothing
	// left to add once the parser has run against the same bag.
}

func (v *Validator) validateTransaction(version schema.Version, txn parser.Transaction, bag *diag.Bag) {
	for _, rec := range txn.Records {
		v.validateRecord(version, rec, bag)
	}
	v.checkShareTotals(txn, bag)
	v.checkReferentialLinkage(txn, bag)
	v.checkSequencing(txn, bag)
}

// validateRecord runs L1 (mandatory fields) and L2 (lookup membership)
// for one decoded record.
func (v *Validator) validateRecord(version schema.Version, rec decoder.Record, bag *diag.Bag) {
	if !rec.Known || rec.RecordType == "" {
		return
	}
	s, ok := v.registry.Schema(version, rec.RecordType)
	if !ok {
		return
	}
	for _, spec := range s.Fields {
		val, present := rec.Field(spec.Name)
		if spec.Mandatory && (!present || val.IsBlank()) {
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityRecord, Code: diag.CodeMissingMandatory,
				Message:    fmt.Sprintf("mandatory field %q is missing or blank", spec.Name),
				Line:       rec.LineNumber,
				RecordType: rec.RecordType,
				Field:      spec.Name,
			})
		}
		if spec.Format == schema.LookupCode && !val.IsBlank() {
			v.checkLookupMembership(spec, val, rec, bag)
		}
	}
}

func (v *Validator) checkLookupMembership(spec schema.FieldSpec, val decoder.Value, rec decoder.Record, bag *diag.Bag) {
	if v.lookups == nil {
		return
	}
	if _, err := v.lookups.GetTable(spec.Lookup); err != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityWarning, Code: diag.CodeLookupTableMissing,
			Message:    fmt.Sprintf("lookup table %s unavailable, value %q not checked", spec.Lookup, val.Str),
			Line:       rec.LineNumber,
			RecordType: rec.RecordType,
			Field:      spec.Name,
		})
		return
	}
	if v.lookups.IsValid(spec.Lookup, val.Str) {
		return
	}
	bag.Add(diag.Diagnostic{
		Severity: diag.SeverityField, Code: diag.CodeUnknownCode,
		Message:    fmt.Sprintf("value %q is not a recognized %s code", val.Str, spec.Lookup),
		Line:       rec.LineNumber,
		RecordType: rec.RecordType,
		Field:      spec.Name,
	})
}

// shareRule names the share field (ownership or collection) checked by
// an L3 rule and the record types that carry it; this is the data-driven "rule
// registry" spec.md §9 asks for, expressed as plain Go data rather than
// a per-record-type switch.
type shareRule struct {
	rightsType  string   // PR, MR, SR
	recordTypes []string // record types contributing ownership shares
	field       string
}

var ownershipShareRules = []shareRule{
	{rightsType: "PR", recordTypes: []string{"SWR", "OWR", "SPU", "OPU"}, field: "pr_ownership_share"},
	{rightsType: "MR", recordTypes: []string{"SWR", "OWR", "SPU", "OPU"}, field: "mr_ownership_share"},
	{rightsType: "SR", recordTypes: []string{"SWR", "OWR", "SPU", "OPU"}, field: "sr_ownership_share"},
}

var collectionShareRules = []shareRule{
	{rightsType: "PR", recordTypes: []string{"SWT", "OWT", "SPT", "OPT"}, field: "pr_collection_share"},
	{rightsType: "MR", recordTypes: []string{"SWT", "OWT", "SPT", "OPT"}, field: "mr_collection_share"},
	{rightsType: "SR", recordTypes: []string{"SWT", "OWT", "SPT", "OPT"}, field: "sr_collection_share"},
}

func recordTypeIn(recordType string, types []string) bool {
	for _, t := range types {
		if t == recordType {
			return true
		}
	}
	return false
}

func (v *Validator) checkShareTotals(txn parser.Transaction, bag *diag.Bag) {
	v.checkShareSet(txn, ownershipShareRules, bag)
	v.checkTerritoryShareSet(txn, bag)
}

// checkShareSet sums ownership shares across the whole transaction,
// one total per rights type, and compares it against 100.000%.
func (v *Validator) checkShareSet(txn parser.Transaction, rules []shareRule, bag *diag.Bag) {
	for _, rule := range rules {
		total := int64(0)
		seen := false
		for _, rec := range txn.Records {
			if !recordTypeIn(rec.RecordType, rule.recordTypes) {
				continue
			}
			val, ok := rec.Field(rule.field)
			if !ok || val.IsNil || !val.Valid {
				continue
			}
			seen = true
			total += val.Int
		}
		if !seen {
			continue
		}
		if diffFrom100(total) > shareTolerance {
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityTransaction, Code: diag.CodeShareSumInvalid,
				Message:    fmt.Sprintf("%s ownership shares total %s%%, expected 100.000%%", rule.rightsType, formatThousandths(total)),
				Line:       txn.Header.LineNumber,
				RecordType: txn.Header.RecordType,
			})
		}
	}
}

// checkTerritoryShareSet applies the collection-share rule per
// territory, since 100% is owed once per territory rather than once
// per transaction (spec.md §4.6).
func (v *Validator) checkTerritoryShareSet(txn parser.Transaction, bag *diag.Bag) {
	for _, rule := range collectionShareRules {
		totals := map[string]int64{}
		for _, rec := range txn.Records {
			if !recordTypeIn(rec.RecordType, rule.recordTypes) {
				continue
			}
			territory, ok := rec.Field("territory_code")
			if !ok || territory.Str == "" {
				continue
			}
			val, ok := rec.Field(rule.field)
			if !ok || val.IsNil || !val.Valid {
				continue
			}
			totals[territory.Str] += val.Int
		}
		for territory, total := range totals {
			if diffFrom100(total) > shareTolerance {
				bag.Add(diag.Diagnostic{
					Severity: diag.SeverityTransaction, Code: diag.CodeShareSumInvalid,
					Message:    fmt.Sprintf("%s collection shares for territory %s total %s%%, expected 100.000%%", rule.rightsType, territory, formatThousandths(total)),
					Line:       txn.Header.LineNumber,
					RecordType: txn.Header.RecordType,
				})
			}
		}
	}
}

func diffFrom100(totalThousandths int64) int64 {
	const hundredPercent = 100000
	d := totalThousandths - hundredPercent
	if d < 0 {
		d = -d
	}
	return d
}

func formatThousandths(v int64) string {
	return fmt.Sprintf("%d.%03d", v/1000, v%1000)
}

// linkageRule ties a dependent record's IP-number field to the set of
// record types expected to declare that same number somewhere in the
// same transaction, before or after the dependent record (spec.md §4.6
// referential linkage).
type linkageRule struct {
	dependentTypes []string
	dependentField string
	anchorTypes    []string
	anchorField    string
}

var linkageRules = []linkageRule{
	{dependentTypes: []string{"SWT", "OWT"}, dependentField: "interested_party_number", anchorTypes: []string{"SWR", "OWR"}, anchorField: "interested_party_number"},
	{dependentTypes: []string{"SPT", "OPT"}, dependentField: "interested_party_number", anchorTypes: []string{"SPU", "OPU"}, anchorField: "interested_party_number"},
	{dependentTypes: []string{"PWR"}, dependentField: "writer_ip_number", anchorTypes: []string{"SWR", "OWR"}, anchorField: "interested_party_number"},
	{dependentTypes: []string{"PWR"}, dependentField: "publisher_ip_number", anchorTypes: []string{"SPU", "OPU"}, anchorField: "interested_party_number"},
}

func (v *Validator) checkReferentialLinkage(txn parser.Transaction, bag *diag.Bag) {
	for _, rule := range linkageRules {
		anchors := map[string]bool{}
		for _, rec := range txn.Records {
			if !recordTypeIn(rec.RecordType, rule.anchorTypes) {
				continue
			}
			if val, ok := rec.Field(rule.anchorField); ok && val.Str != "" {
				anchors[val.Str] = true
			}
		}
		for _, rec := range txn.Records {
			if !recordTypeIn(rec.RecordType, rule.dependentTypes) {
				continue
			}
			val, ok := rec.Field(rule.dependentField)
			if !ok || val.Str == "" {
				continue
			}
			if !anchors[val.Str] {
				bag.Add(diag.Diagnostic{
					Severity: diag.SeverityTransaction, Code: diag.CodeOrphanReference,
					Message:    fmt.Sprintf("%s references interested party %q which does not appear in any %v record of this transaction", rec.RecordType, val.Str, rule.anchorTypes),
					Line:       rec.LineNumber,
					RecordType: rec.RecordType,
					Field:      rule.dependentField,
				})
			}
		}
	}
}

// checkSequencing enforces strictly increasing record_sequence within
// the transaction, that every child record's transaction_sequence
// matches its header's (spec.md §3) and, via the caller-supplied
// severity override, surfaces malformed transaction_sequence at the
// configured severity (spec.md §9 open question).
func (v *Validator) checkSequencing(txn parser.Transaction, bag *diag.Bag) {
	headerSeq := txn.Sequence()
	if headerSeq < 0 {
		bag.Add(diag.Diagnostic{
			Severity: v.cfg.SequenceErrorSeverity, Code: diag.CodeBadSequence,
			Message:    "transaction_sequence is missing or not numeric",
			Line:       txn.Header.LineNumber,
			RecordType: txn.Header.RecordType,
		})
	}

	prev := int64(-1)
	for _, rec := range txn.Records {
		if rec.LineNumber != txn.Header.LineNumber {
			if val, ok := rec.Field("transaction_sequence"); ok && !val.IsNil && val.Valid && val.Int != headerSeq {
				bag.Add(diag.Diagnostic{
					Severity: diag.SeverityTransaction, Code: diag.CodeBadSequence,
					Message:    fmt.Sprintf("transaction_sequence %d does not match transaction header's %d", val.Int, headerSeq),
					Line:       rec.LineNumber,
					RecordType: rec.RecordType,
					Field:      "transaction_sequence",
				})
			}
		}

		val, ok := rec.Field("record_sequence")
		if !ok || val.IsNil || !val.Valid {
			continue
		}
		if val.Int <= prev {
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityTransaction, Code: diag.CodeBadSequence,
				Message:    fmt.Sprintf("record_sequence %d does not strictly increase from %d", val.Int, prev),
				Line:       rec.LineNumber,
				RecordType: rec.RecordType,
				Field:      "record_sequence",
			})
		}
		prev = val.Int
	}
}

// checkGroupSequencing enforces that transaction_sequence is
// monotonically increasing across the transactions within a group
// (spec.md §4.6 L3), the transaction-level analogue of the group_id
// monotonicity the structural parser already checks in
// internal/parser's openGroup/lastGroupID.
func (v *Validator) checkGroupSequencing(g parser.Group, bag *diag.Bag) {
	prev := int64(-1)
	for _, txn := range g.Transactions {
		seq := txn.Sequence()
		if seq < 0 {
			continue
		}
		if seq <= prev {
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityTransaction, Code: diag.CodeBadSequence,
				Message:    fmt.Sprintf("transaction_sequence %d does not strictly increase from %d within group %d", seq, prev, g.GroupID),
				Line:       txn.Header.LineNumber,
				RecordType: txn.Header.RecordType,
				Field:      "transaction_sequence",
			})
		}
		prev = seq
	}
}

