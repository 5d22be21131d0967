// Package parser implements the structural parser: a two-level state
// machine that reconstructs the File -> Group -> Transaction hierarchy
// from a flat, already-decoded record stream, enforcing sequencing and
// count invariants (spec.md §4.5).
package parser

import (
	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/decoder"
	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/schema"
)

type state int

const (
	stateStart state = iota
	stateInFile
	stateInGroup
	stateInTransaction
	stateEnd
)

// Parser walks a stream of already-decoded records and assembles a File.
// It carries mutable in-progress state and is therefore NOT safe to
// share across concurrent inputs (spec.md §5) — construct one per file.
type Parser struct {
	registry   *schema.Registry
	cfg        config.Config
	bag        *diag.Bag
	state      state
	recovering bool

	file     File
	curGroup *Group
	curTxn   *Transaction
}

// New constructs a Parser bound to registry and cfg, accumulating
// diagnostics into bag.
func New(registry *schema.Registry, cfg config.Config, bag *diag.Bag) *Parser {
	return &Parser{registry: registry, cfg: cfg, bag: bag, state: stateStart}
}

// Feed processes one decoded record. Parser.Feed is total: it never
// panics and always leaves the parser in a well-defined state, per
// spec.md §4.5's recovery discipline and §8's "parser totality" property.
func (p *Parser) Feed(rec decoder.Record) {
	if p.recovering {
		if p.reestablishesState(rec) {
			p.recovering = false
		} else {
			return
		}
	}

	switch p.state {
	case stateStart:
		p.feedStart(rec)
	case stateInFile:
		p.feedInFile(rec)
	case stateInGroup:
		p.feedInGroup(rec)
	case stateInTransaction:
		p.feedInTransaction(rec)
	case stateEnd:
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityWarning, Code: diag.CodeBadStructure,
			Message: "content after file trailer, ignored", Line: rec.LineNumber, RecordType: rec.RecordType,
		})
	}
}

func (p *Parser) reestablishesState(rec decoder.Record) bool {
	return rec.RecordType == "GRH" || rec.RecordType == "TRL" || p.registry.IsTransactionHeader(rec.RecordType)
}

func (p *Parser) fatalBadStructure(rec decoder.Record, sev diag.Severity, expected string) {
	p.bag.Add(diag.Diagnostic{
		Severity: sev, Code: diag.CodeBadStructure,
		Message:    "unexpected record type " + rec.RecordType + "; expected " + expected,
		Line:       rec.LineNumber,
		RecordType: rec.RecordType,
	})
	p.recovering = true
}

func (p *Parser) feedStart(rec decoder.Record) {
	if rec.RecordType != "HDR" {
		p.fatalBadStructure(rec, diag.SeverityFatal, "HDR")
		return
	}
	p.file.Header = rec
	p.state = stateInFile
}

func (p *Parser) feedInFile(rec decoder.Record) {
	switch rec.RecordType {
	case "GRH":
		p.openGroup(rec)
		p.state = stateInGroup
	case "TRL":
		p.file.Trailer = rec
		p.finalizeFile()
		p.state = stateEnd
	default:
		p.fatalBadStructure(rec, diag.SeverityGroup, "GRH or TRL")
	}
}

func (p *Parser) feedInGroup(rec decoder.Record) {
	switch {
	case p.registry.IsTransactionHeader(rec.RecordType):
		p.openTransaction(rec)
		p.state = stateInTransaction
	case rec.RecordType == "GRT":
		p.closeGroup(rec)
		p.state = stateInFile
	default:
		p.fatalBadStructure(rec, diag.SeverityGroup, "a transaction header or GRT")
	}
}

func (p *Parser) feedInTransaction(rec decoder.Record) {
	switch {
	case p.registry.IsTransactionHeader(rec.RecordType):
		p.closeTransaction()
		p.openTransaction(rec)
	case rec.RecordType == "GRT":
		p.closeTransaction()
		p.closeGroup(rec)
		p.state = stateInFile
	default:
		p.curTxn.Records = append(p.curTxn.Records, rec)
	}
}

func (p *Parser) openGroup(rec decoder.Record) {
	groupID := int64(0)
	if v, ok := rec.Field("group_id"); ok && v.Valid && !v.IsNil {
		groupID = v.Int
	}
	txnType := ""
	if v, ok := rec.Field("transaction_type"); ok {
		txnType = v.Str
	}
	declaredTxn, declaredRec := int64(0), int64(0)

	if prev := p.lastGroupID(); groupID <= prev {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityGroup, Code: diag.CodeBadStructure,
			Message: "group_id must be unique and monotonically increasing", Line: rec.LineNumber, RecordType: "GRH",
		})
	}

	p.curGroup = &Group{
		GroupID:         groupID,
		TransactionType: txnType,
		Header:          rec,
		DeclaredTxnCount: declaredTxn, DeclaredRecordCount: declaredRec,
	}

	if p.file.Header.RecordType == "HDR" {
		hv, _ := p.file.Header.Field("version_number")
		gv, ok := rec.Field("version_number")
		if ok && gv.Str != "" && hv.Str != gv.Str {
			p.bag.Add(diag.Diagnostic{
				Severity: diag.SeverityGroup, Code: diag.CodeVersionMismatch,
				Message:    "GRH.version_number (" + gv.Str + ") does not match HDR.version_number (" + hv.Str + ")",
				Line:       rec.LineNumber,
				RecordType: "GRH",
			})
		}
	}
}

func (p *Parser) lastGroupID() int64 {
	if len(p.file.Groups) == 0 {
		return -1
	}
	return p.file.Groups[len(p.file.Groups)-1].GroupID
}

func (p *Parser) openTransaction(rec decoder.Record) {
	if p.curGroup.TransactionType != "" && rec.RecordType != p.curGroup.TransactionType &&
		!isKnownAliasOfGroupType(rec.RecordType, p.curGroup.TransactionType) {
		// All transactions inside a group must share the group's
		// transaction_type (spec.md §3, Group invariants).
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityTransaction, Code: diag.CodeBadStructure,
			Message:    "transaction type " + rec.RecordType + " does not match group transaction_type " + p.curGroup.TransactionType,
			Line:       rec.LineNumber,
			RecordType: rec.RecordType,
		})
	}
	p.curTxn = &Transaction{Header: rec, Records: []decoder.Record{rec}}
}

// isKnownAliasOfGroupType allows WRK to head a group declared NWR and
// vice versa: both spellings are observed in the wild for plain work
// registrations (spec.md's record-type catalog lists WRK, REV, and NWR
// as distinct transaction headers without further disambiguation).
func isKnownAliasOfGroupType(recordType, groupType string) bool {
	workLike := map[string]bool{"WRK": true, "NWR": true, "REV": true}
	return workLike[recordType] && workLike[groupType]
}

func (p *Parser) closeTransaction() {
	if p.curTxn == nil {
		return
	}
	p.curGroup.Transactions = append(p.curGroup.Transactions, *p.curTxn)
	p.curGroup.ObservedTxnCount++
	p.curGroup.ObservedRecordCount += len(p.curTxn.Records)
	p.curTxn = nil
}

func (p *Parser) closeGroup(trailer decoder.Record) {
	p.curGroup.Trailer = trailer
	if v, ok := trailer.Field("transaction_count"); ok && v.Valid && !v.IsNil {
		p.curGroup.DeclaredTxnCount = v.Int
	}
	if v, ok := trailer.Field("record_count"); ok && v.Valid && !v.IsNil {
		p.curGroup.DeclaredRecordCount = v.Int
	}

	observedRecordCount := p.curGroup.ObservedRecordCount
	if p.cfg.GroupRecordCountIncludesBounds {
		observedRecordCount += 2 // GRH + GRT themselves
	}

	if p.curGroup.DeclaredTxnCount != int64(p.curGroup.ObservedTxnCount) {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityGroup, Code: diag.CodeCountMismatch,
			Message: formatCountMismatch("transaction_count", p.curGroup.DeclaredTxnCount, int64(p.curGroup.ObservedTxnCount)),
			Line:    trailer.LineNumber, RecordType: "GRT",
		})
	}
	if p.curGroup.DeclaredRecordCount != int64(observedRecordCount) {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityGroup, Code: diag.CodeCountMismatch,
			Message: formatCountMismatch("record_count", p.curGroup.DeclaredRecordCount, int64(observedRecordCount)),
			Line:    trailer.LineNumber, RecordType: "GRT",
		})
	}

	p.file.Groups = append(p.file.Groups, *p.curGroup)
	p.file.ObservedGroupCount++
	p.file.ObservedTxnCount += p.curGroup.ObservedTxnCount
	// File-level record_count always counts every physical record,
	// including GRH/GRT, per spec.md §4.5's unambiguous TRL rule.
	p.file.ObservedRecordCount += p.curGroup.ObservedRecordCount + 2
	p.curGroup = nil
}

func (p *Parser) finalizeFile() {
	// HDR + TRL themselves.
	p.file.ObservedRecordCount += 2

	if v, ok := p.file.Trailer.Field("group_count"); ok && v.Valid && !v.IsNil {
		p.file.DeclaredGroupCount = v.Int
	}
	if v, ok := p.file.Trailer.Field("transaction_count"); ok && v.Valid && !v.IsNil {
		p.file.DeclaredTxnCount = v.Int
	}
	if v, ok := p.file.Trailer.Field("record_count"); ok && v.Valid && !v.IsNil {
		p.file.DeclaredRecordCount = v.Int
	}

	if p.file.DeclaredGroupCount != int64(p.file.ObservedGroupCount) {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal, Code: diag.CodeCountMismatch,
			Message: formatCountMismatch("group_count", p.file.DeclaredGroupCount, int64(p.file.ObservedGroupCount)),
			Line:    p.file.Trailer.LineNumber, RecordType: "TRL",
		})
	}
	if p.file.DeclaredTxnCount != int64(p.file.ObservedTxnCount) {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal, Code: diag.CodeCountMismatch,
			Message: formatCountMismatch("transaction_count", p.file.DeclaredTxnCount, int64(p.file.ObservedTxnCount)),
			Line:    p.file.Trailer.LineNumber, RecordType: "TRL",
		})
	}
	if p.file.DeclaredRecordCount != int64(p.file.ObservedRecordCount) {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal, Code: diag.CodeCountMismatch,
			Message: formatCountMismatch("record_count", p.file.DeclaredRecordCount, int64(p.file.ObservedRecordCount)),
			Line:    p.file.Trailer.LineNumber, RecordType: "TRL",
		})
	}
	p.file.Complete = true
}

// Result returns the assembled File once Feed has processed every line.
// If the input ended before a TRL was observed, Result records a Fatal
// diagnostic and returns the groups closed so far with Complete == false;
// a group or transaction still open at that point is not included.
func (p *Parser) Result() File {
	if p.state != stateEnd {
		p.bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal, Code: diag.CodeBadStructure,
			Message: "input ended before file trailer (TRL) was reached",
			Line:    p.lastLine(),
		})
	}
	return p.file
}

func (p *Parser) lastLine() int {
	if p.curTxn != nil && len(p.curTxn.Records) > 0 {
		return p.curTxn.Records[len(p.curTxn.Records)-1].LineNumber
	}
	if p.curGroup != nil {
		return p.curGroup.Header.LineNumber
	}
	return p.file.Header.LineNumber
}

func formatCountMismatch(field string, declared, observed int64) string {
	return field + " declared " + itoa(declared) + " but observed " + itoa(observed)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
