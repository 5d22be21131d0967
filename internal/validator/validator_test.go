package validator

import (
	"testing"

	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/decoder"
	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/lookup"
	"github.com/cwrcore/cwr-ingest/internal/parser"
	"github.com/cwrcore/cwr-ingest/internal/schema"
	"gotest.tools/v3/assert"
)

func fixedLine(width int, fields map[int]string) string {
	b := make([]byte, width)
	for i := range b {
		b[i] = ' '
	}
	for start, value := range fields {
		copy(b[start-1:], value)
	}
	return string(b)
}

func decodeLine(t *testing.T, reg *schema.Registry, v schema.Version, lineNo int, text string, bag *diag.Bag) decoder.Record {
	t.Helper()
	return decoder.Decode(v, reg, lineNo, text, bag)
}

func staticLookups() *lookup.Manager {
	territories := []lookup.Row{{Code: "2136", Definition: "World"}}
	return lookup.NewManager(func(table string) ([]lookup.Row, error) {
		if table == "Territory" {
			return territories, nil
		}
		return nil, &lookup.NotFoundError{Table: table}
	}, nil)
}

func TestValidatorShareSumOffDetected(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG",
	}), bag)
	swr := decodeLine(t, reg, schema.Version22, 2, fixedLine(137, map[int]string{
		1: "SWR", 4: "00000001", 12: "00000002",
		20: "000000001", 29: "SMITH", 104: "CA",
		106: "060000", // 60.000% PR share, leaving the transaction short
	}), bag)

	txn := parser.Transaction{Header: header, Records: []decoder.Record{header, swr}}
	v.validateTransaction(schema.Version22, txn, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeShareSumInvalid {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestValidatorShareSumWithinToleranceIsClean(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG",
	}), bag)
	swr := decodeLine(t, reg, schema.Version22, 2, fixedLine(137, map[int]string{
		1: "SWR", 4: "00000001", 12: "00000002",
		20: "000000001", 29: "SMITH", 104: "CA",
		106: "100001", // 100.001%, within ±0.003 tolerance
	}), bag)

	txn := parser.Transaction{Header: header, Records: []decoder.Record{header, swr}}
	v.validateTransaction(schema.Version22, txn, bag)

	for _, d := range bag.Items() {
		assert.Assert(t, d.Code != diag.CodeShareSumInvalid, d.Error())
	}
}

func TestValidatorOrphanTerritoryReference(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG",
	}), bag)
	// SWT references an interested party never declared by any SWR.
	swt := decodeLine(t, reg, schema.Version22, 2, fixedLine(50, map[int]string{
		1: "SWT", 4: "00000001", 12: "00000002",
		20: "000000999", 47: "2136",
	}), bag)

	txn := parser.Transaction{Header: header, Records: []decoder.Record{header, swt}}
	v.validateTransaction(schema.Version22, txn, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeOrphanReference {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestValidatorReferentialLinkageSatisfied(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG",
	}), bag)
	swr := decodeLine(t, reg, schema.Version22, 2, fixedLine(137, map[int]string{
		1: "SWR", 4: "00000001", 12: "00000002",
		20: "000000001", 29: "SMITH", 104: "CA",
	}), bag)
	swt := decodeLine(t, reg, schema.Version22, 3, fixedLine(50, map[int]string{
		1: "SWT", 4: "00000001", 12: "00000003",
		20: "000000001", 47: "2136",
	}), bag)

	txn := parser.Transaction{Header: header, Records: []decoder.Record{header, swr, swt}}
	v.validateTransaction(schema.Version22, txn, bag)

	for _, d := range bag.Items() {
		assert.Assert(t, d.Code != diag.CodeOrphanReference, d.Error())
	}
}

func TestValidatorMandatoryFieldMissing(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	// work_title (mandatory) left blank.
	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001",
	}), bag)
	v.validateRecord(schema.Version22, header, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeMissingMandatory && d.Field == "work_title" {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestValidatorMandatoryLookupCodeFieldBlank(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	// writer_designation (mandatory LookupCode) left blank.
	swr := decodeLine(t, reg, schema.Version22, 1, fixedLine(137, map[int]string{
		1: "SWR", 4: "00000001", 12: "00000001",
		20: "000000001", 29: "SMITH",
	}), bag)
	v.validateRecord(schema.Version22, swr, bag)

	found := false
	unknownCode := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeMissingMandatory && d.Field == "writer_designation" {
			found = true
		}
		if d.Code == diag.CodeUnknownCode && d.Field == "writer_designation" {
			unknownCode = true
		}
	}
	assert.Assert(t, found)
	assert.Assert(t, !unknownCode)
}

func TestValidatorUnknownLookupCode(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	swt := decodeLine(t, reg, schema.Version22, 1, fixedLine(50, map[int]string{
		1: "SWT", 4: "00000001", 12: "00000001",
		20: "000000001", 47: "9999", // not in the Territory table
	}), bag)
	v.validateRecord(schema.Version22, swt, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeUnknownCode && d.Field == "territory_code" {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestValidatorSequencingNonIncreasingRecordSequence(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG",
	}), bag)
	dup := decodeLine(t, reg, schema.Version22, 2, fixedLine(137, map[int]string{
		1: "SWR", 4: "00000001", 12: "00000001", // same record_sequence as header
		20: "000000001", 29: "SMITH", 104: "CA",
	}), bag)

	txn := parser.Transaction{Header: header, Records: []decoder.Record{header, dup}}
	v.checkSequencing(txn, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeBadSequence {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestValidatorSequencingChildTransactionSequenceMismatch(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	header := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG",
	}), bag)
	// SWR carries a different transaction_sequence than its header.
	swr := decodeLine(t, reg, schema.Version22, 2, fixedLine(137, map[int]string{
		1: "SWR", 4: "00000002", 12: "00000002",
		20: "000000001", 29: "SMITH", 104: "CA",
	}), bag)

	txn := parser.Transaction{Header: header, Records: []decoder.Record{header, swr}}
	v.checkSequencing(txn, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeBadSequence && d.Field == "transaction_sequence" {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestValidatorGroupSequencingNonIncreasingTransactionSequence(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	v := New(reg, staticLookups(), config.Default())

	firstHeader := decodeLine(t, reg, schema.Version22, 1, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000001", 20: "SONG ONE",
	}), bag)
	// Second transaction repeats the first's transaction_sequence instead
	// of increasing past it.
	secondHeader := decodeLine(t, reg, schema.Version22, 2, fixedLine(127, map[int]string{
		1: "NWR", 4: "00000001", 12: "00000002", 20: "SONG TWO",
	}), bag)

	g := parser.Group{
		GroupID: 1,
		Transactions: []parser.Transaction{
			{Header: firstHeader, Records: []decoder.Record{firstHeader}},
			{Header: secondHeader, Records: []decoder.Record{secondHeader}},
		},
	}
	v.checkGroupSequencing(g, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeBadSequence && d.Field == "transaction_sequence" {
			found = true
		}
	}
	assert.Assert(t, found)
}
