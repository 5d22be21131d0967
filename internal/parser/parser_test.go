package parser

import (
	"testing"

	"github.com/cwrcore/cwr-ingest/internal/config"
	"github.com/cwrcore/cwr-ingest/internal/decoder"
	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/schema"
	"gotest.tools/v3/assert"
)

func decodeAll(t *testing.T, reg *schema.Registry, v schema.Version, lines []string, bag *diag.Bag) []decoder.Record {
	t.Helper()
	var recs []decoder.Record
	for i, l := range lines {
		recs = append(recs, decoder.Decode(v, reg, i+1, l, bag))
	}
	return recs
}

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

func buildHDRLine() string {
	return fixedLine(106, map[int]string{
		1:   "HDR",
		4:   "PB",
		6:   "000000123",
		15:  "TEST PUBLISHER",
		60:  "01.10",
		65:  "20240101",
		73:  "120000",
		79:  "20240101",
		102: "02.20",
	})
}

func buildGRHLine(groupID, version string) string {
	return fixedLine(16, map[int]string{
		1:  "GRH",
		4:  "NWR",
		7:  groupID,
		12: version,
	})
}

func buildGRTLine(groupID, txnCount, recordCount string) string {
	return fixedLine(24, map[int]string{
		1:  "GRT",
		4:  groupID,
		9:  txnCount,
		17: recordCount,
	})
}

func buildTRLLine(groupCount, txnCount, recordCount string) string {
	return fixedLine(24, map[int]string{
		1:  "TRL",
		4:  groupCount,
		9:  txnCount,
		17: recordCount,
	})
}

func buildNWRLine(txnSeq, recSeq, title string) string {
	return fixedLine(127, map[int]string{
		1:  "NWR",
		4:  txnSeq,
		12: recSeq,
		20: title,
	})
}

// minimalValidFile builds the smallest structurally complete CWR stream:
// HDR, one group with one NWR transaction and no detail records, GRT, TRL.
// Group-level record_count includes the bounding GRH/GRT (config default);
// file-level record_count includes every physical line.
func minimalValidFile() []string {
	return []string{
		buildHDRLine(),
		buildGRHLine("00001", "02.20"),
		buildNWRLine("00000001", "00000001", "SONG TITLE"),
		buildGRTLine("00001", "00000001", "00000003"),
		buildTRLLine("00001", "00000001", "00000005"),
	}
}

func TestParserMinimalValidFile(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	recs := decodeAll(t, reg, schema.Version22, minimalValidFile(), bag)

	p := New(reg, config.Default(), bag)
	for _, r := range recs {
		p.Feed(r)
	}
	file := p.Result()

	assert.Assert(t, file.Complete)
	assert.Equal(t, len(file.Groups), 1)
	assert.Equal(t, len(file.Groups[0].Transactions), 1)
	for _, d := range bag.Items() {
		assert.Assert(t, d.Severity < diag.SeverityGroup, d.Error())
	}
}

func TestParserVersionMismatchBetweenHdrAndGrh(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	lines := minimalValidFile()
	lines[1] = buildGRHLine("00001", "01.10") // HDR declares 02.20
	recs := decodeAll(t, reg, schema.Version22, lines, bag)

	p := New(reg, config.Default(), bag)
	for _, r := range recs {
		p.Feed(r)
	}
	p.Result()

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeVersionMismatch {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestParserUnknownRecordTypeMidGroupRecovers(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	lines := []string{
		buildHDRLine(),
		buildGRHLine("00001", "02.20"),
		buildNWRLine("00000001", "00000001", "SONG TITLE"),
		fixedLine(20, map[int]string{1: "ZZZ", 4: "GARBAGE"}),
		buildNWRLine("00000002", "00000002", "SONG TWO"),
		buildGRTLine("00001", "00000002", "00000004"),
		buildTRLLine("00001", "00000002", "00000006"),
	}
	recs := decodeAll(t, reg, schema.Version22, lines, bag)

	p := New(reg, config.Default(), bag)
	for _, r := range recs {
		p.Feed(r)
	}
	file := p.Result()

	assert.Assert(t, file.Complete)
	// The unknown record is kept as a detail record of the first
	// transaction, and the second NWR opens a second transaction in the
	// same group.
	assert.Equal(t, len(file.Groups[0].Transactions), 2)
}

func TestParserTruncatedInputMissingTrailer(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	lines := minimalValidFile()[:3] // cut off before GRT/TRL
	recs := decodeAll(t, reg, schema.Version22, lines, bag)

	p := New(reg, config.Default(), bag)
	for _, r := range recs {
		p.Feed(r)
	}
	file := p.Result()

	assert.Assert(t, !file.Complete)
	found := false
	for _, d := range bag.Items() {
		if d.Severity == diag.SeverityFatal {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestParserGroupCountMismatch(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	lines := minimalValidFile()
	lines[3] = buildGRTLine("00001", "00000002", "00000003") // declares 2 transactions, only 1 present
	recs := decodeAll(t, reg, schema.Version22, lines, bag)

	p := New(reg, config.Default(), bag)
	for _, r := range recs {
		p.Feed(r)
	}
	p.Result()

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeCountMismatch && d.RecordType == "GRT" {
			found = true
		}
	}
	assert.Assert(t, found)
}
