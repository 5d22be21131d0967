package decoder

import (
	"strings"
	"testing"

	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/schema"
	"gotest.tools/v3/assert"
)

func TestDecodeUnknownRecordType(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	rec := Decode(schema.Version22, reg, 1, "XYZ"+strings.Repeat(" ", 20), bag)

	assert.Assert(t, !rec.Known)
	assert.Equal(t, rec.RecordType, "XYZ")

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeUnknownRecordType {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestDecodeMalformedTooShortForRecordType(t *testing.T) {
	bag := &diag.Bag{}
	reg := schema.NewRegistry()
	_ = Decode(schema.Version22, reg, 1, "AB", bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeMalformedRecord && d.Severity == diag.SeverityFatal {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestDecodeTruncatedLine(t *testing.T) {
	// A GRT line declares width 24 but we supply only 9 bytes.
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	rec := Decode(schema.Version22, reg, 5, "GRT00001 ", bag)

	assert.Assert(t, rec.Known)
	truncated := 0
	for _, d := range bag.Items() {
		if d.Code == diag.CodeTruncated {
			truncated++
		}
	}
	assert.Assert(t, truncated > 0)
}

func TestDecodeNumericBlankIsNil(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	line := "GRT" + "00001" + strings.Repeat(" ", 8) + "00000003"
	rec := Decode(schema.Version22, reg, 1, line, bag)
	v, ok := rec.Field("transaction_count")
	assert.Assert(t, ok)
	assert.Assert(t, v.IsNil)
}

func TestDecodeNumericLeadingZeros(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	line := "GRT" + "00001" + "00000002" + "00000005"
	rec := Decode(schema.Version22, reg, 1, line, bag)
	v, _ := rec.Field("transaction_count")
	assert.Equal(t, v.Int, int64(2))
	rc, _ := rec.Field("record_count")
	assert.Equal(t, rc.Int, int64(5))
}

func TestDecodeDateAllZeroIsNil(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	hdr := buildHDR("00000000", "120000", "20240101")
	rec := Decode(schema.Version22, reg, 1, hdr, bag)
	v, _ := rec.Field("creation_date")
	assert.Assert(t, v.IsNil)
}

func TestDecodeDateInvalidCalendar(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	hdr := buildHDR("20240230", "120000", "20240101") // Feb 30 doesn't exist
	_ = Decode(schema.Version22, reg, 1, hdr, bag)

	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.CodeFormatError && d.Field == "creation_date" {
			found = true
		}
	}
	assert.Assert(t, found)
}

func TestDecodeLeapYear(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	hdr := buildHDR("20240229", "120000", "20240101") // 2024 is a leap year
	_ = Decode(schema.Version22, reg, 1, hdr, bag)
	for _, d := range bag.Items() {
		assert.Assert(t, d.Field != "creation_date")
	}
}

func TestDecodeTimeHundredths(t *testing.T) {
	// HDR's creation_time is only 6 bytes wide, so an 8-byte Time field
	// is needed to reach the HHMMSSFF form.
	bag := &diag.Bag{}
	spec := schema.FieldSpec{Name: "creation_time", Start: 1, Length: 8, Format: schema.Time}
	v := decodeField(spec, "12304599", 1, "HDR", bag)
	assert.Assert(t, v.Valid)
}

func TestDecodeFlagInvalid(t *testing.T) {
	reg := schema.NewRegistry()
	bag := &diag.Bag{}
	line := buildWorkHeader("X")
	rec := Decode(schema.Version22, reg, 1, line, bag)
	v, _ := rec.Field("recorded_indicator")
	assert.Assert(t, !v.Valid)
}

func TestDecodeTotalityAnyLength(t *testing.T) {
	reg := schema.NewRegistry()
	for n := 0; n < 200; n += 7 {
		bag := &diag.Bag{}
		line := "NWR" + strings.Repeat("9", n)
		assert.Assert(t, func() bool {
			_ = Decode(schema.Version22, reg, 1, line, bag)
			return true
		}())
	}
}

func buildHDR(creationDate, creationTime, transmissionDate string) string {
	b := make([]byte, 106)
	for i := range b {
		b[i] = ' '
	}
	copy(b[0:3], "HDR")
	copy(b[3:5], "PB")
	copy(b[5:14], "000000123")
	copy(b[14:59], "TEST PUBLISHER")
	copy(b[59:64], "01.10")
	copy(b[64:72], creationDate)
	copy(b[72:78], creationTime)
	copy(b[78:86], transmissionDate)
	copy(b[101:106], "02.20")
	return string(b)
}

func buildWorkHeader(recordedIndicator string) string {
	b := make([]byte, 127)
	for i := range b {
		b[i] = ' '
	}
	copy(b[0:3], "NWR")
	copy(b[3:11], "00000000")
	copy(b[11:19], "00000000")
	copy(b[19:79], "SONG TITLE")
	copy(b[123:124], recordedIndicator)
	return string(b)
}
