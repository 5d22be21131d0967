// Package decoder slices a raw CWR record line into a typed field map,
// driven by a version-parameterized schema.RecordSchema (spec.md §4.4).
package decoder

import (
	"strconv"
	"strings"

	"github.com/cwrcore/cwr-ingest/internal/diag"
	"github.com/cwrcore/cwr-ingest/internal/schema"
)

// Value is a decoded field value. Exactly one of the typed accessors is
// meaningful, selected by Format; Raw always holds the original
// (un-right-trimmed) slice of the line so validators can fall back to it.
type Value struct {
	Format schema.Format
	Raw    string

	Str     string // Alphanumeric, LookupCode, Flag, malformed Numeric
	Int     int64  // Numeric, Share thousandths, Duration/Time as seconds
	IsNil   bool   // Numeric blank, Date all-zero/all-space
	Valid   bool   // false when format validation failed (content kept in Str/Raw)
	BoolVal bool   // Boolean
}

// Record is the decoded representation of one physical line. It is
// immutable after Decode returns.
type Record struct {
	RecordType string
	LineNumber int
	Raw        string
	Fields     map[string]Value
	Known      bool // false when RecordType has no schema entry
}

// Field returns the decoded value for name and whether it was present in
// the schema (and therefore decoded at all).
func (r Record) Field(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// IsBlank reports whether the field carried no content at all, checked
// against the raw bytes rather than a per-format accessor so it applies
// uniformly to every Format (Alphanumeric, LookupCode, Flag, ...), not
// just the Numeric/Date cases that already set IsNil.
func (v Value) IsBlank() bool {
	return v.IsNil || isBlank(v.Raw)
}

// Decode slices line by the schema for (version, record type) and decodes
// each field per its format. Decode is total: it never panics and always
// returns a Record, possibly annotated with diagnostics for any field
// that failed to decode cleanly (spec.md §4.4 step 5 — "non-fatal at this
// layer").
func Decode(line schema.Version, registry *schema.Registry, lineNumber int, text string, bag *diag.Bag) Record {
	if len(text) < 3 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal,
			Code:     diag.CodeMalformedRecord,
			Message:  "line shorter than 3 bytes, cannot determine record type",
			Line:     lineNumber,
		})
		return Record{LineNumber: lineNumber, Raw: text, Fields: map[string]Value{}}
	}

	recordType := text[0:3]
	s, ok := registry.Schema(line, recordType)
	if !ok {
		bag.Add(diag.Diagnostic{
			Severity:   diag.SeverityRecord,
			Code:       diag.CodeUnknownRecordType,
			Message:    "unrecognized record type",
			Line:       lineNumber,
			RecordType: recordType,
		})
		return Record{
			RecordType: recordType,
			LineNumber: lineNumber,
			Raw:        text,
			Fields:     map[string]Value{},
			Known:      false,
		}
	}

	fields := make(map[string]Value, len(s.Fields))
	for _, spec := range s.Fields {
		raw, truncated := slice(text, spec.Start, spec.Length)
		if truncated {
			bag.Add(diag.Diagnostic{
				Severity:   diag.SeverityField,
				Code:       diag.CodeTruncated,
				Message:    "line too short for field, padded with spaces",
				Line:       lineNumber,
				RecordType: recordType,
				Field:      spec.Name,
			})
		}
		fields[spec.Name] = decodeField(spec, raw, lineNumber, recordType, bag)
	}

	return Record{
		RecordType: recordType,
		LineNumber: lineNumber,
		Raw:        text,
		Fields:     fields,
		Known:      true,
	}
}

// slice extracts line[start-1 : start-1+length] (1-indexed, inclusive
// start per spec.md §3). If the line is shorter than the required range
// it is conceptually padded with spaces and truncated is reported true.
func slice(line string, start, length int) (value string, truncated bool) {
	begin := start - 1
	end := begin + length
	if begin >= len(line) {
		return strings.Repeat(" ", length), true
	}
	if end > len(line) {
		return line[begin:] + strings.Repeat(" ", end-len(line)), true
	}
	return line[begin:end], false
}

func decodeField(spec schema.FieldSpec, raw string, lineNumber int, recordType string, bag *diag.Bag) Value {
	switch spec.Format {
	case schema.Alphanumeric:
		return Value{Format: spec.Format, Raw: raw, Str: strings.TrimRight(raw, " "), Valid: true}

	case schema.Numeric:
		return decodeNumeric(spec, raw, lineNumber, recordType, bag)

	case schema.Date:
		return decodeDate(spec, raw, lineNumber, recordType, bag)

	case schema.Time:
		return decodeTime(spec, raw, lineNumber, recordType, bag)

	case schema.Duration:
		return decodeDuration(spec, raw, lineNumber, recordType, bag)

	case schema.Flag:
		trimmed := strings.TrimSpace(raw)
		if trimmed != "Y" && trimmed != "N" && trimmed != "U" {
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityField, Code: diag.CodeFormatError,
				Message: "flag must be Y, N, or U", Line: lineNumber,
				RecordType: recordType, Field: spec.Name,
			})
			return Value{Format: spec.Format, Raw: raw, Str: trimmed, Valid: false}
		}
		return Value{Format: spec.Format, Raw: raw, Str: trimmed, Valid: true}

	case schema.Boolean:
		trimmed := strings.TrimSpace(raw)
		switch trimmed {
		case "Y", "T", "1":
			return Value{Format: spec.Format, Raw: raw, BoolVal: true, Valid: true}
		case "N", "F", "0", "":
			return Value{Format: spec.Format, Raw: raw, BoolVal: false, Valid: true}
		default:
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityField, Code: diag.CodeFormatError,
				Message: "invalid boolean value", Line: lineNumber,
				RecordType: recordType, Field: spec.Name,
			})
			return Value{Format: spec.Format, Raw: raw, Str: trimmed, Valid: false}
		}

	case schema.LookupCode:
		// Membership is checked by the validator, not here (spec.md §4.4 step 4).
		return Value{Format: spec.Format, Raw: raw, Str: strings.TrimRight(raw, " "), Valid: true}

	default:
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: true}
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func decodeNumeric(spec schema.FieldSpec, raw string, lineNumber int, recordType string, bag *diag.Bag) Value {
	if isBlank(raw) {
		return Value{Format: spec.Format, Raw: raw, IsNil: true, Valid: true}
	}
	n, err := strconv.ParseInt(strings.TrimLeft(raw, " "), 10, 64)
	if err != nil || n < 0 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "non-numeric content in numeric field", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	return Value{Format: spec.Format, Raw: raw, Int: n, Valid: true}
}

func decodeDate(spec schema.FieldSpec, raw string, lineNumber int, recordType string, bag *diag.Bag) Value {
	if isBlank(raw) || raw == strings.Repeat("0", len(raw)) {
		return Value{Format: spec.Format, Raw: raw, IsNil: true, Valid: true}
	}
	if len(raw) != 8 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "date field must be 8 digits (YYYYMMDD)", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	year, yerr := strconv.Atoi(raw[0:4])
	month, merr := strconv.Atoi(raw[4:6])
	day, derr := strconv.Atoi(raw[6:8])
	if yerr != nil || merr != nil || derr != nil || !validDate(year, month, day) {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "invalid calendar date", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: true}
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	days := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if month == 2 && isLeapYear(year) {
		return day <= 29
	}
	return day <= days[month-1]
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// decodeTime parses HHMMSS or HHMMSSFF (hundredths), per spec.md §4.4.
func decodeTime(spec schema.FieldSpec, raw string, lineNumber int, recordType string, bag *diag.Bag) Value {
	if isBlank(raw) {
		return Value{Format: spec.Format, Raw: raw, IsNil: true, Valid: true}
	}
	if len(raw) != 6 && len(raw) != 8 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "time field must be HHMMSS or HHMMSSFF", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	hh, hErr := strconv.Atoi(raw[0:2])
	mm, mErr := strconv.Atoi(raw[2:4])
	ss, sErr := strconv.Atoi(raw[4:6])
	ff := 0
	var fErr error
	if len(raw) == 8 {
		ff, fErr = strconv.Atoi(raw[6:8])
	}
	if hErr != nil || mErr != nil || sErr != nil || fErr != nil ||
		hh >= 24 || mm >= 60 || ss >= 60 || ff >= 100 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "time out of range (HH<24, MM<60, SS<60, FF<100)", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	seconds := int64(hh)*3600 + int64(mm)*60 + int64(ss)
	return Value{Format: spec.Format, Raw: raw, Int: seconds, Valid: true}
}

// decodeDuration parses HHMMSS with MM<60, SS<60 (spec.md §4.4); unlike
// Time, HH is not range-checked since a duration may legitimately exceed
// 24 hours for very long works.
func decodeDuration(spec schema.FieldSpec, raw string, lineNumber int, recordType string, bag *diag.Bag) Value {
	if isBlank(raw) || raw == strings.Repeat("0", len(raw)) {
		return Value{Format: spec.Format, Raw: raw, IsNil: true, Valid: true}
	}
	if len(raw) != 6 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "duration field must be HHMMSS", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	hh, hErr := strconv.Atoi(raw[0:2])
	mm, mErr := strconv.Atoi(raw[2:4])
	ss, sErr := strconv.Atoi(raw[4:6])
	if hErr != nil || mErr != nil || sErr != nil || mm >= 60 || ss >= 60 {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityField, Code: diag.CodeFormatError,
			Message: "duration out of range (MM<60, SS<60)", Line: lineNumber,
			RecordType: recordType, Field: spec.Name,
		})
		return Value{Format: spec.Format, Raw: raw, Str: raw, Valid: false}
	}
	seconds := int64(hh)*3600 + int64(mm)*60 + int64(ss)
	return Value{Format: spec.Format, Raw: raw, Int: seconds, Valid: true}
}
