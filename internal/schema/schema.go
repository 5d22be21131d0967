// Package schema holds the immutable, version-parameterized field layout
// tables for every CWR record type. A SchemaRegistry is populated once at
// construction from compiled-in tables (tables.go) and never mutated
// afterward, so it may be shared freely across concurrent parsers.
package schema

// Version identifies a supported CWR format revision.
type Version string

const (
	Version21 Version = "02.10"
	Version22 Version = "02.20"
)

// Format is the decoding rule applied to a field's raw bytes.
type Format int

const (
	Alphanumeric Format = iota
	Numeric
	Date
	Time
	Duration
	Flag
	Boolean
	LookupCode
)

// FieldSpec describes one fixed-width field within a record: a 1-indexed,
// inclusive byte range plus how to decode it.
//
// Offsets are 1-indexed to match the CISAC record layouts publishers work
// from directly; RecordDecoder subtracts 1 when slicing Go's 0-indexed
// strings.
type FieldSpec struct {
	Name      string
	Start     int // 1-indexed, inclusive
	Length    int
	Format    Format
	Mandatory bool
	Lookup    string // table name, populated only when Format == LookupCode
}

// End returns the 1-indexed, inclusive end byte position of the field.
func (f FieldSpec) End() int {
	return f.Start + f.Length - 1
}

// RecordSchema is the ordered field layout for one record type in one
// version. Which fields L1 treats as mandatory is carried on each
// FieldSpec's Mandatory flag.
type RecordSchema struct {
	RecordType string
	Fields     []FieldSpec
	Width      int // total declared record width, Fields[last].End()
}

// Registry holds, for each (version, record_type), an ordered list of
// field specifications. It is populated once at construction and is
// read-only thereafter — safe for concurrent use by multiple parsers.
type Registry struct {
	byVersion map[Version]map[string]RecordSchema
	headers   map[string]bool
	structual map[string]bool
}

// NewRegistry builds a Registry from the compiled-in tables in tables.go.
func NewRegistry() *Registry {
	r := &Registry{
		byVersion: map[Version]map[string]RecordSchema{
			Version21: {},
			Version22: {},
		},
		headers: map[string]bool{
			"WRK": true, "REV": true, "NWR": true, "ISW": true, "ISR": true,
		},
		structual: map[string]bool{
			"HDR": true, "GRH": true, "GRT": true, "TRL": true,
		},
	}
	for recordType, fields := range v21Tables {
		r.register(Version21, recordType, fields)
	}
	for recordType, fields := range v22Tables {
		r.register(Version22, recordType, fields)
	}
	return r
}

func (r *Registry) register(v Version, recordType string, fields []FieldSpec) {
	width := 0
	for _, f := range fields {
		if end := f.End(); end > width {
			width = end
		}
	}
	r.byVersion[v][recordType] = RecordSchema{
		RecordType: recordType,
		Fields:     fields,
		Width:      width,
	}
}

// Schema returns the field layout for (version, recordType), and false if
// the record type is unknown in that version.
func (r *Registry) Schema(v Version, recordType string) (RecordSchema, bool) {
	table, ok := r.byVersion[v]
	if !ok {
		return RecordSchema{}, false
	}
	s, ok := table[recordType]
	return s, ok
}

// IsTransactionHeader reports whether recordType opens a new transaction
// (WRK, REV, NWR, ISW, ISR).
func (r *Registry) IsTransactionHeader(recordType string) bool {
	return r.headers[recordType]
}

// IsStructural reports whether recordType is a file/group bounding record
// (HDR, GRH, GRT, TRL).
func (r *Registry) IsStructural(recordType string) bool {
	return r.structual[recordType]
}

// SupportsVersion reports whether v is a recognized CWR revision.
func SupportsVersion(v Version) bool {
	return v == Version21 || v == Version22
}
