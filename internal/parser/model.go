package parser

import "github.com/cwrcore/cwr-ingest/internal/decoder"

// Transaction is an ordered sequence of records, the first of which is a
// transaction header (WRK, REV, ISW, NWR, ...). Immutable once closed by
// the structural parser.
type Transaction struct {
	Header  decoder.Record
	Records []decoder.Record // header first, then details, in file order
}

// Sequence returns the transaction_sequence value carried by the header,
// or -1 if it could not be decoded.
func (t Transaction) Sequence() int64 {
	v, ok := t.Header.Field("transaction_sequence")
	if !ok || v.IsNil || !v.Valid {
		return -1
	}
	return v.Int
}

// Group is a run of same-typed transactions bounded by a GRH/GRT pair.
type Group struct {
	GroupID             int64
	TransactionType     string
	Header              decoder.Record
	Trailer             decoder.Record
	Transactions        []Transaction
	DeclaredTxnCount    int64
	DeclaredRecordCount int64
	ObservedTxnCount    int
	ObservedRecordCount int
}

// File is the top-level parse result: HDR, zero or more groups, TRL.
type File struct {
	Header              decoder.Record
	Groups              []Group
	Trailer             decoder.Record
	DeclaredGroupCount  int64
	DeclaredTxnCount    int64
	DeclaredRecordCount int64
	ObservedGroupCount  int
	ObservedTxnCount    int
	ObservedRecordCount int
	Complete            bool // true once TRL was reached (vs. input running out)
}
