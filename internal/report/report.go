// Package report renders an ingestion Result as an aligned,
// human-readable diagnostic table, the same way the teacher renders
// query results: a tabwriter-formatted header, separator, and rows.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwrcore/cwr-ingest/internal/cwr"
)

// Write renders result to w: a one-line summary followed by a table of
// every diagnostic, one row each with its line, severity, code, record
// type, field and message.
func Write(w io.Writer, result cwr.Result) {
	fmt.Fprintf(w, "run %s: is_valid=%t groups=%d transactions=%d diagnostics=%d\n",
		result.RunID, result.IsValid, len(result.File.Groups), countTransactions(result), len(result.Diagnostics))

	if len(result.Diagnostics) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tSEVERITY\tCODE\tRECORD\tFIELD\tMESSAGE")
	fmt.Fprintln(tw, "----\t--------\t----\t------\t-----\t-------")
	for _, d := range result.Diagnostics {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.Line, d.Severity, d.Code, d.RecordType, d.Field, d.Message)
	}
	tw.Flush()
}

func countTransactions(result cwr.Result) int {
	n := 0
	for _, g := range result.File.Groups {
		n += len(g.Transactions)
	}
	return n
}
