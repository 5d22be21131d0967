// Package tokenizer splits a CWR input stream into line-numbered records.
// It never interprets record content — that is RecordDecoder's job
// (spec.md §4.3).
package tokenizer

import (
	"bufio"
	"io"

	"github.com/cwrcore/cwr-ingest/internal/diag"
)

// Line is one tokenized input line: its 1-indexed line number and text
// with exactly one trailing line terminator stripped. All other bytes,
// including trailing padding spaces, are preserved verbatim — fixed-width
// padding is semantically significant (spec.md §4.3).
type Line struct {
	Number int
	Text   string
}

// Tokenize reads every line from r, tagging each with its 1-indexed line
// number. Purely empty lines are skipped and recorded as a Warning
// diagnostic rather than surfaced as a Line. Tokenize is total: any
// input, however malformed, yields a (possibly empty) slice of Lines
// plus diagnostics, never an error.
func Tokenize(r io.Reader, bag *diag.Bag) []Line {
	scanner := bufio.NewScanner(r)
	// CWR records can run well past bufio's 64KiB default (long alternate
	// title lists, wide territory tables); give lines generous headroom.
	const maxLineSize = 1 << 20
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(splitLinesAnyTerminator)

	var lines []Line
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if text == "" {
			bag.Add(diag.Diagnostic{
				Severity: diag.SeverityWarning,
				Code:     diag.CodeEmptyLine,
				Message:  "skipped empty line",
				Line:     lineNo,
			})
			continue
		}
		lines = append(lines, Line{Number: lineNo, Text: text})
	}
	if err := scanner.Err(); err != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SeverityFatal,
			Code:     diag.CodeMalformedRecord,
			Message:  "input scanning stopped, remaining input not read: " + err.Error(),
			Line:     lineNo + 1,
		})
	}
	return lines
}

// splitLinesAnyTerminator is a bufio.SplitFunc that recognizes LF, CRLF,
// and bare CR as line terminators, matching spec.md §4.3's tolerance for
// any of the three. bufio.ScanLines only handles LF/CRLF, so CWR's
// occasional bare-CR producers need their own split function.
func splitLinesAnyTerminator(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// Might be the start of a CRLF split across reads; ask for more.
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
