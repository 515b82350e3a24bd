// Package tabular parses the comma-separated record format used by every
// voicepatch control and auxiliary file. The grammar is deliberately tiny:
// comma separates fields, newline separates records, and a backslash before a
// comma escapes it. There is no quoting and no other escape sequence.
package tabular

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is the ordered list of fields extracted from one non-empty line.
type Record []string

// SyntaxError reports a malformed line. The only way to produce one is a
// trailing unescaped backslash with nothing left to escape.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tabular: line %d: %s", e.Line, e.Msg)
}

// Scanner walks a stream of records lazily. It keeps no cursor state beyond
// the underlying reader, so callers wanting to re-scan simply construct a new
// Scanner over fresh input.
type Scanner struct {
	scanner *bufio.Scanner
	line    int
	record  Record
	err     error
}

// NewScanner returns a Scanner reading records from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{scanner: bufio.NewScanner(r)}
}

// Next advances to the next record, skipping empty lines. It returns false at
// end of input or on the first syntax error.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSuffix(s.scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := splitFields(text, s.line)
		if err != nil {
			s.err = err
			return false
		}
		s.record = rec
		return true
	}
	s.err = s.scanner.Err()
	return false
}

// Record returns the record produced by the last successful Next.
func (s *Scanner) Record() Record { return s.record }

// Line returns the 1-based source line of the last record.
func (s *Scanner) Line() int { return s.line }

// Err returns the error that stopped the scan, if any.
func (s *Scanner) Err() error { return s.err }

// splitFields decodes one line into fields, honoring the \, escape.
func splitFields(text string, line int) (Record, error) {
	var fields Record
	var field strings.Builder
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '\\':
			if i+1 >= len(text) {
				return nil, &SyntaxError{Line: line, Msg: "trailing backslash with nothing to escape"}
			}
			if text[i+1] == ',' {
				field.WriteByte(',')
				i++
			} else {
				// Not an escape we know; the backslash is literal.
				field.WriteByte(c)
			}
		case ',':
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	fields = append(fields, field.String())
	return fields, nil
}

// ParseString parses s in full and returns every record.
func ParseString(s string) ([]Record, error) {
	sc := NewScanner(strings.NewReader(s))
	var out []Record
	for sc.Next() {
		out = append(out, sc.Record())
	}
	return out, sc.Err()
}

// ReadFile parses the file at path in full. The caller distinguishes a
// missing file (os.IsNotExist) from a malformed one (*SyntaxError).
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := NewScanner(f)
	var out []Record
	for sc.Next() {
		out = append(out, sc.Record())
	}
	return out, sc.Err()
}
