// Package erpimport loads ERP sales and stock exports into canonical rows.
package erpimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// sniffSize is how much of the file is inspected for encoding and delimiter
const sniffSize = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvOptions struct {
	comma    rune
	fallback encoding.Encoding
}

// CSVOption tunes ParseCSV
type CSVOption func(*csvOptions)

// WithComma fixes the field delimiter instead of sniffing it
func WithComma(r rune) CSVOption {
	return func(o *csvOptions) { o.comma = r }
}

// WithFallbackEncoding decodes files that are not UTF-8 with enc.
// Without it such files fail with ErrInvalidEncoding.
func WithFallbackEncoding(enc encoding.Encoding) CSVOption {
	return func(o *csvOptions) { o.fallback = enc }
}

// ParseCSV reads a whole CSV export into a grid of trimmed cells.
// A UTF-8 BOM is skipped and rows may have different lengths.
func ParseCSV(r io.Reader, opts ...CSVOption) ([][]string, error) {
	var o csvOptions
	for _, opt := range opts {
		opt(&o)
	}

	br := bufio.NewReaderSize(r, sniffSize)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	sample, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv export: %w", err)
	}
	if len(sample) == 0 {
		return nil, ErrEmptyFile
	}

	var src io.Reader = br
	if !validUTF8Prefix(sample) {
		if o.fallback == nil {
			return nil, ErrInvalidEncoding
		}
		src = transform.NewReader(br, o.fallback.NewDecoder())
	}
	if o.comma == 0 {
		// delimiters are ASCII in every supported encoding
		o.comma = SniffDelimiter(sample)
	}

	cr := csv.NewReader(src)
	cr.Comma = o.comma
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var grid [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return grid, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv export: %w", err)
		}
		for i := range record {
			record[i] = trimSpaces(record[i])
		}
		grid = append(grid, record)
	}
}

// validUTF8Prefix tolerates a multi-byte rune cut at the end of the sample
func validUTF8Prefix(b []byte) bool {
	for cut := 0; cut < utf8.UTFMax && cut <= len(b); cut++ {
		if utf8.Valid(b[:len(b)-cut]) {
			return true
		}
	}
	return false
}

// SniffDelimiter picks ';', tab or ',' by counting them on the first line.
// Spreadsheet exports with a decimal comma use ';'.
func SniffDelimiter(sample []byte) rune {
	line, _, _ := bytes.Cut(sample, []byte{'\n'})

	best, bestCount := ',', 0
	for _, d := range []rune{';', '\t', ','} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// trimSpaces also strips the no-break spaces spreadsheets use as thousands separators
func trimSpaces(s string) string {
	return strings.TrimFunc(s, unicode.IsSpace)
}
