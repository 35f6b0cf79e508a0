package erpimport

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// totalMarker is the first-cell caption of summary rows in ERP reports
const totalMarker = "итого"

// Row is one data row keyed by canonical field
type Row struct {
	Line  int              `json:"line"`
	Cells map[Field]string `json:"cells"`
}

// String returns the trimmed cell of a field
func (r Row) String(f Field) string {
	return r.Cells[f]
}

// Has returns true if the field was mapped and the cell is not blank
func (r Row) Has(f Field) bool {
	return r.Cells[f] != ""
}

// Number returns the cell as a float, 0 when not numeric
func (r Row) Number(f Field) float64 {
	return ParseNumber(r.Cells[f])
}

// Decimal returns the cell as a decimal, zero when not numeric
func (r Row) Decimal(f Field) decimal.Decimal {
	return ParseDecimal(r.Cells[f])
}

// Date returns the cell as a calendar date in loc
func (r Row) Date(f Field, loc *time.Location) (time.Time, bool) {
	return ParseDate(r.Cells[f], loc)
}

// normalizeNumber removes grouping whitespace and turns a decimal comma into a dot.
// When both separators occur the rightmost one is the decimal separator.
func normalizeNumber(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)

	comma := strings.LastIndexByte(s, ',')
	dot := strings.LastIndexByte(s, '.')
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

// ParseNumber parses spreadsheet numbers such as "12 345,67".
// Non-numeric input yields 0.
func ParseNumber(s string) float64 {
	n := normalizeNumber(s)
	if n == "" {
		return 0
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseDecimal is ParseNumber without the float round trip
func ParseDecimal(s string) decimal.Decimal {
	n := normalizeNumber(s)
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isNumeric reports whether ParseNumber would read a real number
func isNumeric(s string) bool {
	n := normalizeNumber(s)
	if n == "" {
		return false
	}
	_, err := strconv.ParseFloat(n, 64)
	return err == nil
}

var dateLayouts = []string{
	"02.01.2006",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.06",
	"02/01/2006",
}

// Excel serials for 1900-01-01 and 9999-12-31
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseDate reads a date cell. Besides common text layouts it accepts raw
// Excel serial numbers. The result is midnight of that day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = trimSpaces(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return truncateDay(t.In(loc)), true
		}
	}

	if serial, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil &&
		serial >= minExcelSerial && serial <= maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// isTotalRow reports rows whose first cell is the "Итого" caption
func isTotalRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.TrimRight(foldHeader(record[0]), ":")
	return first == totalMarker
}

// isBlankRow reports rows without any non-blank cell
func isBlankRow(record []string) bool {
	for _, cell := range record {
		if trimSpaces(cell) != "" {
			return false
		}
	}
	return true
}
