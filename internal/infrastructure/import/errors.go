package erpimport

import (
	"errors"
	"fmt"
	"strings"
)

// Cell issue codes reported in Table.Issues
const (
	IssueInvalidNumber = "ERR_ERP_INVALID_NUMBER"
	IssueInvalidDate   = "ERR_ERP_INVALID_DATE"
)

var (
	ErrEmptyFile = errors.New("erp export is empty")
	// ErrInvalidEncoding is returned for csv exports that are not valid UTF-8
	ErrInvalidEncoding = errors.New("erp export is not utf-8")
	// ErrMissingHeader means the configured header row is absent or blank
	ErrMissingHeader  = errors.New("erp export has no header row")
	ErrMissingColumns = errors.New("erp export lacks required columns")
	ErrUnknownKind    = errors.New("unknown erp table kind")
	// ErrFileNotFound means no export of the kind is present in the source
	ErrFileNotFound      = errors.New("no erp export found")
	ErrUnsupportedFormat = errors.New("erp export is neither xlsx nor csv")
	// ErrFileTooLarge means the export exceeds the loader's size cap
	ErrFileTooLarge      = errors.New("erp export is too large")
)

// MissingColumnsError names the required fields no header matched.
// It matches ErrMissingColumns under errors.Is.
type MissingColumnsError struct {
	Kind   Kind
	Fields []Field
}

func (e *MissingColumnsError) Error() string {
	var b strings.Builder
	for i, f := range e.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(f))
	}
	return fmt.Sprintf("%v: %s table lacks %s", ErrMissingColumns, e.Kind, b.String())
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// CellIssue reports a non-empty cell that will be read as zero
type CellIssue struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

func (i CellIssue) String() string {
	if i.Column == "" {
		return fmt.Sprintf("line %d: %s", i.Line, i.Reason)
	}
	return fmt.Sprintf("line %d, %q: %s", i.Line, i.Column, i.Reason)
}

// issueLog keeps the first limit issues of a table and counts all of them
type issueLog struct {
	kept  []CellIssue
	limit int
	total int
}

func newIssueLog(limit int) *issueLog {
	return &issueLog{limit: max(limit, 1)}
}

func (l *issueLog) add(issue CellIssue) {
	l.total++
	if len(l.kept) < l.limit {
		l.kept = append(l.kept, issue)
	}
}
