package erpimport

import (
	"fmt"
	"time"
)

// maxRowIssues caps the row issues kept per table
const maxRowIssues = 50

// numericFields are checked for coercion problems while building rows
var numericFields = map[Field]bool{
	FieldQuantity: true,
	FieldCost:     true,
	FieldMargin:   true,
	FieldRevenue:  true,
	FieldPrice:    true,
	FieldAmount:   true,
}

// Table is a parsed export
type Table struct {
	Kind       Kind          `json:"kind"`
	Source     string        `json:"source"`
	Identity   string        `json:"-"`
	Headers    []string      `json:"headers"`
	Columns    map[Field]int `json:"columns"`
	Rows       []Row         `json:"rows"`
	Skipped    int           `json:"skipped"`
	Issues     []CellIssue   `json:"issues,omitempty"`
	IssueCount int           `json:"issue_count"`
	LoadedAt   time.Time     `json:"loaded_at"`
}

// BuildTable maps a cell grid onto the rule table of kind.
// headerRow is 1-based. Blank rows and "Итого" rows are dropped.
func BuildTable(kind Kind, grid [][]string, headerRow int) (*Table, error) {
	rules, err := RulesFor(kind)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}
	if headerRow < 1 {
		headerRow = 1
	}
	if len(grid) < headerRow || isBlankRow(grid[headerRow-1]) {
		return nil, fmt.Errorf("%w: row %d", ErrMissingHeader, headerRow)
	}

	headers := make([]string, len(grid[headerRow-1]))
	for i, h := range grid[headerRow-1] {
		headers[i] = trimSpaces(h)
	}

	columns, missing := MapColumns(headers, rules)
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Kind: kind, Fields: missing}
	}

	table := &Table{
		Kind:    kind,
		Headers: headers,
		Columns: columns,
		Rows:    make([]Row, 0, len(grid)-headerRow),
	}
	issues := newIssueLog(maxRowIssues)

	for i := headerRow; i < len(grid); i++ {
		record := grid[i]
		if isBlankRow(record) || isTotalRow(record) {
			table.Skipped++
			continue
		}

		row := Row{Line: i + 1, Cells: make(map[Field]string, len(columns))}
		for field, idx := range columns {
			if idx < len(record) {
				row.Cells[field] = trimSpaces(record[idx])
			} else {
				row.Cells[field] = ""
			}
		}
		checkRow(row, headers, columns, issues)
		table.Rows = append(table.Rows, row)
	}

	table.Issues = issues.kept
	table.IssueCount = issues.total
	return table, nil
}

// checkRow records cells that will silently coerce to zero
func checkRow(row Row, headers []string, columns map[Field]int, issues *issueLog) {
	for field, idx := range columns {
		value := row.Cells[field]
		if value == "" {
			continue
		}
		switch {
		case numericFields[field] && !isNumeric(value):
			issues.add(CellIssue{
				Line:   row.Line,
				Column: headers[idx],
				Code:   IssueInvalidNumber,
				Reason: "not a number, counted as 0",
				Value:  value,
			})
		case field == FieldDate:
			if _, ok := ParseDate(value, time.UTC); !ok {
				issues.add(CellIssue{
					Line:   row.Line,
					Column: headers[idx],
					Code:   IssueInvalidDate,
					Reason: "unrecognized date",
					Value:  value,
				})
			}
		}
	}
}
