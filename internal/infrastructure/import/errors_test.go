package erpimport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellIssue_String(t *testing.T) {
	withColumn := CellIssue{Line: 5, Column: "Выручка", Code: IssueInvalidNumber, Reason: "not a number"}
	assert.Equal(t, `line 5, "Выручка": not a number`, withColumn.String())

	bare := CellIssue{Line: 10, Code: IssueInvalidDate, Reason: "malformed row"}
	assert.Equal(t, "line 10: malformed row", bare.String())
}

func TestIssueLog(t *testing.T) {
	t.Run("keeps the first issues and counts the rest", func(t *testing.T) {
		l := newIssueLog(3)
		for i := 1; i <= 5; i++ {
			l.add(CellIssue{Line: i, Code: IssueInvalidNumber})
		}

		assert.Len(t, l.kept, 3)
		assert.Equal(t, 3, l.kept[2].Line)
		assert.Equal(t, 5, l.total)
	})

	t.Run("non-positive limit keeps one", func(t *testing.T) {
		l := newIssueLog(0)
		l.add(CellIssue{Line: 1})
		l.add(CellIssue{Line: 2})

		assert.Len(t, l.kept, 1)
		assert.Equal(t, 2, l.total)
	})
}

func TestMissingColumnsError(t *testing.T) {
	err := fmt.Errorf("load sales: %w", &MissingColumnsError{
		Kind:   KindSales,
		Fields: []Field{FieldDate, FieldRevenue},
	})

	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "sales table lacks date, revenue")

	var target *MissingColumnsError
	if assert.True(t, errors.As(err, &target)) {
		assert.Equal(t, []Field{FieldDate, FieldRevenue}, target.Fields)
	}
}
