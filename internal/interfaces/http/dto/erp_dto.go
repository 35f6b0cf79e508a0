package dto

import (
	"time"

	erpimport "github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/import"
)

// ErpTableRequest binds the query of GET /erp/:kind
type ErpTableRequest struct {
	Reload bool `form:"reload"`
	Limit  int  `form:"limit" binding:"min=0"`
}

// ErpTableResponse represents a parsed ERP export
type ErpTableResponse struct {
	Kind       string                  `json:"kind"`
	Source     string                  `json:"source"`
	Headers    []string                `json:"headers"`
	Columns    map[erpimport.Field]int `json:"columns"`
	TotalRows  int                     `json:"total_rows"`
	Skipped    int                     `json:"skipped"`
	Rows       []erpimport.Row         `json:"rows"`
	Truncated  bool                    `json:"truncated,omitempty"`
	Issues     []erpimport.CellIssue   `json:"issues,omitempty"`
	IssueCount int                     `json:"issue_count"`
	LoadedAt   time.Time               `json:"loaded_at"`
}

// NewErpTableResponse converts a table, keeping at most limit rows when limit > 0
func NewErpTableResponse(t *erpimport.Table, limit int) ErpTableResponse {
	rows := t.Rows
	truncated := false
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		truncated = true
	}
	return ErpTableResponse{
		Kind:       string(t.Kind),
		Source:     t.Source,
		Headers:    t.Headers,
		Columns:    t.Columns,
		TotalRows:  len(t.Rows),
		Skipped:    t.Skipped,
		Rows:       rows,
		Truncated:  truncated,
		Issues:     t.Issues,
		IssueCount: t.IssueCount,
		LoadedAt:   t.LoadedAt,
	}
}
