package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	erpimport "github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/import"
)

// saleNamespace scopes generated sale ids
var saleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("erp-sale"))

// NormalizeErpSales splits sales export rows into sale and margin facts
// sharing a SaleID. Dates are read as calendar days in loc.
func NormalizeErpSales(rows []erpimport.Row, loc *time.Location) ([]report.Fact1cSale, []report.Fact1cMargin) {
	sales := make([]report.Fact1cSale, 0, len(rows))
	margins := make([]report.Fact1cMargin, 0, len(rows))

	for _, row := range rows {
		saleID := row.String(erpimport.FieldDocument)
		if saleID == "" {
			saleID = syntheticSaleID(row)
		}

		date, _ := row.Date(erpimport.FieldDate, loc)
		revenue := row.Decimal(erpimport.FieldRevenue)
		cost := row.Decimal(erpimport.FieldCost)

		sales = append(sales, report.Fact1cSale{
			SaleID:      saleID,
			Date:        date,
			Article:     row.String(erpimport.FieldArticle),
			ProductName: row.String(erpimport.FieldName),
			Quantity:    row.Decimal(erpimport.FieldQuantity),
			Revenue:     revenue,
			Cost:        cost,
		})
		margins = append(margins, marginFor(row, saleID, revenue, cost))
	}
	return sales, margins
}

// marginFor prefers the exported margin column and otherwise derives it
func marginFor(row erpimport.Row, saleID string, revenue, cost decimal.Decimal) report.Fact1cMargin {
	if row.Has(erpimport.FieldMargin) {
		margin := row.Decimal(erpimport.FieldMargin)
		pct := report.Round2(report.RevenueShare(margin.InexactFloat64(), revenue.InexactFloat64()))
		return report.Fact1cMargin{
			SaleID:        saleID,
			Margin:        margin,
			MarginPercent: decimal.NewFromFloat(pct),
		}
	}

	m := report.Margin(revenue.InexactFloat64(), cost.InexactFloat64())
	return report.Fact1cMargin{
		SaleID:        saleID,
		Margin:        decimal.NewFromFloat(m.Margin),
		MarginPercent: decimal.NewFromFloat(m.MarginPercent),
	}
}

// syntheticSaleID derives a stable id from the line number and cell values
func syntheticSaleID(row erpimport.Row) string {
	fields := make([]string, 0, len(row.Cells))
	for f := range row.Cells {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(strconv.Itoa(row.Line))
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(f)
		b.WriteByte('=')
		b.WriteString(row.Cells[erpimport.Field(f)])
	}
	return uuid.NewSHA1(saleNamespace, []byte(b.String())).String()
}
