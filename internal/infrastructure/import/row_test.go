package erpimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{in: "12 345,67", want: 12345.67},
		{in: "12\u00a0345,67", want: 12345.67},
		{in: "12\u202f345,67", want: 12345.67},
		{in: "1,234.50", want: 1234.5},
		{in: "1.234,50", want: 1234.5},
		{in: "-15,5", want: -15.5},
		{in: "100", want: 100},
		{in: "", want: 0},
		{in: "abc", want: 0},
		{in: "NaN", want: 0},
		{in: "Inf", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseNumber(tt.in), 1e-9)
		})
	}
}

func TestParseDecimal(t *testing.T) {
	assert.Equal(t, "12345.67", ParseDecimal("12 345,67").String())
	assert.True(t, ParseDecimal("n/a").IsZero())
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"15.03.2024", "15.03.2024 13:45:00", "2024-03-15", "2024-03-15T10:00:00Z", "45366"} {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseDate(in, time.UTC)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	for _, in := range []string{"", "вчера", "0", "-3"} {
		_, ok := ParseDate(in, time.UTC)
		assert.False(t, ok, in)
	}
}

func TestParseDate_Location(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	got, ok := ParseDate("01.03.2024", loc)
	assert.True(t, ok)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 1, got.Day())
}

func TestRowAccessors(t *testing.T) {
	row := Row{Line: 2, Cells: map[Field]string{
		FieldRevenue:  "1 000,50",
		FieldQuantity: "3",
		FieldDate:     "01.03.2024",
		FieldName:     "",
	}}

	assert.InDelta(t, 1000.5, row.Number(FieldRevenue), 1e-9)
	assert.Equal(t, "1000.5", row.Decimal(FieldRevenue).String())
	assert.True(t, row.Has(FieldQuantity))
	assert.False(t, row.Has(FieldName))
	assert.False(t, row.Has(FieldCost))

	d, ok := row.Date(FieldDate, time.UTC)
	assert.True(t, ok)
	assert.Equal(t, time.March, d.Month())
}

func TestIsTotalRow(t *testing.T) {
	assert.True(t, isTotalRow([]string{"Итого", "", "100"}))
	assert.True(t, isTotalRow([]string{"  ИТОГО: ", "100"}))
	assert.False(t, isTotalRow([]string{"Итоговая скидка", "5"}))
	assert.False(t, isTotalRow(nil))
}
