package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
)

// first returns the first of the paths present in obj
func first(obj gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := obj.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// decimalOf reads a number that may be encoded as a JSON string
func decimalOf(v gjson.Result) decimal.Decimal {
	switch v.Type {
	case gjson.Number:
		if d, err := decimal.NewFromString(v.Raw); err == nil {
			return d
		}
		return decimal.NewFromFloat(v.Float())
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str), " ", "")
		s = strings.Replace(s, ",", ".", 1)
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// intOf reads a count, truncating fractions and clamping negatives to 0
func intOf(v gjson.Result) int64 {
	n := decimalOf(v).IntPart()
	if n < 0 {
		return 0
	}
	return n
}

// idOf renders an identifier that may be a number or a string
func idOf(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	report.DateLayout,
}

// dateOf parses a date or timestamp and truncates it to the calendar day it names
func dateOf(v gjson.Result) time.Time {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}
