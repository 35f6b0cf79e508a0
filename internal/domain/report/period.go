package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in cache keys and upstream requests
const DateLayout = "2006-01-02"

// ErrInvalidPeriod is returned for unrecognized period codes
var ErrInvalidPeriod = errors.New("report: invalid period")

// PeriodCode is a symbolic reporting period
type PeriodCode string

const (
	Period7Days      PeriodCode = "7d"
	Period30Days     PeriodCode = "30d"
	Period90Days     PeriodCode = "90d"
	PeriodYearToDate PeriodCode = "ytd"
)

// AllPeriodCodes returns every supported period code
func AllPeriodCodes() []PeriodCode {
	return []PeriodCode{Period7Days, Period30Days, Period90Days, PeriodYearToDate}
}

var periodLabels = map[PeriodCode]string{
	Period7Days:      "Последние 7 дней",
	Period30Days:     "Последние 30 дней",
	Period90Days:     "Последние 90 дней",
	PeriodYearToDate: "С начала года",
}

var periodDays = map[PeriodCode]int{
	Period7Days:  7,
	Period30Days: 30,
	Period90Days: 90,
}

// ParsePeriodCode validates a raw period code
func ParsePeriodCode(raw string) (PeriodCode, error) {
	code := PeriodCode(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := periodLabels[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return code, nil
}

// PeriodRange is an inclusive calendar date range [DateFrom, DateTo]
type PeriodRange struct {
	Code     PeriodCode `json:"code"`
	DateFrom time.Time  `json:"date_from"`
	DateTo   time.Time  `json:"date_to"`
	Label    string     `json:"label"`
}

// ResolvePeriod maps a period code to a concrete date range ending today.
// Dates are truncated to midnight in now's location.
func ResolvePeriod(code PeriodCode, now time.Time) (PeriodRange, error) {
	label, ok := periodLabels[code]
	if !ok {
		return PeriodRange{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, code)
	}

	today := startOfDay(now)
	var from time.Time
	if code == PeriodYearToDate {
		from = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	} else {
		from = today.AddDate(0, 0, -(periodDays[code] - 1))
	}

	return PeriodRange{
		Code:     code,
		DateFrom: from,
		DateTo:   today,
		Label:    label,
	}, nil
}

// Days returns the number of calendar days covered, both ends included
func (p PeriodRange) Days() int {
	return daysBetween(p.DateFrom, p.DateTo) + 1
}

// Previous returns the immediately preceding range of equal length
func (p PeriodRange) Previous() PeriodRange {
	days := p.Days()
	to := p.DateFrom.AddDate(0, 0, -1)
	return PeriodRange{
		Code:     p.Code,
		DateFrom: to.AddDate(0, 0, -(days - 1)),
		DateTo:   to,
		Label:    "Предыдущий период",
	}
}

// Contains reports whether t falls on a day inside the range
func (p PeriodRange) Contains(t time.Time) bool {
	day := startOfDay(t.In(p.DateFrom.Location()))
	return !day.Before(p.DateFrom) && !day.After(p.DateTo)
}

// Key renders the range for use inside cache keys
func (p PeriodRange) Key() string {
	return p.DateFrom.Format(DateLayout) + ":" + p.DateTo.Format(DateLayout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days, immune to DST-shortened days
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
