package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		code     PeriodCode
		wantFrom string
		wantDays int
	}{
		{Period7Days, "2024-03-09", 7},
		{Period30Days, "2024-02-15", 30},
		{Period90Days, "2023-12-17", 90},
		{PeriodYearToDate, "2024-01-01", 75},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			p, err := ResolvePeriod(tt.code, now)
			require.NoError(t, err)

			assert.Equal(t, tt.code, p.Code)
			assert.Equal(t, tt.wantFrom, p.DateFrom.Format(DateLayout))
			assert.Equal(t, "2024-03-15", p.DateTo.Format(DateLayout))
			assert.Equal(t, tt.wantDays, p.Days())
			assert.NotEmpty(t, p.Label)
		})
	}
}

func TestResolvePeriod_Invalid(t *testing.T) {
	_, err := ResolvePeriod("14d", time.Now())
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	_, err = ParsePeriodCode("")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestParsePeriodCode(t *testing.T) {
	code, err := ParsePeriodCode(" YTD ")
	require.NoError(t, err)
	assert.Equal(t, PeriodYearToDate, code)
}

func TestPeriodRange_Previous(t *testing.T) {
	now := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)

	p, err := ResolvePeriod(Period7Days, now)
	require.NoError(t, err)

	prev := p.Previous()
	assert.Equal(t, "2024-03-02", prev.DateFrom.Format(DateLayout))
	assert.Equal(t, "2024-03-08", prev.DateTo.Format(DateLayout))
	assert.Equal(t, p.Days(), prev.Days())

	ytd, err := ResolvePeriod(PeriodYearToDate, now)
	require.NoError(t, err)
	prevYtd := ytd.Previous()
	assert.Equal(t, "2023-12-31", prevYtd.DateTo.Format(DateLayout))
	assert.Equal(t, ytd.Days(), prevYtd.Days())
}

func TestPeriodRange_Contains(t *testing.T) {
	now := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)
	p, err := ResolvePeriod(Period7Days, now)
	require.NoError(t, err)

	assert.True(t, p.Contains(time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2024, time.March, 8, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodRange_Key(t *testing.T) {
	now := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)
	p, err := ResolvePeriod(Period7Days, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09:2024-03-15", p.Key())
}
