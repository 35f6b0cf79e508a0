package report

import "math"

// KPI calculators. Every function is total: a non-finite input or a
// non-positive denominator yields 0, never NaN or Inf.

// CTR returns clicks per impression, in percent
func CTR(impressions, clicks float64) float64 {
	return ratio(clicks, impressions, 100)
}

// CPC returns spend per click
func CPC(spend, clicks float64) float64 {
	return ratio(spend, clicks, 1)
}

// CPM returns spend per thousand impressions
func CPM(spend, impressions float64) float64 {
	return ratio(spend, impressions, 1000)
}

// ROAS returns revenue per unit of ad spend
func ROAS(revenue, spend float64) float64 {
	return ratio(revenue, spend, 1)
}

// ConversionRate returns orders per click, in percent
func ConversionRate(orders, clicks float64) float64 {
	return ratio(orders, clicks, 100)
}

// AOV returns the average order value
func AOV(revenue, orders float64) float64 {
	return ratio(revenue, orders, 1)
}

// RevenueShare returns part as a percentage of total
func RevenueShare(part, total float64) float64 {
	return ratio(part, total, 100)
}

// AveragePrice returns revenue per unit sold
func AveragePrice(revenue, quantity float64) float64 {
	return ratio(revenue, quantity, 1)
}

// MarginResult holds gross margin in money and as a percentage of revenue
type MarginResult struct {
	Margin        float64 `json:"margin"`
	MarginPercent float64 `json:"margin_percent"`
}

// Margin returns revenue minus cost, clamped at zero
func Margin(revenue, cost float64) MarginResult {
	if !finite(revenue) || !finite(cost) {
		return MarginResult{}
	}
	margin := math.Max(revenue-cost, 0)
	return MarginResult{
		Margin:        margin,
		MarginPercent: math.Max(ratio(margin, revenue, 100), 0),
	}
}

// PercentChange returns the relative change from previous to current, in percent.
// A zero baseline yields 100, -100 or 0 depending on the sign of current.
func PercentChange(current, previous float64) float64 {
	if !finite(current) || !finite(previous) {
		return 0
	}
	if previous == 0 {
		switch {
		case current > 0:
			return 100
		case current < 0:
			return -100
		default:
			return 0
		}
	}
	return guard((current - previous) / previous * 100)
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Round(v*100) / 100
}

func ratio(numerator, denominator, scale float64) float64 {
	if !finite(numerator) || !finite(denominator) || denominator <= 0 {
		return 0
	}
	return guard(numerator / denominator * scale)
}

func guard(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
