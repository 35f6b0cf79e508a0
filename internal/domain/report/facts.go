package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// SentinelCampaignID stands in for ad rows that carry no campaign, such as daily rollups
const SentinelCampaignID = "__total__"

// Fact records are built per request from raw provider payloads and
// discarded after aggregation.

// FactAdMetric is one (campaign, day) observation from the ad platform
type FactAdMetric struct {
	Date        time.Time       `json:"date"`
	CampaignID  string          `json:"campaign_id"`
	AdGroupID   string          `json:"ad_group_id,omitempty"`
	BannerID    string          `json:"banner_id,omitempty"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Spend       decimal.Decimal `json:"spend"`
}

// IsRollup returns true for rows that aggregate all campaigns of a day
func (f FactAdMetric) IsRollup() bool {
	return f.CampaignID == SentinelCampaignID
}

// FactOrder is one marketplace order line, or a whole order when it has no items
type FactOrder struct {
	OrderID    string          `json:"order_id"`
	CampaignID string          `json:"campaign_id,omitempty"`
	ProductID  string          `json:"product_id,omitempty"`
	Quantity   int64           `json:"quantity"`
	BuyerPrice decimal.Decimal `json:"buyer_price"`
	Revenue    decimal.Decimal `json:"revenue"`
	Date       time.Time       `json:"date"`
	Status     string          `json:"status"`
}

// cancelledStatuses never contribute to order counts or revenue
var cancelledStatuses = map[string]bool{
	"cancelled": true,
	"canceled":  true,
	"cancel":    true,
	"returned":  true,
}

// IsCancelled returns true if the order was cancelled or returned
func (f FactOrder) IsCancelled() bool {
	return cancelledStatuses[f.Status]
}

// Fact1cSale is one sale document line from the ERP export
type Fact1cSale struct {
	SaleID      string          `json:"sale_id"`
	Date        time.Time       `json:"date"`
	Article     string          `json:"article,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
}

// HasDate returns false when the export row carried no parseable date
func (f Fact1cSale) HasDate() bool {
	return !f.Date.IsZero()
}

// Fact1cMargin carries the margin figures of the Fact1cSale with the same SaleID
type Fact1cMargin struct {
	SaleID        string          `json:"sale_id"`
	Margin        decimal.Decimal `json:"margin"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}
