package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
)

// NormalizeAdMetrics maps ad statistics rows onto FactAdMetric.
// Flat rows (shows, clicks, spent) and nested VK rows (base.shows, ...) are
// both accepted. Rows without a campaign get SentinelCampaignID.
func NormalizeAdMetrics(raw []json.RawMessage) []report.FactAdMetric {
	facts := make([]report.FactAdMetric, 0, len(raw))
	for _, item := range raw {
		if !gjson.ValidBytes(item) {
			continue
		}
		row := gjson.ParseBytes(item)
		if !row.IsObject() {
			continue
		}

		campaignID := idOf(first(row, "campaign_id", "campaignId", "id"))
		if campaignID == "" {
			campaignID = report.SentinelCampaignID
		}

		facts = append(facts, report.FactAdMetric{
			Date:        dateOf(first(row, "date", "day")),
			CampaignID:  campaignID,
			AdGroupID:   idOf(first(row, "ad_group_id", "adGroupId")),
			BannerID:    idOf(first(row, "banner_id", "bannerId")),
			Impressions: intOf(first(row, "shows", "impressions", "base.shows", "base.impressions")),
			Clicks:      intOf(first(row, "clicks", "base.clicks")),
			Spend:       decimalOf(first(row, "spent", "spend", "base.spent", "base.spend")),
		})
	}
	return facts
}
