package integration

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Source Errors
// ---------------------------------------------------------------------------

var (
	// ErrUpstreamUnavailable is returned on network or HTTP failures reaching a provider
	ErrUpstreamUnavailable = errors.New("integration: upstream unavailable")
	// ErrTokenUnavailable is returned when no credential is configured or it was rejected
	ErrTokenUnavailable = errors.New("integration: token unavailable")
	// ErrSourceNotConfigured is returned when a provider has no endpoint/credentials configured
	ErrSourceNotConfigured = errors.New("integration: source not configured")
	// ErrInvalidResponse is returned when a provider answers with an unparseable body
	ErrInvalidResponse = errors.New("integration: invalid upstream response")
	// ErrTokenNotFound is returned by a TokenStore that holds no credential yet
	ErrTokenNotFound = errors.New("integration: token not found in store")
)

// ---------------------------------------------------------------------------
// SourceCode
// ---------------------------------------------------------------------------

// SourceCode identifies one upstream data source
type SourceCode string

const (
	// SourceAds is the ad platform (impressions, clicks, spend)
	SourceAds SourceCode = "vk"
	// SourceMarketplace is the marketplace order API
	SourceMarketplace SourceCode = "marketplace"
	// SourceErp is the uploaded ERP tabular exports
	SourceErp SourceCode = "erp"
)

// AllSources returns every known source in display order
func AllSources() []SourceCode {
	return []SourceCode{SourceAds, SourceMarketplace, SourceErp}
}

// CachePrefix returns the cache key namespace owned by the source
func (c SourceCode) CachePrefix() string {
	switch c {
	case SourceAds:
		return "vk:"
	case SourceMarketplace:
		return "mp:"
	case SourceErp:
		return "erp:"
	default:
		return string(c) + ":"
	}
}

// IsValid returns true if the source code is known
func (c SourceCode) IsValid() bool {
	switch c {
	case SourceAds, SourceMarketplace, SourceErp:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// AdStatsSource fetches raw daily statistics rows from the ad platform.
// Each element is one JSON object describing a (campaign, day) pair or a
// daily rollup without a campaign.
type AdStatsSource interface {
	FetchDailyStats(ctx context.Context, from, to time.Time) ([]json.RawMessage, error)
}

// OrderSource fetches raw orders created within [from, to] from the marketplace
type OrderSource interface {
	FetchOrders(ctx context.Context, from, to time.Time) ([]json.RawMessage, error)
}

// TokenProvider hands out a bearer token suitable for the ad platform
type TokenProvider interface {
	EnsureValidToken(ctx context.Context) (string, error)
}
