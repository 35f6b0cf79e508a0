// Package advertising implements the ad platform statistics client.
package advertising

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/config"
)

const (
	// dailyStatsPath is the campaign statistics endpoint with one row per day
	dailyStatsPath = "/api/v2/statistics/campaigns/day.json"
	// maxResponseSize limits the response body size to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024 // 10MB max response
	defaultPageSize = 250
)

// Client fetches daily campaign statistics using a bearer token
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     integration.TokenProvider
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

var _ integration.AdStatsSource = (*Client)(nil)

// NewClient creates an ad platform client.
// Returns ErrSourceNotConfigured when no base URL is set.
func NewClient(cfg config.AdsConfig, tokens integration.TokenProvider, opts ...ClientOption) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: ads base url is empty", integration.ErrSourceNotConfigured)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: ads client requires a token provider", integration.ErrSourceNotConfigured)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		tokens:     tokens,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchDailyStats returns one raw row per (campaign, day) for [from, to].
// Every row carries campaign_id. When the account has no campaign rows the
// daily totals are returned instead, without a campaign id.
func (c *Client) FetchDailyStats(ctx context.Context, from, to time.Time) ([]json.RawMessage, error) {
	token, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, integration.ErrTokenUnavailable
	}

	var (
		rows      []json.RawMessage
		totalRows []json.RawMessage
		pages     int
	)
	for offset := 0; ; {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", integration.ErrUpstreamUnavailable, err)
		}

		body, err := c.doRequest(ctx, token, from, to, offset)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("%w: ads page at offset %d", integration.ErrInvalidResponse, offset)
		}
		pages++

		page := gjson.ParseBytes(body)
		items := page.Get("items").Array()
		for _, item := range items {
			flattened, err := flattenItem(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, flattened...)
		}
		if offset == 0 {
			for _, row := range page.Get("total.rows").Array() {
				totalRows = append(totalRows, json.RawMessage(row.Raw))
			}
		}

		offset += len(items)
		if len(items) == 0 || len(items) < c.pageSize {
			break
		}
		if count := page.Get("count"); count.Exists() && int64(offset) >= count.Int() {
			break
		}
	}

	if len(rows) == 0 {
		rows = totalRows
	}

	c.logger.Debug("Fetched ad statistics",
		zap.String("date_from", from.Format(report.DateLayout)),
		zap.String("date_to", to.Format(report.DateLayout)),
		zap.Int("pages", pages),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// flattenItem copies the campaign id of one item into each of its daily rows
func flattenItem(item gjson.Result) ([]json.RawMessage, error) {
	id := item.Get("id")
	rows := item.Get("rows").Array()
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		raw := []byte(row.Raw)
		if id.Exists() {
			var err error
			raw, err = sjson.SetBytes(raw, "campaign_id", id.String())
			if err != nil {
				return nil, fmt.Errorf("%w: %v", integration.ErrInvalidResponse, err)
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, token string, from, to time.Time, offset int) ([]byte, error) {
	query := url.Values{}
	query.Set("date_from", from.Format(report.DateLayout))
	query.Set("date_to", to.Format(report.DateLayout))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+dailyStatsPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ads: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: ads platform rejected the token", integration.ErrTokenUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: ads HTTP %d", integration.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return body, nil
}
