// Package ecommerce implements the marketplace order API client.
package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/config"
)

const (
	orderListPath = "/v1/orders/list"
	// maxMarketplaceResponseSize limits the response body size to prevent memory exhaustion
	maxMarketplaceResponseSize = 10 * 1024 * 1024 // 10MB max response
	defaultOrderPageSize       = 100
	// maxOrderPages stops a provider that never reports has_more=false
	maxOrderPages = 1000
)

// MarketplaceClient pulls orders from the marketplace seller API
type MarketplaceClient struct {
	baseURL    string
	clientID   string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// MarketplaceOption configures a MarketplaceClient
type MarketplaceOption func(*MarketplaceClient)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) MarketplaceOption {
	return func(c *MarketplaceClient) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) MarketplaceOption {
	return func(c *MarketplaceClient) {
		c.logger = logger
	}
}

var _ integration.OrderSource = (*MarketplaceClient)(nil)

// NewMarketplaceClient creates a marketplace client from configuration
func NewMarketplaceClient(cfg config.MarketplaceConfig, opts ...MarketplaceOption) (*MarketplaceClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: marketplace base url or api key is empty", integration.ErrSourceNotConfigured)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultOrderPageSize
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &MarketplaceClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		apiKey:     cfg.APIKey,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// FetchOrders pulls every order created within [from, to], page by page
func (c *MarketplaceClient) FetchOrders(ctx context.Context, from, to time.Time) ([]json.RawMessage, error) {
	req := MarketplaceOrderListRequest{
		DateFrom: from.Format(report.DateLayout),
		DateTo:   to.Format(report.DateLayout),
		Page:     1,
		PageSize: c.pageSize,
	}

	orders := make([]json.RawMessage, 0)
	for ; req.Page <= maxOrderPages; req.Page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", integration.ErrUpstreamUnavailable, err)
		}

		respBody, err := c.doRequest(ctx, orderListPath, req)
		if err != nil {
			return nil, err
		}

		var resp MarketplaceOrderListResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("%w: marketplace page %d: %v", integration.ErrInvalidResponse, req.Page, err)
		}
		orders = append(orders, resp.Orders...)

		if !resp.HasMore || len(resp.Orders) == 0 {
			break
		}
	}
	if req.Page > maxOrderPages {
		c.logger.Warn("Marketplace pagination truncated", zap.Int("max_pages", maxOrderPages))
	}

	c.logger.Debug("Fetched marketplace orders",
		zap.String("date_from", req.DateFrom),
		zap.String("date_to", req.DateTo),
		zap.Int("orders", len(orders)),
	)
	return orders, nil
}

// doRequest posts a JSON body with the seller credentials
func (c *MarketplaceClient) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMarketplaceResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrUpstreamUnavailable, err)
	}

	// Check for HTTP errors
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: marketplace HTTP %d", integration.ErrUpstreamUnavailable, resp.StatusCode)
	}

	return body, nil
}
