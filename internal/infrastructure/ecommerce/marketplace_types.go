package ecommerce

import "encoding/json"

// MarketplaceOrderListRequest is the body of POST /v1/orders/list
type MarketplaceOrderListRequest struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// MarketplaceOrderListResponse is one page of orders.
// Orders are kept raw and normalized later.
type MarketplaceOrderListResponse struct {
	Orders  []json.RawMessage `json:"orders"`
	HasMore bool              `json:"has_more"`
}
