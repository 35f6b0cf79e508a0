package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
)

// orderNamespace scopes generated order ids
var orderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("marketplace-order"))

// NormalizeOrders emits one FactOrder per order line. Orders without
// line items become a single fact built from the order total. Orders
// without an id get one derived from their position and payload.
func NormalizeOrders(raw []json.RawMessage) []report.FactOrder {
	facts := make([]report.FactOrder, 0, len(raw))
	for i, item := range raw {
		if !gjson.ValidBytes(item) {
			continue
		}
		order := gjson.ParseBytes(item)
		if !order.IsObject() {
			continue
		}

		base := report.FactOrder{
			OrderID:    idOf(first(order, "order_id", "orderId", "posting_number", "id")),
			CampaignID: idOf(first(order, "campaign_id", "campaignId")),
			Date:       dateOf(first(order, "created_at", "createdAt", "date", "in_process_at")),
			Status:     strings.ToLower(strings.TrimSpace(first(order, "status").String())),
		}
		if base.OrderID == "" {
			base.OrderID = syntheticOrderID(i, item)
		}

		lines := first(order, "items", "products").Array()
		if len(lines) == 0 {
			total := decimalOf(first(order, "total", "total_price", "amount"))
			fact := base
			fact.Quantity = 1
			fact.BuyerPrice = total
			fact.Revenue = total
			facts = append(facts, fact)
			continue
		}

		for _, line := range lines {
			qty := intOf(first(line, "quantity", "qty"))
			price := decimalOf(first(line, "price", "buyer_price", "buyerPrice"))

			fact := base
			fact.ProductID = idOf(first(line, "product_id", "productId", "sku", "offer_id"))
			fact.Quantity = qty
			fact.BuyerPrice = price
			fact.Revenue = price.Mul(decimal.NewFromInt(qty))
			facts = append(facts, fact)
		}
	}
	return facts
}

func syntheticOrderID(index int, payload []byte) string {
	name := append([]byte(strconv.Itoa(index)+"|"), payload...)
	return uuid.NewSHA1(orderNamespace, name).String()
}
