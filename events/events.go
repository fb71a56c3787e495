package events

import "time"

const (
	EventsExchange        = "agrifinpal.events"
	OrderPlacedRoutingKey = "order.placed.v1"
)

// OrderPlaced is emitted after a checkout has been finalized. Downstream
// consumers (notifications, seller dashboards) key on paymentReference for
// dedup, matching the order's own uniqueness rule.
type OrderPlaced struct {
	EventType        string            `json:"eventType"`
	OrderID          uint              `json:"orderId"`
	OrderRef         string            `json:"orderRef"`
	UserID           string            `json:"userId"`
	PaymentReference string            `json:"paymentReference"`
	TotalAmount      float64           `json:"totalAmount"`
	Items            []OrderPlacedItem `json:"items"`
	Timestamp        time.Time         `json:"timestamp"`
}

type OrderPlacedItem struct {
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}
