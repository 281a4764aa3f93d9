package event

import "time"

// Routing keys on the order events exchange. The outbox dispatcher publishes
// each row with its event_type as the routing key so the relay can switch on
// delivery.RoutingKey.
const (
	TypeOrderCreated       = "orders.created"
	TypeOrderStatusChanged = "orders.status_changed"
)

type OrderCreated struct {
	EventID     string    `json:"event_id"`
	StoreID     string    `json:"store_id"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerName   string    `json:"buyer_name"`
	TotalAmount string    `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderStatusChanged struct {
	EventID       string    `json:"event_id"`
	StoreID       string    `json:"store_id"`
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	NewStatus     string    `json:"new_status"`
	PaymentStatus string    `json:"payment_status"`
	ChangedAt     time.Time `json:"changed_at"`
}
