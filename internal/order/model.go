package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCanceled   Status = "canceled"
)

type PaymentStatus string

const (
	PaymentAwaiting PaymentStatus = "awaiting_payment"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
)

// transitionSources lists the states a seller-driven transition may leave
// from. The table is enforced in SQL (status = ANY(sources)) so an out-of-order
// request from a buggy or hostile client cannot skip or rewind the lifecycle.
var transitionSources = map[Status][]Status{
	StatusProcessing: {StatusPending, StatusPaid},
	StatusShipped:    {StatusProcessing},
	StatusDelivered:  {StatusShipped},
	StatusCanceled:   {StatusPending, StatusPaid, StatusProcessing, StatusShipped},
}

// AllowedSources returns the valid predecessor states for a target status,
// or nil when the target is not reachable by a seller action.
func AllowedSources(to Status) []Status {
	return transitionSources[to]
}

func canTransition(from, to Status) bool {
	for _, s := range transitionSources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// terminalStatuses lists the states no transition leaves. Tracking-code
// updates are also refused once an order reaches one of them.
var terminalStatuses = []Status{StatusDelivered, StatusCanceled}

func IsTerminal(s Status) bool {
	for _, t := range terminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

type Order struct {
	ID                 string          `json:"id"`
	StoreID            string          `json:"store_id"`
	CustomerID         string          `json:"customer_id,omitempty"`
	OrderNumber        string          `json:"order_number"`
	BuyerName          string          `json:"buyer_name"`
	BuyerEmail         string          `json:"buyer_email"`
	BuyerPhone         string          `json:"buyer_phone"`
	BuyerAddress       string          `json:"buyer_address"`
	BuyerCity          string          `json:"buyer_city"`
	BuyerCountry       string          `json:"buyer_country"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	Status             Status          `json:"status"`
	PaymentMethod      string          `json:"payment_method"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	TrackingCode       string          `json:"tracking_code,omitempty"`
	MpesaTransactionID string          `json:"mpesa_transaction_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`

	Items []Item `json:"items,omitempty"`
}

// Item is an immutable snapshot taken at purchase time; later catalog edits
// never touch it.
type Item struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	StoreID     string          `json:"store_id"`
	ProductID   string          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Variant     string          `json:"variant,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ItemsSubtotal sums the line item subtotals.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal)
	}
	return sum
}

// ShippingDisplay is the shipping value shown to the seller: the gap between
// the charged total and the item subtotals, floored at zero.
func (o *Order) ShippingDisplay() decimal.Decimal {
	diff := o.TotalAmount.Sub(o.ItemsSubtotal())
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// PaymentResult is the authoritative outcome delivered by the gateway webhook.
type PaymentResult struct {
	Paid          bool
	TransactionID string
}
