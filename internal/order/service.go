package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

type CheckoutItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Variant     string          `json:"variant"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type CheckoutInput struct {
	StoreID       string          `json:"store_id"`
	CustomerID    string          `json:"customer_id"`
	BuyerName     string          `json:"buyer_name"`
	BuyerEmail    string          `json:"buyer_email"`
	BuyerPhone    string          `json:"buyer_phone"`
	BuyerAddress  string          `json:"buyer_address"`
	BuyerCity     string          `json:"buyer_city"`
	BuyerCountry  string          `json:"buyer_country"`
	PaymentMethod string          `json:"payment_method"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Items         []CheckoutItem  `json:"items"`
}

// Checkout records a storefront purchase: the order row, its immutable item
// snapshots and the orders.created outbox event land in one transaction.
// New orders always start pending / awaiting_payment.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*Order, error) {
	if in.StoreID == "" {
		return nil, errors.New("store_id required")
	}
	if len(in.Items) == 0 {
		return nil, errors.New("order needs at least one item")
	}
	if in.ShippingCost.IsNegative() {
		return nil, errors.New("shipping cost cannot be negative")
	}

	items := make([]Item, 0, len(in.Items))
	total := in.ShippingCost
	for _, ci := range in.Items {
		if ci.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity for %q", ci.ProductName)
		}
		if ci.Price.IsNegative() {
			return nil, fmt.Errorf("invalid price for %q", ci.ProductName)
		}
		subtotal := ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
		total = total.Add(subtotal)
		items = append(items, Item{
			ProductID:   ci.ProductID,
			ProductName: ci.ProductName,
			Variant:     ci.Variant,
			Quantity:    ci.Quantity,
			Price:       ci.Price,
			Subtotal:    subtotal,
		})
	}

	country := in.BuyerCountry
	if country == "" {
		country = "Mozambique"
	}

	o := &Order{
		StoreID:       in.StoreID,
		CustomerID:    in.CustomerID,
		OrderNumber:   newOrderNumber(),
		BuyerName:     in.BuyerName,
		BuyerEmail:    in.BuyerEmail,
		BuyerPhone:    in.BuyerPhone,
		BuyerAddress:  in.BuyerAddress,
		BuyerCity:     in.BuyerCity,
		BuyerCountry:  country,
		TotalAmount:   total,
		ShippingCost:  in.ShippingCost,
		Status:        StatusPending,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: PaymentAwaiting,
		Items:         items,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber, "store_id", o.StoreID)
	return o, nil
}

func (s *Service) List(ctx context.Context, storeID string) ([]Order, error) {
	return s.repo.ListByStore(ctx, storeID)
}

func (s *Service) Get(ctx context.Context, storeID, orderID string) (*Order, error) {
	return s.repo.GetByStore(ctx, storeID, orderID)
}

// UpdateStatus runs a seller-driven transition through the guarded update.
// The tracking code, when present, rides along with the transition. An empty
// target status with a tracking code means "set or correct the code only":
// the status stays put, and terminal orders refuse the update.
func (s *Service) UpdateStatus(ctx context.Context, storeID, orderID string, to Status, trackingCode *string) (*Order, error) {
	if to == "" {
		if trackingCode == nil || strings.TrimSpace(*trackingCode) == "" {
			return nil, ErrEmptyUpdate
		}
		o, err := s.repo.AttachTracking(ctx, storeID, orderID, strings.TrimSpace(*trackingCode))
		if err != nil {
			return nil, err
		}
		s.logger.Info("tracking code attached", "order_id", o.ID, "status", o.Status)
		return o, nil
	}

	sources := AllowedSources(to)
	if sources == nil {
		return nil, fmt.Errorf("%w: %q is not a valid target status", ErrInvalidTransition, to)
	}

	o, err := s.repo.TransitionStatus(ctx, storeID, orderID, to, sources, trackingCode)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated", "order_id", o.ID, "status", o.Status)
	return o, nil
}

// newOrderNumber mints the payment correlation key. Uniqueness is backed by
// the DB constraint; nanosecond clocks make collisions within one store
// practically impossible.
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}
