package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Omaralyxt/Lumi-Seller/internal/cache"
	"github.com/Omaralyxt/Lumi-Seller/internal/event"
	"github.com/Omaralyxt/Lumi-Seller/internal/notification"
)

// Relay consumes order events and gives the seller live visibility: it
// invalidates the store's cached dashboard metrics, persists a notification
// the dashboard bell can list, and pushes the event to the store's sockets.
type Relay struct {
	hub           *Hub
	notifications *notification.Service
	metricsCache  *cache.MetricsCache
	logger        *slog.Logger
}

func NewRelay(hub *Hub, notifications *notification.Service, metricsCache *cache.MetricsCache, logger *slog.Logger) *Relay {
	return &Relay{
		hub:           hub,
		notifications: notifications,
		metricsCache:  metricsCache,
		logger:        logger,
	}
}

// Handle is the rabbit consumer callback. Malformed payloads are dropped;
// persistence failures are requeued once by nack.
func (rl *Relay) Handle(ctx context.Context, msg amqp091.Delivery) {
	switch msg.RoutingKey {
	case event.TypeOrderCreated:
		var evt event.OrderCreated
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			rl.logger.Error("invalid order created event", "err", err)
			_ = msg.Nack(false, false)
			return
		}
		if err := rl.onOrderCreated(ctx, evt); err != nil {
			rl.logger.Error("relay order created failed", "order_id", evt.OrderID, "err", err)
			_ = msg.Nack(false, true)
			return
		}
	case event.TypeOrderStatusChanged:
		var evt event.OrderStatusChanged
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			rl.logger.Error("invalid status changed event", "err", err)
			_ = msg.Nack(false, false)
			return
		}
		if err := rl.onStatusChanged(ctx, evt); err != nil {
			rl.logger.Error("relay status changed failed", "order_id", evt.OrderID, "err", err)
			_ = msg.Nack(false, true)
			return
		}
	default:
		rl.logger.Warn("unknown event type", "routing_key", msg.RoutingKey)
	}

	_ = msg.Ack(false)
}

func (rl *Relay) onOrderCreated(ctx context.Context, evt event.OrderCreated) error {
	rl.invalidateMetrics(ctx, evt.StoreID)

	buyer := evt.BuyerName
	if buyer == "" {
		buyer = "Cliente"
	}
	n := &notification.Notification{
		StoreID: evt.StoreID,
		Type:    notification.TypeNewOrder,
		OrderID: evt.OrderID,
		Title:   "Nova Venda Recebida!",
		Body:    fmt.Sprintf("Pedido de %s no valor de MZN %s.", buyer, evt.TotalAmount),
	}
	if err := rl.notifications.Create(ctx, n); err != nil {
		return err
	}

	rl.hub.Broadcast(Event{
		Type:        event.TypeOrderCreated,
		StoreID:     evt.StoreID,
		OrderID:     evt.OrderID,
		OrderNumber: evt.OrderNumber,
		BuyerName:   evt.BuyerName,
		TotalAmount: evt.TotalAmount,
	})
	return nil
}

func (rl *Relay) onStatusChanged(ctx context.Context, evt event.OrderStatusChanged) error {
	rl.invalidateMetrics(ctx, evt.StoreID)

	n := &notification.Notification{
		StoreID: evt.StoreID,
		Type:    notification.TypeStatusUpdate,
		OrderID: evt.OrderID,
		Title:   fmt.Sprintf("Pedido %s atualizado", evt.OrderNumber),
		Body:    fmt.Sprintf("Novo status: %s.", evt.NewStatus),
	}
	if err := rl.notifications.Create(ctx, n); err != nil {
		return err
	}

	rl.hub.Broadcast(Event{
		Type:        event.TypeOrderStatusChanged,
		StoreID:     evt.StoreID,
		OrderID:     evt.OrderID,
		OrderNumber: evt.OrderNumber,
		Status:      evt.NewStatus,
	})
	return nil
}

// invalidateMetrics is best-effort: a stale metric survives at most one cache
// TTL, while a hard failure here would stall event handling.
func (rl *Relay) invalidateMetrics(ctx context.Context, storeID string) {
	if rl.metricsCache == nil {
		return
	}
	if err := rl.metricsCache.Invalidate(ctx, storeID); err != nil {
		rl.logger.Warn("metrics invalidation failed", "store_id", storeID, "err", err)
	}
}
