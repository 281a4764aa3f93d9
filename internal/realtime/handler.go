package realtime

import (
	"log/slog"
	"net/http"
	"time"

	gw "github.com/gorilla/websocket"

	"github.com/Omaralyxt/Lumi-Seller/internal/auth"
	"github.com/Omaralyxt/Lumi-Seller/internal/storefront"
)

type Conn = gw.Conn

var upgrader = gw.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades an authenticated seller's dashboard connection and
// registers it on the hub under the seller's store. One store resolution per
// connection; the subscription lives until the socket closes.
type Handler struct {
	hub    *Hub
	stores *storefront.Service
	logger *slog.Logger
}

func NewHandler(hub *Hub, stores *storefront.Service, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, stores: stores, logger: logger}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	store, err := h.stores.Resolve(r.Context(), sellerID, "")
	if err != nil {
		h.logger.Warn("realtime subscription refused, store unresolved", "seller_id", sellerID, "err", err)
		http.Error(w, "store not available", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		storeID: store.ID,
	}

	h.hub.register <- client
	h.logger.Info("realtime subscriber connected", "store_id", store.ID)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(gw.TextMessage, msg); err != nil {
			return
		}
	}
}
