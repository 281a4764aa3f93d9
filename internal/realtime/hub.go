package realtime

import (
	"context"
	"encoding/json"
)

// Event is what a dashboard socket receives. For new orders the payload
// carries what the desktop notification shows: who bought and for how much.
type Event struct {
	Type        string `json:"type"`
	StoreID     string `json:"store_id"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number,omitempty"`
	BuyerName   string `json:"buyer_name,omitempty"`
	TotalAmount string `json:"total_amount,omitempty"`
	Status      string `json:"status,omitempty"`
}

type Client struct {
	hub     *Hub
	conn    *Conn
	send    chan []byte
	storeID string
}

// Hub fans order events out to the dashboard sockets of exactly one store
// each: an event for store S never reaches another store's subscribers.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	clients    map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event),
		clients:    make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			set, ok := h.clients[c.storeID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[c.storeID] = set
			}
			set[c] = true
		case c := <-h.unregister:
			if set, ok := h.clients[c.storeID]; ok {
				if _, exists := set[c]; exists {
					delete(set, c)
					close(c.send)
				}
				if len(set) == 0 {
					delete(h.clients, c.storeID)
				}
			}
		case evt := <-h.broadcast:
			msg, _ := json.Marshal(evt)
			if set, ok := h.clients[evt.StoreID]; ok {
				for c := range set {
					select {
					case c.send <- msg:
					default:
						// Slow consumer: drop it rather than stall the hub.
						delete(set, c)
						close(c.send)
					}
				}
			}
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			return
		}
	}
}

func (h *Hub) Broadcast(evt Event) {
	go func() { h.broadcast <- evt }()
}
