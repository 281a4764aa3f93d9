package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubClient(storeID string) *Client {
	return &Client{send: make(chan []byte, 8), storeID: storeID}
}

func recvEvent(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			return nil
		}
		var evt Event
		require.NoError(t, json.Unmarshal(msg, &evt))
		return &evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHubBroadcastIsStoreScoped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	mine := newHubClient("store-a")
	other := newHubClient("store-b")
	hub.register <- mine
	hub.register <- other

	hub.Broadcast(Event{
		Type:        "orders.created",
		StoreID:     "store-a",
		OrderID:     "order-1",
		BuyerName:   "Ana Macamo",
		TotalAmount: "1500.00",
	})

	evt := recvEvent(t, mine)
	require.NotNil(t, evt)
	assert.Equal(t, "orders.created", evt.Type)
	assert.Equal(t, "Ana Macamo", evt.BuyerName)

	select {
	case msg := <-other.send:
		t.Fatalf("store-b received store-a's event: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFansOutToAllStoreClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := newHubClient("store-a")
	second := newHubClient("store-a")
	hub.register <- first
	hub.register <- second

	hub.Broadcast(Event{Type: "orders.status_changed", StoreID: "store-a", OrderID: "order-9", Status: "shipped"})

	for _, c := range []*Client{first, second} {
		evt := recvEvent(t, c)
		require.NotNil(t, evt)
		assert.Equal(t, "shipped", evt.Status)
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := newHubClient("store-a")
	hub.register <- c
	hub.unregister <- c

	select {
	case _, ok := <-c.send:
		assert.False(t, ok, "send channel should be closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}
