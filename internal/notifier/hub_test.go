package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testMetrics = metrics.New()

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub() *Hub {
	return NewHub(testMetrics, logger.New("notifier-test"))
}

// dialWS connects to the hub's websocket endpoint and sends the given join
// messages, then waits until the hub has registered the memberships.
func dialWS(t *testing.T, hub *Hub, srv *httptest.Server, joins ...joinMessage) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	for _, j := range joins {
		require.NoError(t, conn.WriteJSON(j))
		room := RoomOperators
		if j.Type == "join:order" {
			room = OrderRoom(j.OrderID)
		}
		waitForMembers(t, hub, room, 1)
	}
	return conn
}

func waitForMembers(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		n := len(hub.rooms[room])
		hub.mu.Unlock()
		if n >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q never reached %d members", room, want)
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestBroadcastReachesRoomMembers(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	operator := dialWS(t, hub, srv, joinMessage{Type: "join:admin"})

	hub.Broadcast(RoomOperators, Frame{Event: domain.EventOrderCreated, Data: map[string]string{"orderId": "o-1"}})

	frame := readFrame(t, operator)
	assert.Equal(t, domain.EventOrderCreated, frame.Event)
}

func TestBroadcastSkipsOtherRooms(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	tracker := dialWS(t, hub, srv, joinMessage{Type: "join:order", OrderID: "o-1"})

	// A frame for a different order, then one for o-1. The tracker must see
	// only the second.
	hub.Broadcast(OrderRoom("o-2"), Frame{Event: domain.EventOrderCancelled, Data: domain.OrderCancelledPayload{OrderID: "o-2"}})
	hub.Broadcast(OrderRoom("o-1"), Frame{Event: domain.EventOrderCancelled, Data: domain.OrderCancelledPayload{OrderID: "o-1"}})

	frame := readFrame(t, tracker)
	assert.Equal(t, domain.EventOrderCancelled, frame.Event)
	var payload domain.OrderCancelledPayload
	raw, _ := json.Marshal(frame.Data)
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "o-1", payload.OrderID)
}

func TestDisconnectLeavesRooms(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialWS(t, hub, srv, joinMessage{Type: "join:admin"})
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.Lock()
		_, exists := hub.rooms[RoomOperators]
		hub.mu.Unlock()
		if !exists {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.mu.Lock()
	_, exists := hub.rooms[RoomOperators]
	hub.mu.Unlock()
	assert.False(t, exists, "empty rooms are pruned on disconnect")

	// Broadcasting into the now-empty room must be a no-op.
	hub.Broadcast(RoomOperators, Frame{Event: domain.EventOrderCreated})
}

func TestDispatchAudiences(t *testing.T) {
	hub := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	consumer := NewConsumer(nil, hub, logger.New("notifier-test"))

	operator := dialWS(t, hub, srv, joinMessage{Type: "join:admin"})
	tracker := dialWS(t, hub, srv, joinMessage{Type: "join:order", OrderID: "o-1"})

	// Created: operators only.
	consumer.dispatch(domain.OrderEvent{
		Event:     domain.EventOrderCreated,
		OrderID:   "o-1",
		SessionID: "sess-1",
	})
	frame := readFrame(t, operator)
	assert.Equal(t, domain.EventOrderCreated, frame.Event)

	// Status update: operators and the order room.
	consumer.dispatch(domain.OrderEvent{
		Event:          domain.EventOrderStatusUpdated,
		OrderID:        "o-1",
		Status:         domain.StatusConfirmed,
		PreviousStatus: domain.StatusPending,
	})
	opFrame := readFrame(t, operator)
	trFrame := readFrame(t, tracker)
	assert.Equal(t, domain.EventOrderStatusUpdated, opFrame.Event)
	assert.Equal(t, domain.EventOrderStatusUpdated, trFrame.Event, "tracker skipped the created frame and sees its status update first")

	var payload domain.OrderStatusUpdatedPayload
	raw, _ := json.Marshal(trFrame.Data)
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "o-1", payload.OrderID)
	assert.Equal(t, domain.StatusConfirmed, payload.Status)
	assert.Equal(t, domain.StatusPending, payload.PreviousStatus)

	// Cancelled: both again, with the bare payload.
	consumer.dispatch(domain.OrderEvent{Event: domain.EventOrderCancelled, OrderID: "o-1"})
	assert.Equal(t, domain.EventOrderCancelled, readFrame(t, operator).Event)
	assert.Equal(t, domain.EventOrderCancelled, readFrame(t, tracker).Event)
}
