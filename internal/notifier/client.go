package notifier

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	joined map[string]struct{}
}

// joinMessage is what subscribers send to pick their channels:
// {"type":"join:admin"} or {"type":"join:order","orderId":"..."}.
type joinMessage struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId,omitempty"`
}

// ServeWS upgrades the connection and registers the client with the hub.
// Room membership is added per join message and removed wholesale on
// disconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws_upgrade_failed", err, nil)
		return
	}
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 16),
		joined: make(map[string]struct{}),
	}
	h.metrics.WSConnections.Inc()

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.hub.metrics.WSConnections.Dec()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("ws_read_closed", map[string]any{"error": err.Error()})
			}
			return
		}

		var msg joinMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "join:admin":
			c.hub.join(c, RoomOperators)
		case "join:order":
			if msg.OrderID != "" {
				c.hub.join(c, OrderRoom(msg.OrderID))
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
