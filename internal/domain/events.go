package domain

// Event kinds carried over the orders.events topic exchange and, downstream,
// as websocket frame names. The names and payload field names are fixed for
// existing consumers.
const (
	EventOrderCreated       = "order:created"
	EventOrderStatusUpdated = "order:status-updated"
	EventOrderCancelled     = "order:cancelled"
)

// AMQP routing keys per event kind.
const (
	RouteOrderCreated       = "order.created"
	RouteOrderStatusUpdated = "order.status_updated"
	RouteOrderCancelled     = "order.cancelled"
)

// OrderEvent is the broker envelope. SessionID rides along for room routing
// even when the client-facing payload omits it.
type OrderEvent struct {
	Event          string      `json:"event"`
	OrderID        string      `json:"orderId"`
	SessionID      string      `json:"sessionId"`
	UserID         *string     `json:"userId,omitempty"`
	Status         OrderStatus `json:"status,omitempty"`
	PreviousStatus OrderStatus `json:"previousStatus,omitempty"`
}

// Client-facing payload shapes, byte-for-byte per the event contract.

type OrderCreatedPayload struct {
	OrderID   string  `json:"orderId"`
	SessionID string  `json:"sessionId"`
	UserID    *string `json:"userId,omitempty"`
}

type OrderStatusUpdatedPayload struct {
	OrderID        string      `json:"orderId"`
	Status         OrderStatus `json:"status"`
	PreviousStatus OrderStatus `json:"previousStatus"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"orderId"`
}
