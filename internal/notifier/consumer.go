package notifier

import (
	"context"
	"encoding/json"

	"restaurant-orders/internal/connections/rabbitmq"
	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/logger"
)

// Consumer bridges the broker to the websocket hub: it drains the notifier
// queue and fans each event out to the rooms its kind prescribes.
type Consumer struct {
	mq     *rabbitmq.Client
	hub    *Hub
	logger *logger.Logger
}

func NewConsumer(mq *rabbitmq.Client, hub *Hub, lg *logger.Logger) *Consumer {
	return &Consumer{mq: mq, hub: hub, logger: lg}
}

// Run consumes until the context is cancelled or the delivery channel
// closes. Malformed messages are acked and dropped; there is no replay
// guarantee to preserve.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.mq.Consume(rabbitmq.NotifierQueue, "notifier", 16)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var ev domain.OrderEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.logger.Error("event_decode_failed", err, nil)
				_ = d.Ack(false)
				continue
			}
			c.dispatch(ev)
			_ = d.Ack(false)
		}
	}
}

// dispatch applies the audience rules: created goes to operators only; status
// updates and cancellations go to operators and to the order's own room.
func (c *Consumer) dispatch(ev domain.OrderEvent) {
	switch ev.Event {
	case domain.EventOrderCreated:
		c.hub.Broadcast(RoomOperators, Frame{Event: ev.Event, Data: domain.OrderCreatedPayload{
			OrderID:   ev.OrderID,
			SessionID: ev.SessionID,
			UserID:    ev.UserID,
		}})
	case domain.EventOrderStatusUpdated:
		frame := Frame{Event: ev.Event, Data: domain.OrderStatusUpdatedPayload{
			OrderID:        ev.OrderID,
			Status:         ev.Status,
			PreviousStatus: ev.PreviousStatus,
		}}
		c.hub.Broadcast(RoomOperators, frame)
		c.hub.Broadcast(OrderRoom(ev.OrderID), frame)
	case domain.EventOrderCancelled:
		frame := Frame{Event: ev.Event, Data: domain.OrderCancelledPayload{OrderID: ev.OrderID}}
		c.hub.Broadcast(RoomOperators, frame)
		c.hub.Broadcast(OrderRoom(ev.OrderID), frame)
	default:
		c.logger.Warn("event_unknown_kind", map[string]any{"event": ev.Event})
	}
}
