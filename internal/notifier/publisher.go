package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-orders/internal/connections/rabbitmq"
	"restaurant-orders/internal/domain"
)

// Publisher sends lifecycle events to the orders topic exchange. It is the
// broker-backed implementation of the order service's EventPublisher.
type Publisher struct {
	mq *rabbitmq.Client
}

func NewPublisher(mq *rabbitmq.Client) *Publisher { return &Publisher{mq: mq} }

func routingKey(event string) (string, error) {
	switch event {
	case domain.EventOrderCreated:
		return domain.RouteOrderCreated, nil
	case domain.EventOrderStatusUpdated:
		return domain.RouteOrderStatusUpdated, nil
	case domain.EventOrderCancelled:
		return domain.RouteOrderCancelled, nil
	}
	return "", fmt.Errorf("unknown event kind %q", event)
}

func (p *Publisher) Publish(ctx context.Context, ev domain.OrderEvent) error {
	key, err := routingKey(ev.Event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.mq.Publish(ctx, rabbitmq.OrdersExchange, key, body)
}
