package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant-orders/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// OrdersExchange carries order lifecycle events, keyed order.*.
	OrdersExchange = "orders.events"
	// NotifierQueue is the notifier's subscription to all lifecycle events.
	NotifierQueue = "orders.events.notifier"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // serializes Publish while waiting for confirms
}

func Dial(cfg config.RabbitConfig) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.VHost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Publisher confirms: an event is only considered emitted once the
	// broker acks it.
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareTopology declares the orders topic exchange and the notifier queue
// bound to every order.* routing key.
func (c *Client) DeclareTopology() error {
	if err := c.ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(NotifierQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(NotifierQueue, "order.*", OrdersExchange, false, nil)
}

// Publish sends a persistent JSON message and waits for the broker confirm.
func (c *Client) Publish(ctx context.Context, exchange, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ch.PublishWithContext(
		ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}
