package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lunchroom/orders/internal/interfaces"
)

const notificationsQueue = "order_notifications"

type consumer struct {
	conn     Connection
	prefetch int
}

func NewConsumer(conn Connection, prefetch int) interfaces.MessageConsumer {
	return &consumer{conn: conn, prefetch: prefetch}
}

// ConsumeOrderEvents delivers order.confirmed events from the school.events
// exchange to the handler, reconnecting with a fixed delay when the channel
// drops.
func (c *consumer) ConsumeOrderEvents(ctx context.Context, handler interfaces.EventHandler) error {
	for {
		err := c.consumeWithReconnect(ctx, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		log.Printf("Events consumer disconnected: %v. Reconnecting in 5 seconds...", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (c *consumer) consumeWithReconnect(ctx context.Context, handler interfaces.EventHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Durable queue: confirmations must survive a subscriber restart.
	q, err := ch.QueueDeclare(notificationsQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, orderConfirmedKey, eventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			if err := handler(ctx, msg.Body); err != nil {
				// Malformed or unprocessable events are dropped, not requeued.
				msg.Nack(false, false)
			} else {
				msg.Ack(false)
			}
		}
	}
}
