package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lunchroom/orders/internal/interfaces"
)

const (
	eventsExchange     = "school.events"
	orderConfirmedKey  = "order.confirmed"
	orderConfirmedType = "order.confirmed"
)

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.EventPublisher {
	return &publisher{conn: conn}
}

// PublishOrderConfirmed wraps the event in the fixed envelope and publishes it
// persistently to the school.events topic exchange. Exactly one message per
// confirmed order is expected by the downstream notification consumers.
func (p *publisher) PublishOrderConfirmed(ctx context.Context, event interfaces.OrderConfirmedEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	envelope := interfaces.EventEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Type:       orderConfirmedType,
		Data:       event,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.Publish(eventsExchange, orderConfirmedKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    envelope.EventID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
