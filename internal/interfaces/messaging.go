package interfaces

import (
	"context"
	"time"
)

// Сообщения RabbitMQ
type ChildInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

type ParentInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type MenuNames struct {
	Soup    string `json:"soup"`
	Main    string `json:"main"`
	Dessert string `json:"dessert"`
	Reserve string `json:"reserve"`
}

type OrderConfirmedEvent struct {
	OrderID   string     `json:"orderId"`
	OrderDate string     `json:"orderDate"`
	Child     ChildInfo  `json:"child"`
	Parent    ParentInfo `json:"parent"`
	Menu      MenuNames  `json:"menu"`
}

// EventEnvelope is the fixed wire shape on the school.events exchange.
type EventEnvelope struct {
	EventID    string              `json:"eventId"`
	OccurredAt time.Time           `json:"occurredAt"`
	Type       string              `json:"type"`
	Data       OrderConfirmedEvent `json:"data"`
}

// Интерфейсы Messaging (Adapter/RabbitMQ)
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, event OrderConfirmedEvent) error
}

type MessageConsumer interface {
	ConsumeOrderEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(ctx context.Context, body []byte) error
