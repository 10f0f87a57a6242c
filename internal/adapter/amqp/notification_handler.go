package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
	}
}

// HandleOrderConfirmed renders the notification the downstream email service
// sends for a confirmed order.
func (h *NotificationHandler) HandleOrderConfirmed(ctx context.Context, body []byte) error {
	var envelope interfaces.EventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse event", "", nil, err)
		return err
	}

	event := envelope.Data

	h.logger.Debug("order_confirmed_received", fmt.Sprintf("Received confirmation for order %s", event.OrderID),
		envelope.EventID, map[string]interface{}{
			"order_id":   event.OrderID,
			"order_date": event.OrderDate,
			"parent":     event.Parent.Email,
		})

	fmt.Printf("Lunch confirmed for %s: soup=%s, main=%s, dessert=%s (notify %s)\n",
		event.OrderDate, event.Menu.Soup, event.Menu.Main, event.Menu.Dessert, event.Parent.Email)

	return nil
}
