package interfaces

import (
	"context"
	"time"

	"github.com/lunchroom/orders/internal/domain"
)

// Интерфейсы Репозиториев (Adapter/Postgres)
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// FindByChildAndDate returns the unique (child, date) row regardless of
	// status, or a NotFoundError.
	FindByChildAndDate(ctx context.Context, childID string, orderDate time.Time) (*domain.Order, error)
	// Upsert inserts or replaces on the (child_id, order_date) unique key,
	// resetting the row to PENDING. The replacement is declined at the
	// statement level when the row is CONFIRMED or owned by another parent,
	// surfacing a ValidationError or ForbiddenError. The selection row is
	// written in the same transaction.
	Upsert(ctx context.Context, order *domain.Order) error
	// UpsertBatch applies every upsert inside one transaction: all or nothing.
	UpsertBatch(ctx context.Context, orders []*domain.Order) (int, error)
	Update(ctx context.Context, order *domain.Order) error
	ListByParent(ctx context.Context, parentID string, from, to *time.Time) ([]*domain.Order, error)
	// OwnersInRange returns the distinct parent ids holding non-canceled
	// orders for the child in [from, to].
	OwnersInRange(ctx context.Context, childID string, from, to time.Time) ([]string, error)
	// PendingForDate loads pending orders for a date with their selections.
	PendingForDate(ctx context.Context, date time.Time) ([]*domain.Order, error)
	// ConfirmPending flips every still-pending order for the date to
	// CONFIRMED in a single conditional update and returns the ids it
	// actually transitioned. A concurrent call matches zero rows.
	ConfirmPending(ctx context.Context, date time.Time, now time.Time) ([]string, error)
	// UnnotifiedConfirmed returns confirmed orders dated on or before the
	// given date whose confirmation event has not been recorded as published.
	UnnotifiedConfirmed(ctx context.Context, date time.Time) ([]*domain.Order, error)
	MarkNotified(ctx context.Context, orderID string, at time.Time) error
}
