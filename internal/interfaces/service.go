package interfaces

import (
	"context"
	"time"

	"github.com/lunchroom/orders/internal/domain"
)

// Caller is the authenticated parent extracted from the bearer credential.
// Token carries the original credential so ownership checks run as the
// caller, never as the service account.
type Caller struct {
	ID    string
	Email string
	Roles []string
	Token string
}

// Команды для сервисов
type PlaceOrderCommand struct {
	ChildID     string
	OrderDate   string
	DailyMenuID string
	Selections  []domain.Choice
}

type ListOrdersQuery struct {
	From *time.Time
	To   *time.Time
}

type MonthlyDefaultsCommand struct {
	ChildID string
	From    time.Time
	To      time.Time
}

type DayResult string

const (
	DayWritten           DayResult = "written"
	DaySkippedLocked     DayResult = "skipped_locked"
	DaySkippedIncomplete DayResult = "skipped_incomplete"
)

type DayOutcome struct {
	Date   string    `json:"date"`
	Result DayResult `json:"result"`
}

type MonthlyDefaultsResult struct {
	CreatedOrUpdated int          `json:"created_or_updated"`
	Days             []DayOutcome `json:"days"`
}

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	PlaceOrder(ctx context.Context, caller Caller, cmd PlaceOrderCommand) (*domain.Order, error)
	CancelOrder(ctx context.Context, caller Caller, orderID string) (*domain.Order, error)
	ListForParent(ctx context.Context, parentID string, q ListOrdersQuery) ([]*domain.Order, error)
	ListToday(ctx context.Context, parentID string) ([]*domain.Order, error)
}

type SweeperService interface {
	// Sweep confirms today's pending orders once the cutoff has passed and
	// publishes one event per confirmed order. Idempotent.
	Sweep(ctx context.Context) (int, error)
	// SweepForce confirms today's pending orders regardless of the cutoff.
	SweepForce(ctx context.Context) (int, error)
}

type DefaultsService interface {
	PlaceMonthlyDefaults(ctx context.Context, caller Caller, cmd MonthlyDefaultsCommand) (*MonthlyDefaultsResult, error)
}
