// Package mocks holds testify doubles for the repository, remote clients and
// messaging interfaces. Test-only.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderRepository) FindByChildAndDate(ctx context.Context, childID string, orderDate time.Time) (*domain.Order, error) {
	args := m.Called(ctx, childID, orderDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepository) UpsertBatch(ctx context.Context, orders []*domain.Order) (int, error) {
	args := m.Called(ctx, orders)
	return args.Int(0), args.Error(1)
}

func (m *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepository) ListByParent(ctx context.Context, parentID string, from, to *time.Time) ([]*domain.Order, error) {
	args := m.Called(ctx, parentID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *OrderRepository) OwnersInRange(ctx context.Context, childID string, from, to time.Time) ([]string, error) {
	args := m.Called(ctx, childID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *OrderRepository) PendingForDate(ctx context.Context, date time.Time) ([]*domain.Order, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *OrderRepository) ConfirmPending(ctx context.Context, date time.Time, now time.Time) ([]string, error) {
	args := m.Called(ctx, date, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *OrderRepository) UnnotifiedConfirmed(ctx context.Context, date time.Time) ([]*domain.Order, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *OrderRepository) MarkNotified(ctx context.Context, orderID string, at time.Time) error {
	args := m.Called(ctx, orderID, at)
	return args.Error(0)
}

type MenusClient struct {
	mock.Mock
}

func (m *MenusClient) ValidateOrder(ctx context.Context, req interfaces.ValidateOrderRequest) (*interfaces.MenuValidation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.MenuValidation), args.Error(1)
}

func (m *MenusClient) DailyMenusRange(ctx context.Context, from, to time.Time) ([]interfaces.DailyMenu, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.DailyMenu), args.Error(1)
}

type UsersClient struct {
	mock.Mock
}

func (m *UsersClient) AssertChildBelongsToParent(ctx context.Context, childID, accessToken string) error {
	args := m.Called(ctx, childID, accessToken)
	return args.Error(0)
}

type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishOrderConfirmed(ctx context.Context, event interfaces.OrderConfirmedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type Sweeper struct {
	mock.Mock
}

func (m *Sweeper) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *Sweeper) SweepForce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type OrderService struct {
	mock.Mock
}

func (m *OrderService) PlaceOrder(ctx context.Context, caller interfaces.Caller, cmd interfaces.PlaceOrderCommand) (*domain.Order, error) {
	args := m.Called(ctx, caller, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderService) CancelOrder(ctx context.Context, caller interfaces.Caller, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, caller, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *OrderService) ListForParent(ctx context.Context, parentID string, q interfaces.ListOrdersQuery) ([]*domain.Order, error) {
	args := m.Called(ctx, parentID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *OrderService) ListToday(ctx context.Context, parentID string) ([]*domain.Order, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

type DefaultsService struct {
	mock.Mock
}

func (m *DefaultsService) PlaceMonthlyDefaults(ctx context.Context, caller interfaces.Caller, cmd interfaces.MonthlyDefaultsCommand) (*interfaces.MonthlyDefaultsResult, error) {
	args := m.Called(ctx, caller, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.MonthlyDefaultsResult), args.Error(1)
}

var (
	_ interfaces.OrderRepository = (*OrderRepository)(nil)
	_ interfaces.OrderService    = (*OrderService)(nil)
	_ interfaces.DefaultsService = (*DefaultsService)(nil)
	_ interfaces.MenusClient     = (*MenusClient)(nil)
	_ interfaces.UsersClient     = (*UsersClient)(nil)
	_ interfaces.EventPublisher  = (*EventPublisher)(nil)
	_ interfaces.SweeperService  = (*Sweeper)(nil)
)
