package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

// Service orchestrates placement, cancellation and listing of lunch orders.
// All cross-entity consistency is delegated to the store's unique
// (child_id, order_date) key; the service itself holds no state.
type Service struct {
	repo    interfaces.OrderRepository
	menus   interfaces.MenusClient
	users   interfaces.UsersClient
	sweeper interfaces.SweeperService
	policy  domain.CutoffPolicy
	logger  logger.Logger
	now     func() time.Time
}

func NewService(
	repo interfaces.OrderRepository,
	menus interfaces.MenusClient,
	users interfaces.UsersClient,
	sweeper interfaces.SweeperService,
	policy domain.CutoffPolicy,
	logger logger.Logger,
) *Service {
	return &Service{
		repo:    repo,
		menus:   menus,
		users:   users,
		sweeper: sweeper,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// PlaceOrder validates and upserts one order for (child, date). Re-placing
// before the cutoff overwrites the previous selections; a canceled order is
// revived; a confirmed order is immutable. No event is published here —
// notification happens only at confirmation.
func (s *Service) PlaceOrder(ctx context.Context, caller interfaces.Caller, cmd interfaces.PlaceOrderCommand) (*domain.Order, error) {
	orderDate, err := domain.ParseDateOnly(cmd.OrderDate)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if s.policy.IsLocked(orderDate, s.now()) {
		return nil, domain.NewLockError(orderDate)
	}

	// Ownership is checked with the caller's own credential, never the
	// service account's.
	if err := s.users.AssertChildBelongsToParent(ctx, cmd.ChildID, caller.Token); err != nil {
		return nil, err
	}

	validation, err := s.menus.ValidateOrder(ctx, interfaces.ValidateOrderRequest{
		DailyMenuID: cmd.DailyMenuID,
		OrderDate:   cmd.OrderDate,
		Selections:  cmd.Selections,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByChildAndDate(ctx, cmd.ChildID, orderDate)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		existing = nil
	}

	if existing != nil {
		if existing.ParentID != caller.ID {
			return nil, domain.NewForbiddenError("cannot modify order not owned by you")
		}
		if !existing.Replaceable() {
			return nil, domain.NewValidationError(
				fmt.Sprintf("order for %s is already confirmed and can no longer be changed", cmd.OrderDate))
		}
	}

	order := domain.NewOrder(caller.ID, caller.Email, cmd.ChildID, orderDate,
		validation.MenuID, cmd.Selections, validation.NormalizedSelections)
	if existing != nil {
		order.ID = existing.ID
		order.Selection.OrderID = existing.ID
		order.CreatedAt = existing.CreatedAt
	}

	// The upsert lands on the unique (child_id, order_date) key, so a
	// concurrent duplicate placement degrades into an in-place update
	// instead of surfacing a constraint violation.
	if err := s.repo.Upsert(ctx, order); err != nil {
		s.logger.Error("order_upsert_failed", "Failed to upsert order", "", map[string]interface{}{
			"child_id":   cmd.ChildID,
			"order_date": cmd.OrderDate,
		}, err)
		return nil, err
	}

	s.logger.Debug("order_placed", "Order placed", "", map[string]interface{}{
		"order_id":   order.ID,
		"order_date": cmd.OrderDate,
	})

	return order, nil
}

// CancelOrder moves a pending, unlocked, caller-owned order to CANCELED.
func (s *Service) CancelOrder(ctx context.Context, caller interfaces.Caller, orderID string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.ParentID != caller.ID {
		return nil, domain.NewForbiddenError("cannot cancel order not owned by you")
	}

	now := s.now()
	if s.policy.IsLocked(order.OrderDate, now) {
		return nil, domain.NewLockError(order.OrderDate)
	}

	if order.Status != domain.StatusPending {
		return nil, domain.NewValidationError(
			fmt.Sprintf("only pending orders can be canceled, order is %s", order.Status))
	}

	if err := order.Cancel(now); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Debug("order_canceled", "Order canceled", "", map[string]interface{}{
		"order_id": order.ID,
	})

	return order, nil
}

// ListForParent sweeps first so the caller never sees an order still PENDING
// past its cutoff, then returns the parent's orders sorted by date ascending.
func (s *Service) ListForParent(ctx context.Context, parentID string, q interfaces.ListOrdersQuery) ([]*domain.Order, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListByParent(ctx, parentID, q.From, q.To)
}

// ListToday is ListForParent narrowed to the current calendar date.
func (s *Service) ListToday(ctx context.Context, parentID string) ([]*domain.Order, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}

	today := s.policy.Today(s.now())
	return s.repo.ListByParent(ctx, parentID, &today, &today)
}

var _ interfaces.OrderService = (*Service)(nil)
