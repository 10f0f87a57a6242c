package sweeper

import (
	"context"
	"time"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

// Service promotes today's locked-but-still-pending orders to CONFIRMED and
// publishes one order.confirmed event per order. Safe to call arbitrarily
// often: confirmation is a single conditional update, and events are only
// published for rows that update actually transitioned.
type Service struct {
	repo      interfaces.OrderRepository
	publisher interfaces.EventPublisher
	policy    domain.CutoffPolicy
	logger    logger.Logger
	now       func() time.Time
}

func NewService(
	repo interfaces.OrderRepository,
	publisher interfaces.EventPublisher,
	policy domain.CutoffPolicy,
	logger logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.sweep(ctx, false)
}

// SweepForce confirms today's pending orders even before the cutoff.
func (s *Service) SweepForce(ctx context.Context) (int, error) {
	return s.sweep(ctx, true)
}

func (s *Service) sweep(ctx context.Context, force bool) (int, error) {
	now := s.now()
	today := s.policy.Today(now)

	if !force && !s.policy.IsLocked(today, now) {
		return 0, nil
	}

	// Retry events that failed to publish in an earlier run before touching
	// today's pending set.
	s.reconcileUnnotified(ctx, today, now)

	pending, err := s.repo.PendingForDate(ctx, today)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	byID := make(map[string]*domain.Order, len(pending))
	for _, o := range pending {
		byID[o.ID] = o
	}

	// One conditional bulk update. A concurrent sweep's update matches zero
	// rows, so each order is confirmed (and published) exactly once.
	confirmed, err := s.repo.ConfirmPending(ctx, today, now)
	if err != nil {
		return 0, err
	}

	for _, id := range confirmed {
		order, ok := byID[id]
		if !ok {
			// Row went pending between the read and the update; its event
			// will go out through reconciliation on the next run.
			continue
		}
		s.publish(ctx, order, now)
	}

	if len(confirmed) > 0 {
		s.logger.Info("orders_confirmed", "Confirmed pending orders", "", map[string]interface{}{
			"count": len(confirmed),
			"date":  today.Format("2006-01-02"),
		})
	}

	return len(confirmed), nil
}

// publish is best effort per order: the confirmation has already committed,
// so a broker failure is logged and the order stays unnotified for the next
// reconciliation pass instead of rolling anything back.
func (s *Service) publish(ctx context.Context, order *domain.Order, now time.Time) {
	event := interfaces.OrderConfirmedEvent{
		OrderID:   order.ID,
		OrderDate: order.OrderDate.Format("2006-01-02"),
		Child:     interfaces.ChildInfo{ID: order.ChildID},
		Parent:    interfaces.ParentInfo{ID: order.ParentID, Email: order.ParentEmail},
		Menu: interfaces.MenuNames{
			Soup:    order.Selection.OptionName(domain.CategorySoup),
			Main:    order.Selection.OptionName(domain.CategoryMain),
			Dessert: order.Selection.OptionName(domain.CategoryDessert),
			Reserve: order.Selection.OptionName(domain.CategoryReserve),
		},
	}

	if err := s.publisher.PublishOrderConfirmed(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order.confirmed", "", map[string]interface{}{
			"order_id": order.ID,
		}, err)
		return
	}

	if err := s.repo.MarkNotified(ctx, order.ID, now); err != nil {
		s.logger.Error("notify_mark_failed", "Failed to record publish outcome", "", map[string]interface{}{
			"order_id": order.ID,
		}, err)
	}
}

func (s *Service) reconcileUnnotified(ctx context.Context, today, now time.Time) {
	stale, err := s.repo.UnnotifiedConfirmed(ctx, today)
	if err != nil {
		s.logger.Error("reconcile_query_failed", "Failed to load unnotified orders", "", nil, err)
		return
	}

	for _, order := range stale {
		s.publish(ctx, order, now)
	}
}

// Start runs one sweep immediately (explicit startup step, not a hidden
// lifecycle hook) and then re-runs at every cutoff instant until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("startup_sweep_failed", "Startup sweep failed", "", nil, err)
	}

	go s.timerLoop(ctx)
	return nil
}

func (s *Service) timerLoop(ctx context.Context) {
	for {
		next := s.policy.NextCutoff(s.now())
		timer := time.NewTimer(time.Until(next) + time.Second)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.logger.Error("scheduled_sweep_failed", "Scheduled sweep failed", "", nil, err)
			} else {
				s.logger.Info("scheduled_sweep_done", "Scheduled sweep completed", "", map[string]interface{}{
					"confirmed": n,
				})
			}
		}
	}
}

var _ interfaces.SweeperService = (*Service)(nil)
