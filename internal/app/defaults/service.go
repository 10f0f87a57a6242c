package defaults

import (
	"context"
	"sort"
	"time"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

// Service expands a date range into daily default orders. The whole batch is
// written in one transaction: the caller never sees a half-applied month.
type Service struct {
	repo   interfaces.OrderRepository
	menus  interfaces.MenusClient
	users  interfaces.UsersClient
	policy domain.CutoffPolicy
	logger logger.Logger
	now    func() time.Time
}

func NewService(
	repo interfaces.OrderRepository,
	menus interfaces.MenusClient,
	users interfaces.UsersClient,
	policy domain.CutoffPolicy,
	logger logger.Logger,
) *Service {
	return &Service{
		repo:   repo,
		menus:  menus,
		users:  users,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) PlaceMonthlyDefaults(ctx context.Context, caller interfaces.Caller, cmd interfaces.MonthlyDefaultsCommand) (*interfaces.MonthlyDefaultsResult, error) {
	// One ownership check covers the whole range.
	if err := s.users.AssertChildBelongsToParent(ctx, cmd.ChildID, caller.Token); err != nil {
		return nil, err
	}

	from := domain.DateOnly(cmd.From)
	to := domain.DateOnly(cmd.To)
	if to.Before(from) {
		return nil, domain.NewValidationError("range end precedes range start")
	}

	menus, err := s.menus.DailyMenusRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	// Foreign ownership anywhere in the range rejects the whole operation
	// before any mutation.
	owners, err := s.repo.OwnersInRange(ctx, cmd.ChildID, from, to)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		if owner != caller.ID {
			return nil, domain.NewForbiddenError("some orders in this interval are not owned by you")
		}
	}

	sort.Slice(menus, func(i, j int) bool { return menus[i].Date.Before(menus[j].Date) })

	now := s.now()
	var (
		orders []*domain.Order
		days   []interfaces.DayOutcome
	)

	for _, menu := range menus {
		day := domain.DateOnly(menu.Date)
		dayStr := day.Format("2006-01-02")

		if s.policy.IsLocked(day, now) {
			days = append(days, interfaces.DayOutcome{Date: dayStr, Result: interfaces.DaySkippedLocked})
			continue
		}

		choices, snapshot, ok := pickDefaults(menu)
		if !ok {
			days = append(days, interfaces.DayOutcome{Date: dayStr, Result: interfaces.DaySkippedIncomplete})
			continue
		}

		orders = append(orders, domain.NewOrder(caller.ID, caller.Email, cmd.ChildID, day, menu.ID, choices, snapshot))
		days = append(days, interfaces.DayOutcome{Date: dayStr, Result: interfaces.DayWritten})
	}

	written, err := s.repo.UpsertBatch(ctx, orders)
	if err != nil {
		return nil, err
	}

	s.logger.Info("defaults_placed", "Monthly defaults placed", "", map[string]interface{}{
		"child_id": cmd.ChildID,
		"from":     from.Format("2006-01-02"),
		"to":       to.Format("2006-01-02"),
		"written":  written,
	})

	return &interfaces.MonthlyDefaultsResult{CreatedOrUpdated: written, Days: days}, nil
}

// pickDefaults chooses the option flagged default per category, falling back
// to the first listed option. Returns ok=false when a mandatory category has
// no option at all.
func pickDefaults(menu interfaces.DailyMenu) ([]domain.Choice, []domain.SnapshotEntry, bool) {
	byCategory := make(map[domain.Category]*interfaces.MenuOption)
	for i := range menu.Options {
		opt := &menu.Options[i]
		current, seen := byCategory[opt.Category]
		if !seen || (opt.IsDefault && !current.IsDefault) {
			byCategory[opt.Category] = opt
		}
	}

	for _, cat := range domain.MandatoryCategories {
		if byCategory[cat] == nil {
			return nil, nil, false
		}
	}

	categories := []domain.Category{domain.CategorySoup, domain.CategoryMain, domain.CategoryDessert}
	if byCategory[domain.CategoryReserve] != nil {
		categories = append(categories, domain.CategoryReserve)
	}

	var (
		choices  []domain.Choice
		snapshot []domain.SnapshotEntry
	)
	for _, cat := range categories {
		opt := byCategory[cat]
		choices = append(choices, domain.Choice{Category: cat, OptionID: opt.ID})
		snapshot = append(snapshot, domain.SnapshotEntry{Category: cat, OptionID: opt.ID, OptionName: opt.Name})
	}

	return choices, snapshot, true
}

var _ interfaces.DefaultsService = (*Service)(nil)
