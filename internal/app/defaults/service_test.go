package defaults

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
	"github.com/lunchroom/orders/internal/mocks"
)

var caller = interfaces.Caller{
	ID:    "parent-1",
	Email: "parent@example.com",
	Token: "caller-token",
}

func testService(t *testing.T) (*Service, *mocks.OrderRepository, *mocks.MenusClient, *mocks.UsersClient) {
	t.Helper()

	policy, err := domain.NewCutoffPolicy("09:00:00", time.UTC)
	require.NoError(t, err)

	repo := &mocks.OrderRepository{}
	menus := &mocks.MenusClient{}
	users := &mocks.UsersClient{}

	svc := NewService(repo, menus, users, policy, logger.NewNop())
	// Fixed clock: Jan 18th, after the cutoff, so the 18th itself is locked.
	svc.now = func() time.Time {
		return time.Date(2026, 1, 18, 10, 0, 0, 0, time.UTC)
	}
	return svc, repo, menus, users
}

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func fullMenu(id string, date time.Time) interfaces.DailyMenu {
	return interfaces.DailyMenu{
		ID:   id,
		Date: date,
		Options: []interfaces.MenuOption{
			{ID: "s1", Name: "Ciorba", Category: domain.CategorySoup, IsDefault: true},
			{ID: "s2", Name: "Supa", Category: domain.CategorySoup},
			{ID: "m1", Name: "Sarmale", Category: domain.CategoryMain, IsDefault: true},
			{ID: "d1", Name: "Papanasi", Category: domain.CategoryDessert},
		},
	}
}

func rangeCmd(from, to time.Time) interfaces.MonthlyDefaultsCommand {
	return interfaces.MonthlyDefaultsCommand{ChildID: "child-1", From: from, To: to}
}

func TestPlaceMonthlyDefaults(t *testing.T) {
	svc, repo, menus, users := testService(t)
	from, to := day(19), day(21)

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").Return(nil)
	menus.On("DailyMenusRange", mock.Anything, from, to).Return([]interfaces.DailyMenu{
		fullMenu("menu-19", day(19)),
		fullMenu("menu-20", day(20)),
	}, nil)
	repo.On("OwnersInRange", mock.Anything, "child-1", from, to).Return([]string{"parent-1"}, nil)

	var batch []*domain.Order
	repo.On("UpsertBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batch = args.Get(1).([]*domain.Order)
		}).Return(2, nil)

	res, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(from, to))
	require.NoError(t, err)

	assert.Equal(t, 2, res.CreatedOrUpdated)
	require.Len(t, res.Days, 2)
	assert.Equal(t, interfaces.DayOutcome{Date: "2026-01-19", Result: interfaces.DayWritten}, res.Days[0])
	assert.Equal(t, interfaces.DayOutcome{Date: "2026-01-20", Result: interfaces.DayWritten}, res.Days[1])

	require.Len(t, batch, 2)
	first := batch[0]
	assert.Equal(t, "menu-19", first.MenuID)
	assert.Equal(t, domain.StatusPending, first.Status)
	// The flagged default wins over the first-listed option.
	assert.Equal(t, "Ciorba", first.Selection.OptionName(domain.CategorySoup))
	assert.Equal(t, "Sarmale", first.Selection.OptionName(domain.CategoryMain))
	assert.Equal(t, "Papanasi", first.Selection.OptionName(domain.CategoryDessert))
}

func TestPlaceMonthlyDefaults_SkipsLockedDays(t *testing.T) {
	svc, repo, menus, users := testService(t)
	from, to := day(17), day(19)

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").Return(nil)
	menus.On("DailyMenusRange", mock.Anything, from, to).Return([]interfaces.DailyMenu{
		fullMenu("menu-17", day(17)), // past
		fullMenu("menu-18", day(18)), // today, cutoff passed
		fullMenu("menu-19", day(19)), // open
	}, nil)
	repo.On("OwnersInRange", mock.Anything, "child-1", from, to).Return([]string{}, nil)
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Return(1, nil)

	res, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(from, to))
	require.NoError(t, err)

	require.Len(t, res.Days, 3)
	assert.Equal(t, interfaces.DaySkippedLocked, res.Days[0].Result)
	assert.Equal(t, interfaces.DaySkippedLocked, res.Days[1].Result)
	assert.Equal(t, interfaces.DayWritten, res.Days[2].Result)
	assert.Equal(t, 1, res.CreatedOrUpdated)
}

func TestPlaceMonthlyDefaults_SkipsIncompleteMenus(t *testing.T) {
	svc, repo, menus, users := testService(t)
	from, to := day(19), day(20)

	noDessert := interfaces.DailyMenu{
		ID:   "menu-20",
		Date: day(20),
		Options: []interfaces.MenuOption{
			{ID: "s1", Name: "Ciorba", Category: domain.CategorySoup},
			{ID: "m1", Name: "Sarmale", Category: domain.CategoryMain},
		},
	}

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").Return(nil)
	menus.On("DailyMenusRange", mock.Anything, from, to).Return([]interfaces.DailyMenu{
		fullMenu("menu-19", day(19)),
		noDessert,
	}, nil)
	repo.On("OwnersInRange", mock.Anything, "child-1", from, to).Return([]string{}, nil)
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Return(1, nil)

	res, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(from, to))
	require.NoError(t, err)

	require.Len(t, res.Days, 2)
	assert.Equal(t, interfaces.DayWritten, res.Days[0].Result)
	assert.Equal(t, interfaces.DaySkippedIncomplete, res.Days[1].Result)
}

func TestPlaceMonthlyDefaults_IncludesReserveWhenOffered(t *testing.T) {
	svc, repo, menus, users := testService(t)
	from, to := day(19), day(19)

	withReserve := fullMenu("menu-19", day(19))
	withReserve.Options = append(withReserve.Options,
		interfaces.MenuOption{ID: "r1", Name: "Covrig", Category: domain.CategoryReserve})

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").Return(nil)
	menus.On("DailyMenusRange", mock.Anything, from, to).Return([]interfaces.DailyMenu{withReserve}, nil)
	repo.On("OwnersInRange", mock.Anything, "child-1", from, to).Return([]string{}, nil)

	var batch []*domain.Order
	repo.On("UpsertBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batch = args.Get(1).([]*domain.Order)
		}).Return(1, nil)

	_, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(from, to))
	require.NoError(t, err)

	require.Len(t, batch, 1)
	assert.Equal(t, "Covrig", batch[0].Selection.OptionName(domain.CategoryReserve))
	assert.Len(t, batch[0].Selection.Choices, 4)
}

func TestPlaceMonthlyDefaults_RejectsForeignOrdersInRange(t *testing.T) {
	svc, repo, menus, users := testService(t)
	from, to := day(19), day(21)

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").Return(nil)
	menus.On("DailyMenusRange", mock.Anything, from, to).Return([]interfaces.DailyMenu{
		fullMenu("menu-19", day(19)),
	}, nil)
	repo.On("OwnersInRange", mock.Anything, "child-1", from, to).
		Return([]string{"parent-1", "someone-else"}, nil)

	_, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(from, to))

	var fErr *domain.ForbiddenError
	require.ErrorAs(t, err, &fErr)
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestPlaceMonthlyDefaults_RejectsForeignChild(t *testing.T) {
	svc, repo, menus, users := testService(t)

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").
		Return(domain.NewForbiddenError("child does not belong to this parent"))

	_, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(day(19), day(21)))

	var fErr *domain.ForbiddenError
	require.ErrorAs(t, err, &fErr)
	menus.AssertNotCalled(t, "DailyMenusRange", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestPlaceMonthlyDefaults_RejectsInvertedRange(t *testing.T) {
	svc, _, menus, users := testService(t)

	users.On("AssertChildBelongsToParent", mock.Anything, "child-1", "caller-token").Return(nil)

	_, err := svc.PlaceMonthlyDefaults(context.Background(), caller, rangeCmd(day(21), day(19)))

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	menus.AssertNotCalled(t, "DailyMenusRange", mock.Anything, mock.Anything, mock.Anything)
}

func TestPickDefaults_PrefersFlaggedDefault(t *testing.T) {
	menu := interfaces.DailyMenu{
		ID:   "menu-1",
		Date: day(19),
		Options: []interfaces.MenuOption{
			{ID: "s1", Name: "Supa", Category: domain.CategorySoup},
			{ID: "s2", Name: "Ciorba", Category: domain.CategorySoup, IsDefault: true},
			{ID: "m1", Name: "Sarmale", Category: domain.CategoryMain},
			{ID: "d1", Name: "Papanasi", Category: domain.CategoryDessert},
		},
	}

	choices, snapshot, ok := pickDefaults(menu)
	require.True(t, ok)
	require.Len(t, choices, 3)
	assert.Equal(t, "s2", choices[0].OptionID)
	assert.Equal(t, "Ciorba", snapshot[0].OptionName)
}

func TestPickDefaults_FallsBackToFirstListed(t *testing.T) {
	menu := fullMenu("menu-1", day(19))
	// Dessert has no default flag anywhere: first listed wins.
	choices, _, ok := pickDefaults(menu)
	require.True(t, ok)
	assert.Equal(t, "d1", choices[2].OptionID)
}

func TestPickDefaults_MissingMandatoryCategory(t *testing.T) {
	menu := interfaces.DailyMenu{
		ID:   "menu-1",
		Date: day(19),
		Options: []interfaces.MenuOption{
			{ID: "s1", Name: "Ciorba", Category: domain.CategorySoup},
		},
	}

	_, _, ok := pickDefaults(menu)
	assert.False(t, ok)
}
