package interfaces

import (
	"context"
	"time"

	"github.com/lunchroom/orders/internal/domain"
)

// Интерфейсы внешних сервисов (Adapter/HTTPClient)

type ValidateOrderRequest struct {
	DailyMenuID string          `json:"dailyMenuId"`
	OrderDate   string          `json:"orderDate"`
	Selections  []domain.Choice `json:"selections"`
}

// MenuValidation is the menu service's answer: the canonical menu id plus the
// selections normalized with their display names.
type MenuValidation struct {
	OK                   bool                   `json:"ok"`
	MenuID               string                 `json:"menuId"`
	Date                 string                 `json:"date"`
	NormalizedSelections []domain.SnapshotEntry `json:"normalizedSelections"`
	Errors               []string               `json:"errors"`
}

type MenuOption struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  domain.Category `json:"category"`
	IsDefault bool            `json:"isDefault"`
}

type DailyMenu struct {
	ID      string       `json:"id"`
	Date    time.Time    `json:"date"`
	Options []MenuOption `json:"options"`
}

type MenusClient interface {
	// ValidateOrder is a synchronous pass-through: no caching, no retries.
	ValidateOrder(ctx context.Context, req ValidateOrderRequest) (*MenuValidation, error)
	DailyMenusRange(ctx context.Context, from, to time.Time) ([]DailyMenu, error)
}

type UsersClient interface {
	// AssertChildBelongsToParent authenticates with the caller's own token;
	// any rejection or transport failure is a ForbiddenError.
	AssertChildBelongsToParent(ctx context.Context, childID, accessToken string) error
}

// TokenSource yields a service credential for service-to-service calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
