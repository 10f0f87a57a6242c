package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

type OrderHandler struct {
	orders   interfaces.OrderService
	defaults interfaces.DefaultsService
	logger   logger.Logger
}

func NewOrderHandler(orders interfaces.OrderService, defaults interfaces.DefaultsService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		defaults: defaults,
		logger:   logger,
	}
}

type SelectionRequest struct {
	Category string `json:"category"`
	OptionID string `json:"option_id"`
}

type PlaceOrderRequest struct {
	ChildID     string             `json:"child_id"`
	OrderDate   string             `json:"order_date"`
	DailyMenuID string             `json:"daily_menu_id"`
	Selections  []SelectionRequest `json:"selections"`
}

type MonthlyDefaultsRequest struct {
	ChildID string `json:"child_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type SelectionResponse struct {
	Version  int                    `json:"version"`
	Choices  []domain.Choice        `json:"choices"`
	Snapshot []domain.SnapshotEntry `json:"snapshot"`
}

type OrderResponse struct {
	ID          string             `json:"id"`
	ChildID     string             `json:"child_id"`
	ParentID    string             `json:"parent_id"`
	ParentEmail string             `json:"parent_email"`
	OrderDate   string             `json:"order_date"`
	MenuDate    string             `json:"menu_date"`
	MenuID      string             `json:"menu_id"`
	Status      string             `json:"status"`
	CanceledAt  *time.Time         `json:"canceled_at,omitempty"`
	Selection   *SelectionResponse `json:"selection,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// HandleOrders dispatches /orders: POST places an order, GET lists the
// caller's orders.
func (h *OrderHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.placeOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed, nil)
	}
}

// HandleOrderByID dispatches /orders/{id}: DELETE cancels the order.
func (h *OrderHandler) HandleOrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed, nil)
		return
	}

	orderID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/orders/"), "/")
	if len(orderID) != 36 {
		h.respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{
			{Field: "order_id", Message: "order id must be a 36-character uuid"},
		})
		return
	}

	caller, ok := CallerFromContext(r.Context())
	if !ok {
		h.respondError(w, "Missing user context", http.StatusUnauthorized, nil)
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), caller, orderID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		h.respondError(w, "Missing user context", http.StatusUnauthorized, nil)
		return
	}

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if validationErrors := validatePlaceOrderRequest(req); len(validationErrors) > 0 {
		h.logger.Debug("validation_failed", "Place order validation failed", "", map[string]interface{}{
			"errors": validationErrors,
		})
		h.respondError(w, "Validation failed", http.StatusBadRequest, validationErrors)
		return
	}

	cmd := interfaces.PlaceOrderCommand{
		ChildID:     req.ChildID,
		OrderDate:   req.OrderDate,
		DailyMenuID: req.DailyMenuID,
		Selections:  toChoices(req.Selections),
	}

	order, err := h.orders.PlaceOrder(r.Context(), caller, cmd)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		h.respondError(w, "Missing user context", http.StatusUnauthorized, nil)
		return
	}

	var q interfaces.ListOrdersQuery
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := domain.ParseDateOnly(raw)
		if err != nil {
			h.respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{
				{Field: "from", Message: "must be a YYYY-MM-DD date"},
			})
			return
		}
		q.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := domain.ParseDateOnly(raw)
		if err != nil {
			h.respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{
				{Field: "to", Message: "must be a YYYY-MM-DD date"},
			})
			return
		}
		q.To = &to
	}

	orders, err := h.orders.ListForParent(r.Context(), caller.ID, q)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// HandleToday serves GET /orders/today.
func (h *OrderHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed, nil)
		return
	}

	caller, ok := CallerFromContext(r.Context())
	if !ok {
		h.respondError(w, "Missing user context", http.StatusUnauthorized, nil)
		return
	}

	orders, err := h.orders.ListToday(r.Context(), caller.ID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// HandleMonthlyDefaults serves POST /orders/monthly-defaults.
func (h *OrderHandler) HandleMonthlyDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed, nil)
		return
	}

	caller, ok := CallerFromContext(r.Context())
	if !ok {
		h.respondError(w, "Missing user context", http.StatusUnauthorized, nil)
		return
	}

	var req MonthlyDefaultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	var validationErrors []ValidationError
	if len(req.ChildID) != 36 {
		validationErrors = append(validationErrors, ValidationError{
			Field: "child_id", Message: "child id must be a 36-character uuid",
		})
	}
	from, err := domain.ParseDateOnly(req.From)
	if err != nil {
		validationErrors = append(validationErrors, ValidationError{
			Field: "from", Message: "must be a YYYY-MM-DD date",
		})
	}
	to, err := domain.ParseDateOnly(req.To)
	if err != nil {
		validationErrors = append(validationErrors, ValidationError{
			Field: "to", Message: "must be a YYYY-MM-DD date",
		})
	}
	if len(validationErrors) > 0 {
		h.respondError(w, "Validation failed", http.StatusBadRequest, validationErrors)
		return
	}

	result, err := h.defaults.PlaceMonthlyDefaults(r.Context(), caller, interfaces.MonthlyDefaultsCommand{
		ChildID: req.ChildID,
		From:    from,
		To:      to,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func validatePlaceOrderRequest(req PlaceOrderRequest) []ValidationError {
	var errs []ValidationError

	if len(req.ChildID) != 36 {
		errs = append(errs, ValidationError{
			Field:   "child_id",
			Message: "child id must be a 36-character uuid",
		})
	}

	if _, err := domain.ParseDateOnly(req.OrderDate); err != nil {
		errs = append(errs, ValidationError{
			Field:   "order_date",
			Message: "must be a YYYY-MM-DD date",
		})
	}

	if len(req.DailyMenuID) != 36 {
		errs = append(errs, ValidationError{
			Field:   "daily_menu_id",
			Message: "daily menu id must be a 36-character uuid",
		})
	}

	if len(req.Selections) < 1 {
		errs = append(errs, ValidationError{
			Field:   "selections",
			Message: "order must contain at least 1 selection",
		})
	}

	seen := make(map[string]bool)
	for i, sel := range req.Selections {
		prefix := fmt.Sprintf("selections[%d]", i)

		if !domain.Category(sel.Category).Valid() {
			errs = append(errs, ValidationError{
				Field:   prefix + ".category",
				Message: "category must be one of: SOUP, MAIN, DESSERT, RESERVE",
			})
		} else if seen[sel.Category] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".category",
				Message: "duplicate category",
			})
		}
		seen[sel.Category] = true

		if len(sel.OptionID) != 36 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".option_id",
				Message: "option id must be a 36-character uuid",
			})
		}
	}

	return errs
}

func toChoices(selections []SelectionRequest) []domain.Choice {
	choices := make([]domain.Choice, len(selections))
	for i, sel := range selections {
		choices[i] = domain.Choice{
			Category: domain.Category(sel.Category),
			OptionID: sel.OptionID,
		}
	}
	return choices
}

func toOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:          order.ID,
		ChildID:     order.ChildID,
		ParentID:    order.ParentID,
		ParentEmail: order.ParentEmail,
		OrderDate:   order.OrderDate.Format("2006-01-02"),
		MenuDate:    order.MenuDate.Format("2006-01-02"),
		MenuID:      order.MenuID,
		Status:      string(order.Status),
		CanceledAt:  order.CanceledAt,
	}
	if order.Selection != nil {
		resp.Selection = &SelectionResponse{
			Version:  order.Selection.Version,
			Choices:  order.Selection.Choices,
			Snapshot: order.Selection.Snapshot,
		}
	}
	return resp
}

func toOrderResponses(orders []*domain.Order) []OrderResponse {
	resp := make([]OrderResponse, len(orders))
	for i, order := range orders {
		resp[i] = toOrderResponse(order)
	}
	return resp
}

// respondDomainError maps the typed error taxonomy onto HTTP status codes; no
// raw storage or transport error ever leaks to the caller.
func (h *OrderHandler) respondDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		forbiddenErr  *domain.ForbiddenError
		lockErr       *domain.LockError
		notFoundErr   *domain.NotFoundError
		dependencyErr *domain.DependencyError
	)

	switch {
	case errors.As(err, &validationErr):
		h.respondError(w, validationErr.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &lockErr):
		h.respondError(w, lockErr.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &forbiddenErr):
		h.respondError(w, forbiddenErr.Error(), http.StatusForbidden, nil)
	case errors.As(err, &notFoundErr):
		h.respondError(w, notFoundErr.Error(), http.StatusNotFound, nil)
	case errors.As(err, &dependencyErr):
		h.logger.Error("dependency_failed", "Upstream dependency failed", "", nil, err)
		h.respondError(w, fmt.Sprintf("%s is unavailable", dependencyErr.Upstream), http.StatusBadGateway, nil)
	default:
		h.logger.Error("request_failed", "Unhandled error", "", nil, err)
		h.respondError(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func (h *OrderHandler) respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (h *OrderHandler) respondError(w http.ResponseWriter, message string, statusCode int, validationErrors []ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:  message,
		Errors: validationErrors,
	})
}
