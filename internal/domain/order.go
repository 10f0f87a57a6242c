package domain

import (
	"time"

	"github.com/google/uuid"
)

// SelectionSchemaVersion is stored alongside every choices/snapshot document
// so the stored shape can evolve without guessing.
const SelectionSchemaVersion = 1

// Order is one row per (child, calendar date). Dates are date-only values
// normalized to midnight UTC.
type Order struct {
	ID          string
	ChildID     string
	ParentID    string
	ParentEmail string
	OrderDate   time.Time
	MenuDate    time.Time
	MenuID      string
	Status      Status
	CanceledAt  *time.Time
	NotifiedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Selection   *Selection
}

// Choice is a raw category -> option selection as submitted by the caller.
type Choice struct {
	Category Category `json:"category"`
	OptionID string   `json:"option_id"`
}

// SnapshotEntry preserves the option name as it was at submission time, so
// historical orders stay readable even if the daily menu is edited later.
type SnapshotEntry struct {
	Category   Category `json:"category"`
	OptionID   string   `json:"option_id"`
	OptionName string   `json:"option_name"`
}

// Selection is 1:1 with Order.
type Selection struct {
	OrderID  string
	Version  int
	Choices  []Choice
	Snapshot []SnapshotEntry
}

// OptionName returns the snapshotted name for a category, or "" when the
// category was not part of the order.
func (s *Selection) OptionName(cat Category) string {
	if s == nil {
		return ""
	}
	for _, e := range s.Snapshot {
		if e.Category == cat {
			return e.OptionName
		}
	}
	return ""
}

// NewOrder creates a PENDING order with its selection attached.
func NewOrder(parentID, parentEmail, childID string, orderDate time.Time, menuID string, choices []Choice, snapshot []SnapshotEntry) *Order {
	now := time.Now().UTC()
	id := uuid.NewString()

	return &Order{
		ID:          id,
		ChildID:     childID,
		ParentID:    parentID,
		ParentEmail: parentEmail,
		OrderDate:   DateOnly(orderDate),
		MenuDate:    DateOnly(orderDate),
		MenuID:      menuID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Selection: &Selection{
			OrderID:  id,
			Version:  SelectionSchemaVersion,
			Choices:  choices,
			Snapshot: snapshot,
		},
	}
}

// CanTransitionTo checks the order lifecycle: PENDING may confirm or cancel,
// CONFIRMED is terminal, CANCELED may only be revived back to PENDING.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	validTransitions := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCanceled},
		StatusConfirmed: {},
		StatusCanceled:  {StatusPending},
	}

	allowed := validTransitions[o.Status]
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// Replaceable reports whether the order may be overwritten by a new placement.
// A canceled order is revivable; a confirmed one is immutable.
func (o *Order) Replaceable() bool {
	return o.Status == StatusPending || o.CanTransitionTo(StatusPending)
}

// Cancel moves a pending order to CANCELED.
func (o *Order) Cancel(now time.Time) error {
	if !o.CanTransitionTo(StatusCanceled) {
		return ErrInvalidStatusTransition
	}
	o.Status = StatusCanceled
	o.CanceledAt = &now
	o.UpdatedAt = now
	return nil
}
