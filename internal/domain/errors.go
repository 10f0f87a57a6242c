package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// ValidationError covers malformed input and menu/selection mismatches.
type ValidationError struct {
	Msg     string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, strings.Join(e.Details, "; "))
}

func NewValidationError(msg string, details ...string) *ValidationError {
	return &ValidationError{Msg: msg, Details: details}
}

// ForbiddenError covers ownership and ordering-boundary violations.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func NewForbiddenError(msg string) *ForbiddenError {
	return &ForbiddenError{Msg: msg}
}

// LockError means the cutoff has passed for the target date.
type LockError struct {
	Date time.Time
}

func (e *LockError) Error() string {
	return fmt.Sprintf("orders are locked for %s (past date or today after cutoff)", e.Date.Format("2006-01-02"))
}

func NewLockError(date time.Time) *LockError {
	return &LockError{Date: date}
}

// NotFoundError means the referenced order does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// DependencyError wraps an upstream failure (menu service, user service,
// event broker), including timeouts.
type DependencyError struct {
	Upstream string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Upstream, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func NewDependencyError(upstream string, err error) *DependencyError {
	return &DependencyError{Upstream: upstream, Err: err}
}
