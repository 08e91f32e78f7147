package domain

import (
	"errors"
	"strings"
)

// Expected business outcomes. These cross the engine boundary as typed
// results; anything else is an opaque infrastructure failure.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStockConflict means a conditional stock decrement affected zero
	// rows: a concurrent order consumed the stock between validation and
	// commit. The whole transaction is rolled back; callers may retry a
	// bounded number of times.
	ErrStockConflict = errors.New("stock changed concurrently")
)

// ValidationError carries the itemized reasons a cart was rejected. It is
// all-or-nothing: one bad line fails the whole cart.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "cart validation failed: " + strings.Join(e.Errors, "; ")
}
