package repository

import (
	"context"

	"restaurant-orders/internal/domain"
)

// OrderRepositoryInterface is the order engine's storage contract. Create and
// Cancel are the only two paths allowed to mutate menu item stock, and each
// covers its full read-validate-write sequence with one transaction.
type OrderRepositoryInterface interface {
	// CreateOrder atomically inserts the order, its items and the pending
	// status-log row, and conditionally decrements stock for every item
	// flagged DecrementStock. Returns domain.ErrStockConflict (and commits
	// nothing) if any conditional decrement matches zero rows.
	CreateOrder(ctx context.Context, order *domain.Order, changedBy string) error

	// GetByID loads the order with its items and owner display info.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	List(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)

	// UpdateStatus applies a forward transition under a row lock, enforcing
	// the legality table against the status read inside the transaction.
	// Returns the previous status and the order's session id for event
	// routing.
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, changedBy string) (prev domain.OrderStatus, sessionID string, err error)

	// Cancel restores stock line by line and marks the order cancelled,
	// all in one transaction. Returns the order's session id.
	Cancel(ctx context.Context, id string, changedBy string) (string, error)

	// StatusHistory returns the append-log of transitions, oldest first.
	StatusHistory(ctx context.Context, orderID string) ([]domain.StatusChange, error)
}
