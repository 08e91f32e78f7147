package repository

import (
	"context"
	"errors"
	"fmt"

	"restaurant-orders/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order, changedBy string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, session_id, status, subtotal, tax, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, order.ID, order.UserID, order.SessionID, order.Status, order.Subtotal, order.Tax, order.Total, order.Notes)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, total_price, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`, item.ID, order.ID, item.MenuItemID, item.Quantity, item.UnitPrice, item.TotalPrice, item.Notes)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.MenuItemID, err)
		}

		if !item.DecrementStock {
			continue
		}
		// Conditional decrement: zero rows affected means a concurrent
		// order drained the stock after validation. Abort everything.
		ct, err := tx.Exec(ctx, `
			UPDATE menu_items
			SET stock_quantity = stock_quantity - $2, updated_at = NOW()
			WHERE id = $1 AND stock_quantity >= $2
		`, item.MenuItemID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.MenuItemID, err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrStockConflict
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, NOW())
	`, order.ID, order.Status, changedBy)
	if err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o     domain.Order
		name  *string
		email *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.user_id, o.session_id, o.status, o.subtotal, o.tax, o.total, o.notes,
		       o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.SessionID, &o.Status, &o.Subtotal, &o.Tax, &o.Total, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &name, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	if name != nil {
		o.User = &domain.OrderUser{Name: *name, Email: *email}
	}

	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	query := `
		SELECT o.id, o.user_id, o.session_id, o.status, o.subtotal, o.tax, o.total, o.notes,
		       o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id`
	args := []any{}
	if status != nil {
		query += ` WHERE o.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY o.created_at DESC`
	return r.listOrders(ctx, query, args...)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT o.id, o.user_id, o.session_id, o.status, o.subtotal, o.tax, o.total, o.notes,
		       o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT o.id, o.user_id, o.session_id, o.status, o.subtotal, o.tax, o.total, o.notes,
		       o.created_at, o.updated_at, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.session_id = $1
		ORDER BY o.created_at DESC
	`, sessionID)
}

func (r *OrderRepository) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		var (
			o     domain.Order
			name  *string
			email *string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.SessionID, &o.Status, &o.Subtotal, &o.Tax, &o.Total, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt, &name, &email); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if name != nil {
			o.User = &domain.OrderUser{Name: *name, Email: *email}
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.menu_item_id, m.name, i.quantity, i.unit_price, i.total_price, i.notes, i.created_at
		FROM order_items i
		JOIN menu_items m ON m.id = i.menu_item_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.created_at
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Notes, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, changedBy string) (domain.OrderStatus, string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var prev domain.OrderStatus
	var sessionID string
	err = tx.QueryRow(ctx, `
		SELECT status, session_id FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&prev, &sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", domain.ErrOrderNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("lock order: %w", err)
	}

	// Cancellation must go through Cancel so that stock is restored; the
	// transition table handles everything else.
	if next == domain.StatusCancelled || !prev.CanTransitionTo(next) {
		return "", "", domain.ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, next); err != nil {
		return "", "", fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, NOW())
	`, id, next, changedBy); err != nil {
		return "", "", fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", fmt.Errorf("commit transaction: %w", err)
	}
	return prev, sessionID, nil
}

func (r *OrderRepository) Cancel(ctx context.Context, id string, changedBy string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status domain.OrderStatus
	var sessionID string
	err = tx.QueryRow(ctx, `
		SELECT status, session_id FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&status, &sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock order: %w", err)
	}
	if !status.Cancellable() {
		return "", domain.ErrNotCancellable
	}

	// Restore stock line by line; items whose menu item is unlimited are
	// skipped by the IS NOT NULL guard.
	rows, err := tx.Query(ctx, `
		SELECT menu_item_id, quantity FROM order_items WHERE order_id = $1
	`, id)
	if err != nil {
		return "", fmt.Errorf("select order items: %w", err)
	}
	type line struct {
		menuItemID string
		quantity   int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.menuItemID, &l.quantity); err != nil {
			rows.Close()
			return "", fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			UPDATE menu_items
			SET stock_quantity = stock_quantity + $2, updated_at = NOW()
			WHERE id = $1 AND stock_quantity IS NOT NULL
		`, l.menuItemID, l.quantity); err != nil {
			return "", fmt.Errorf("restore stock for %s: %w", l.menuItemID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, domain.StatusCancelled); err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, NOW())
	`, id, domain.StatusCancelled, changedBy); err != nil {
		return "", fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return sessionID, nil
}

func (r *OrderRepository) StatusHistory(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select status log: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.Status, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		history = append(history, c)
	}
	return history, rows.Err()
}
