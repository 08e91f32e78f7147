package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema idempotently. The users table is a read-only
// projection owned by the auth service; it is created here only so joins and
// local development work without that service.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS menu_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			category_id UUID NOT NULL REFERENCES categories(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT,
			base_price BIGINT NOT NULL,
			prep_time_minutes INTEGER NOT NULL DEFAULT 15,
			is_available BOOLEAN NOT NULL DEFAULT true,
			is_vegetarian BOOLEAN NOT NULL DEFAULT false,
			is_vegan BOOLEAN NOT NULL DEFAULT false,
			is_gluten_free BOOLEAN NOT NULL DEFAULT false,
			stock_quantity INTEGER,
			version INTEGER NOT NULL DEFAULT 1,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT menu_items_stock_non_negative
				CHECK (stock_quantity IS NULL OR stock_quantity >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS menu_items_category_id_idx ON menu_items(category_id)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			session_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			subtotal BIGINT NOT NULL,
			tax BIGINT NOT NULL,
			total BIGINT NOT NULL,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders(user_id)`,
		`CREATE INDEX IF NOT EXISTS orders_session_id_idx ON orders(session_id)`,
		`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders(status)`,

		`CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			menu_item_id UUID NOT NULL REFERENCES menu_items(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price BIGINT NOT NULL,
			total_price BIGINT NOT NULL,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS order_items_order_id_idx ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS order_items_menu_item_id_idx ON order_items(menu_item_id)`,

		`CREATE TABLE IF NOT EXISTS order_status_log (
			id BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			changed_by TEXT NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS order_status_log_order_id_idx ON order_status_log(order_id)`,
	}

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}
