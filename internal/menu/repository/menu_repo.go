package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant-orders/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MenuRepositoryInterface is the catalog store. The cart validator reads it;
// menu mutations never touch stock_quantity; that column belongs to the
// order engine.
type MenuRepositoryInterface interface {
	// GetAvailableByIDs resolves ids among available, non-deleted items.
	// Missing ids are simply absent from the result.
	GetAvailableByIDs(ctx context.Context, ids []string) (map[string]*domain.MenuItem, error)
	List(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error)
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
	Create(ctx context.Context, item *domain.MenuItem) error
	Update(ctx context.Context, id string, req domain.UpdateMenuItemRequest) (*domain.MenuItem, error)
	SoftDelete(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type MenuRepository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

const menuColumns = `id, category_id, name, description, image_url, base_price, prep_time_minutes,
	is_available, is_vegetarian, is_vegan, is_gluten_free, stock_quantity, version, deleted_at, created_at, updated_at`

func scanMenuItem(row pgx.Row) (*domain.MenuItem, error) {
	var m domain.MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.ImageURL, &m.BasePrice, &m.PrepTimeMin,
		&m.IsAvailable, &m.IsVegetarian, &m.IsVegan, &m.IsGlutenFree, &m.StockQuantity, &m.Version,
		&m.DeletedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MenuRepository) GetAvailableByIDs(ctx context.Context, ids []string) (map[string]*domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+menuColumns+`
		FROM menu_items
		WHERE id = ANY($1) AND is_available = true AND deleted_at IS NULL
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	defer rows.Close()

	items := make(map[string]*domain.MenuItem, len(ids))
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items[m.ID] = m
	}
	return items, rows.Err()
}

func (r *MenuRepository) List(ctx context.Context, f domain.MenuFilter) ([]domain.MenuItem, error) {
	conds := []string{"deleted_at IS NULL"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategoryID != "" {
		conds = append(conds, "category_id = "+arg(f.CategoryID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if f.IsVegetarian {
		conds = append(conds, "is_vegetarian = true")
	}
	if f.IsVegan {
		conds = append(conds, "is_vegan = true")
	}
	if f.IsGlutenFree {
		conds = append(conds, "is_gluten_free = true")
	}
	if f.MinPrice != nil {
		conds = append(conds, "base_price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "base_price <= "+arg(*f.MaxPrice))
	}
	if f.Available != nil {
		conds = append(conds, "is_available = "+arg(*f.Available))
	}

	query := `SELECT ` + menuColumns + ` FROM menu_items WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

func (r *MenuRepository) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.pool.QueryRow(ctx, `
		SELECT `+menuColumns+` FROM menu_items WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMenuItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select menu item: %w", err)
	}
	return m, nil
}

func (r *MenuRepository) Create(ctx context.Context, item *domain.MenuItem) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_items (category_id, name, description, image_url, base_price, prep_time_minutes,
			is_available, is_vegetarian, is_vegan, is_gluten_free, stock_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at
	`, item.CategoryID, item.Name, item.Description, item.ImageURL, item.BasePrice, item.PrepTimeMin,
		item.IsAvailable, item.IsVegetarian, item.IsVegan, item.IsGlutenFree, item.StockQuantity,
	).Scan(&item.ID, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

// Update patches the provided fields. The version counter bumps only when the
// price actually changes, as an optimistic-concurrency hint for catalog
// editors. All right-hand references read the pre-update row.
func (r *MenuRepository) Update(ctx context.Context, id string, req domain.UpdateMenuItemRequest) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.pool.QueryRow(ctx, `
		UPDATE menu_items SET
			category_id = COALESCE($2, category_id),
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			image_url = COALESCE($5, image_url),
			base_price = COALESCE($6, base_price),
			prep_time_minutes = COALESCE($7, prep_time_minutes),
			is_available = COALESCE($8, is_available),
			is_vegetarian = COALESCE($9, is_vegetarian),
			is_vegan = COALESCE($10, is_vegan),
			is_gluten_free = COALESCE($11, is_gluten_free),
			version = version + CASE WHEN $6::bigint IS NOT NULL AND $6::bigint <> base_price THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+menuColumns+`
	`, id, req.CategoryID, req.Name, req.Description, req.ImageURL, req.BasePrice, req.PrepTimeMin,
		req.IsAvailable, req.IsVegetarian, req.IsVegan, req.IsGlutenFree))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMenuItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	return m, nil
}

// SoftDelete marks the item deleted and unavailable. Historical order items
// keep referencing it; the row is never removed.
func (r *MenuRepository) SoftDelete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE menu_items
		SET deleted_at = NOW(), is_available = false, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete menu item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

func (r *MenuRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, sort_order, created_at FROM categories ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
