package domain

import "time"

// Money values are integer minor currency units (cents).

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// MenuItem is the catalog entry the cart validator reads. StockQuantity nil
// means unlimited; when finite it is mutated only by order create/cancel.
type MenuItem struct {
	ID            string     `json:"id"`
	CategoryID    string     `json:"categoryId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	BasePrice     int64      `json:"basePrice"`
	PrepTimeMin   int        `json:"prepTimeMinutes"`
	IsAvailable   bool       `json:"isAvailable"`
	IsVegetarian  bool       `json:"isVegetarian"`
	IsVegan       bool       `json:"isVegan"`
	IsGlutenFree  bool       `json:"isGlutenFree"`
	StockQuantity *int       `json:"stockQuantity"`
	Version       int        `json:"version"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TracksStock reports whether the item has a finite stock ledger entry.
func (m *MenuItem) TracksStock() bool { return m.StockQuantity != nil }

type Order struct {
	ID        string      `json:"id"`
	UserID    *string     `json:"userId"`
	SessionID string      `json:"sessionId"`
	Status    OrderStatus `json:"status"`
	Subtotal  int64       `json:"subtotal"`
	Tax       int64       `json:"tax"`
	Total     int64       `json:"total"`
	Notes     *string     `json:"notes"`
	Items     []OrderItem `json:"items"`
	User      *OrderUser  `json:"user,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// OrderUser is the owner display projection joined from the auth-owned users
// table; the engine never writes it.
type OrderUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderItem carries the price snapshot taken at creation time. UnitPrice and
// TotalPrice never change after commit, regardless of later catalog edits.
type OrderItem struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"orderId"`
	MenuItemID   string    `json:"menuItemId"`
	MenuItemName string    `json:"menuItemName"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unitPrice"`
	TotalPrice   int64     `json:"totalPrice"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`

	// DecrementStock marks lines whose menu item had finite stock at
	// validation time. Not persisted; consumed by the create transaction.
	DecrementStock bool `json:"-"`
}

// StatusChange is one row of the order_status_log append log.
type StatusChange struct {
	ID        int64       `json:"id"`
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
}
