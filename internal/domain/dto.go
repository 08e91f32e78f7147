package domain

// CartLine is one requested (menu item, quantity) pair.
type CartLine struct {
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Notes      *string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	SessionID string     `json:"sessionId"`
	Items     []CartLine `json:"items"`
	Notes     *string    `json:"notes,omitempty"`
}

type ValidateCartRequest struct {
	Items []CartLine `json:"items"`
}

// ValidatedLine is a cart line that resolved against the live catalog, with
// the price snapshot that will be written into the order item.
type ValidatedLine struct {
	MenuItem   *MenuItem
	Quantity   int
	UnitPrice  int64
	TotalPrice int64
	Notes      *string
}

// ValidationResult is the outcome of validating a whole cart. On failure the
// totals are zeroed and Lines is empty.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Lines    []ValidatedLine
	Subtotal int64
	Tax      int64
	Total    int64
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status"`
}

type CreateMenuItemRequest struct {
	CategoryID    string  `json:"categoryId"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	ImageURL      *string `json:"imageUrl,omitempty"`
	BasePrice     int64   `json:"basePrice"`
	PrepTimeMin   int     `json:"prepTimeMinutes"`
	IsAvailable   *bool   `json:"isAvailable,omitempty"`
	IsVegetarian  bool    `json:"isVegetarian"`
	IsVegan       bool    `json:"isVegan"`
	IsGlutenFree  bool    `json:"isGlutenFree"`
	StockQuantity *int    `json:"stockQuantity"`
}

// UpdateMenuItemRequest uses pointers so absent fields are left untouched.
// Stock quantity is deliberately absent: the ledger moves only through the
// order engine.
type UpdateMenuItemRequest struct {
	CategoryID   *string `json:"categoryId,omitempty"`
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
	BasePrice    *int64  `json:"basePrice,omitempty"`
	PrepTimeMin  *int    `json:"prepTimeMinutes,omitempty"`
	IsAvailable  *bool   `json:"isAvailable,omitempty"`
	IsVegetarian *bool   `json:"isVegetarian,omitempty"`
	IsVegan      *bool   `json:"isVegan,omitempty"`
	IsGlutenFree *bool   `json:"isGlutenFree,omitempty"`
}

type MenuFilter struct {
	CategoryID   string
	Search       string
	IsVegetarian bool
	IsVegan      bool
	IsGlutenFree bool
	MinPrice     *int64
	MaxPrice     *int64
	Available    *bool
}
