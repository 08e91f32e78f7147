package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One registry per test binary; prometheus collectors cannot be registered
// twice.
var testMetrics = metrics.New()

// fakeCatalog serves catalog reads from a map, mirroring the repository's
// available+non-deleted filter.
type fakeCatalog struct {
	mu    sync.Mutex
	items map[string]*domain.MenuItem
}

func newFakeCatalog(items ...*domain.MenuItem) *fakeCatalog {
	c := &fakeCatalog{items: make(map[string]*domain.MenuItem)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *fakeCatalog) GetAvailableByIDs(_ context.Context, ids []string) (map[string]*domain.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*domain.MenuItem)
	for _, id := range ids {
		if it, ok := c.items[id]; ok && it.IsAvailable && it.DeletedAt == nil {
			copied := *it
			if it.StockQuantity != nil {
				q := *it.StockQuantity
				copied.StockQuantity = &q
			}
			out[id] = &copied
		}
	}
	return out, nil
}

func (c *fakeCatalog) stock(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.items[id].StockQuantity
}

// fakeOrders is an in-memory order store that enforces the same contract as
// the SQL repository: conditional decrements, row-lock style transition
// checks, line-by-line stock restore.
type fakeOrders struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	orders  map[string]*domain.Order
	log     []domain.StatusChange
}

func newFakeOrders(catalog *fakeCatalog) *fakeOrders {
	return &fakeOrders{catalog: catalog, orders: make(map[string]*domain.Order)}
}

func (f *fakeOrders) CreateOrder(_ context.Context, order *domain.Order, changedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog.mu.Lock()
	defer f.catalog.mu.Unlock()

	// Conditional decrements apply sequentially, each seeing the previous
	// one's effect; the first failure restores what was applied, as the
	// transaction rollback would.
	var applied []domain.OrderItem
	for _, it := range order.Items {
		if !it.DecrementStock {
			continue
		}
		item := f.catalog.items[it.MenuItemID]
		if item.StockQuantity == nil || *item.StockQuantity < it.Quantity {
			for _, a := range applied {
				*f.catalog.items[a.MenuItemID].StockQuantity += a.Quantity
			}
			return domain.ErrStockConflict
		}
		*item.StockQuantity -= it.Quantity
		applied = append(applied, it)
	}

	stored := *order
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.orders[order.ID] = &stored
	f.log = append(f.log, domain.StatusChange{OrderID: order.ID, Status: order.Status, ChangedBy: changedBy, ChangedAt: stored.CreatedAt})
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *o
	copied.Items = append([]domain.OrderItem(nil), o.Items...)
	return &copied, nil
}

func (f *fakeOrders) List(_ context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if status == nil || o.Status == *status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListBySession(_ context.Context, sessionID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, next domain.OrderStatus, changedBy string) (domain.OrderStatus, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return "", "", domain.ErrOrderNotFound
	}
	if next == domain.StatusCancelled || !o.Status.CanTransitionTo(next) {
		return "", "", domain.ErrInvalidTransition
	}
	prev := o.Status
	o.Status = next
	o.UpdatedAt = time.Now()
	f.log = append(f.log, domain.StatusChange{OrderID: id, Status: next, ChangedBy: changedBy, ChangedAt: o.UpdatedAt})
	return prev, o.SessionID, nil
}

func (f *fakeOrders) Cancel(_ context.Context, id string, changedBy string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return "", domain.ErrOrderNotFound
	}
	if !o.Status.Cancellable() {
		return "", domain.ErrNotCancellable
	}
	f.catalog.mu.Lock()
	for _, it := range o.Items {
		if item := f.catalog.items[it.MenuItemID]; item.StockQuantity != nil {
			*item.StockQuantity += it.Quantity
		}
	}
	f.catalog.mu.Unlock()
	o.Status = domain.StatusCancelled
	o.UpdatedAt = time.Now()
	f.log = append(f.log, domain.StatusChange{OrderID: id, Status: domain.StatusCancelled, ChangedBy: changedBy, ChangedAt: o.UpdatedAt})
	return o.SessionID, nil
}

func (f *fakeOrders) StatusHistory(_ context.Context, orderID string) ([]domain.StatusChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StatusChange
	for _, c := range f.log {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (p *recordPublisher) Publish(_ context.Context, ev domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordPublisher) last(t *testing.T) domain.OrderEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1]
}

func intp(n int) *int { return &n }

func menuItem(id, name string, price int64, stock *int) *domain.MenuItem {
	return &domain.MenuItem{
		ID:            id,
		CategoryID:    "cat-1",
		Name:          name,
		BasePrice:     price,
		IsAvailable:   true,
		StockQuantity: stock,
		Version:       1,
	}
}

func newService(items ...*domain.MenuItem) (*OrderService, *fakeCatalog, *fakeOrders, *recordPublisher) {
	catalog := newFakeCatalog(items...)
	orders := newFakeOrders(catalog)
	pub := &recordPublisher{}
	svc := New(orders, catalog, pub, testMetrics, logger.New("order-service-test"))
	return svc, catalog, orders, pub
}

func TestValidateCartTotals(t *testing.T) {
	svc, _, _, _ := newService(
		menuItem("item1", "Burger", 100, intp(10)),
		menuItem("item2", "Fries", 50, intp(20)),
	)

	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "item1", Quantity: 2},
		{MenuItemID: "item2", Quantity: 1},
	})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, int64(250), result.Subtotal)
	assert.Equal(t, int64(25), result.Tax)
	assert.Equal(t, int64(275), result.Total)
	assert.Len(t, result.Lines, 2)
}

func TestValidateCartUnknownItem(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, intp(10)))

	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "nope", Quantity: 1},
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "nope")
	assert.Contains(t, result.Errors[0], "not found or unavailable")
	assert.Zero(t, result.Subtotal)
	assert.Zero(t, result.Total)
}

func TestValidateCartUnavailableItem(t *testing.T) {
	it := menuItem("item1", "Burger", 100, intp(10))
	it.IsAvailable = false
	svc, _, _, _ := newService(it)

	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "item1", Quantity: 1},
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "not found or unavailable")
}

func TestValidateCartInsufficientStock(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, intp(5)))

	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "item1", Quantity: 10},
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Insufficient stock for Burger")
	assert.Contains(t, result.Errors[0], "Available: 5")
	assert.Zero(t, result.Subtotal)
}

func TestValidateCartSumsDuplicateLines(t *testing.T) {
	svc, catalog, _, _ := newService(menuItem("item1", "Burger", 100, intp(5)))

	// 3+3 of the same item against stock 5 must fail validation outright
	// rather than pass per-line checks and die on its own decrements.
	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "item1", Quantity: 3},
		{MenuItemID: "item1", Quantity: 3},
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Insufficient stock for Burger")
	assert.Contains(t, result.Errors[0], "Available: 5")
	assert.Equal(t, 5, catalog.stock("item1"))
}

func TestValidateCartUnlimitedStock(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Coffee", 300, nil))

	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "item1", Quantity: 1000},
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(300000), result.Subtotal)
}

func TestValidateCartEmpty(t *testing.T) {
	svc, _, _, _ := newService()
	result, err := svc.ValidateCart(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "at least one item")
}

func TestValidateCartBadQuantity(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, intp(10)))
	result, err := svc.ValidateCart(context.Background(), []domain.CartLine{
		{MenuItemID: "item1", Quantity: 0},
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "Invalid quantity")
}

func TestTaxRoundsHalfUp(t *testing.T) {
	cases := []struct{ subtotal, tax int64 }{
		{250, 25},
		{105, 11}, // 10.5 rounds up
		{104, 10},
		{0, 0},
		{1, 0},
		{5, 1}, // 0.5 rounds up
	}
	for _, c := range cases {
		assert.Equal(t, c.tax, taxFor(c.subtotal), "subtotal=%d", c.subtotal)
	}
}

func TestValidateCartIsIdempotent(t *testing.T) {
	svc, catalog, _, _ := newService(menuItem("item1", "Burger", 100, intp(10)))
	lines := []domain.CartLine{{MenuItemID: "item1", Quantity: 2}}

	first, err := svc.ValidateCart(context.Background(), lines)
	require.NoError(t, err)
	second, err := svc.ValidateCart(context.Background(), lines)
	require.NoError(t, err)

	assert.Equal(t, first.Subtotal, second.Subtotal)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 10, catalog.stock("item1"), "validation must not touch stock")
}

func TestCreateOrder(t *testing.T) {
	svc, catalog, orders, pub := newService(menuItem("item1", "Burger", 100, intp(10)))

	order, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(100), order.Subtotal)
	assert.Equal(t, int64(10), order.Tax)
	assert.Equal(t, int64(110), order.Total)
	assert.Equal(t, 9, catalog.stock("item1"))

	stored, err := orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, int64(100), stored.Items[0].UnitPrice)

	ev := pub.last(t)
	assert.Equal(t, domain.EventOrderCreated, ev.Event)
	assert.Equal(t, order.ID, ev.OrderID)
	assert.Equal(t, "sess-1", ev.SessionID)
}

func TestCreateOrderDuplicateLines(t *testing.T) {
	svc, catalog, orders, _ := newService(menuItem("item1", "Burger", 100, intp(10)))

	// Within stock, duplicate lines stay separate lines and decrement once
	// each.
	order, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items: []domain.CartLine{
			{MenuItemID: "item1", Quantity: 3},
			{MenuItemID: "item1", Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(600), order.Subtotal)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 4, catalog.stock("item1"))

	// Over stock, the cart is rejected before any storage write.
	_, err = svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-2",
		Items: []domain.CartLine{
			{MenuItemID: "item1", Quantity: 3},
			{MenuItemID: "item1", Quantity: 3},
		},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors[0], "Insufficient stock")
	assert.Equal(t, 4, catalog.stock("item1"))
	all, _ := orders.List(context.Background(), nil)
	assert.Len(t, all, 1)
}

func TestCreateOrderStoreDecrementsSequentially(t *testing.T) {
	catalog := newFakeCatalog(menuItem("item1", "Burger", 100, intp(5)))
	orders := newFakeOrders(catalog)

	// Straight to the store: two decrements of 3 against stock 5. The first
	// succeeds, the second sees 2 remaining and aborts, and the abort
	// restores the first. Stock must never go negative.
	order := &domain.Order{ID: "o-dup", SessionID: "sess-1", Status: domain.StatusPending}
	for i := 0; i < 2; i++ {
		order.Items = append(order.Items, domain.OrderItem{
			ID:             fmt.Sprintf("oi-%d", i),
			OrderID:        order.ID,
			MenuItemID:     "item1",
			Quantity:       3,
			DecrementStock: true,
		})
	}
	err := orders.CreateOrder(context.Background(), order, "order-service")
	require.ErrorIs(t, err, domain.ErrStockConflict)
	assert.Equal(t, 5, catalog.stock("item1"))
	all, _ := orders.List(context.Background(), nil)
	assert.Empty(t, all)
}

func TestCreateOrderPriceSnapshot(t *testing.T) {
	item := menuItem("item1", "Burger", 100, intp(10))
	svc, catalog, orders, _ := newService(item)

	order, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 2}},
	})
	require.NoError(t, err)

	// Catalog price changes after the order commits.
	catalog.mu.Lock()
	catalog.items["item1"].BasePrice = 999
	catalog.mu.Unlock()

	stored, err := orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Items[0].UnitPrice)
	assert.Equal(t, int64(200), stored.Items[0].TotalPrice)
}

func TestCreateOrderValidationFailureTouchesNothing(t *testing.T) {
	svc, catalog, orders, pub := newService(menuItem("item1", "Burger", 100, intp(5)))

	_, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 10}},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors[0], "Insufficient stock")
	assert.Equal(t, 5, catalog.stock("item1"))
	all, _ := orders.List(context.Background(), nil)
	assert.Empty(t, all)
	assert.Empty(t, pub.events)
}

func TestCreateOrderMissingSession(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, intp(5)))
	_, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		Items: []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors[0], "Session id")
}

func TestCreateOrderStockConflictSurfaces(t *testing.T) {
	// Stock passes validation but is drained before the storage transaction,
	// as a concurrent order would.
	catalog := newFakeCatalog(menuItem("item1", "Burger", 100, intp(2)))
	orders := newFakeOrders(catalog)
	pub := &recordPublisher{}
	svc := New(&drainBeforeCreate{fakeOrders: orders, itemID: "item1"},
		catalog, pub, testMetrics, logger.New("order-service-test"))

	_, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 2}},
	})
	require.ErrorIs(t, err, domain.ErrStockConflict)
	all, _ := orders.List(context.Background(), nil)
	assert.Empty(t, all)
	assert.Empty(t, pub.events)
}

// drainBeforeCreate empties the item's stock right before delegating, to
// model a racing order that commits first.
type drainBeforeCreate struct {
	*fakeOrders
	itemID string
	once   sync.Once
}

func (d *drainBeforeCreate) CreateOrder(ctx context.Context, order *domain.Order, changedBy string) error {
	d.once.Do(func() {
		d.fakeOrders.catalog.mu.Lock()
		*d.fakeOrders.catalog.items[d.itemID].StockQuantity = 0
		d.fakeOrders.catalog.mu.Unlock()
	})
	return d.fakeOrders.CreateOrder(ctx, order, changedBy)
}

func TestUpdateStatusHappyPath(t *testing.T) {
	svc, _, orders, pub := newService(menuItem("item1", "Burger", 100, intp(10)))

	created, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), created.ID, domain.StatusConfirmed, "op-1")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, domain.StatusPreparing, "op-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, updated.Status)

	ev := pub.last(t)
	assert.Equal(t, domain.EventOrderStatusUpdated, ev.Event)
	assert.Equal(t, domain.StatusPreparing, ev.Status)
	assert.Equal(t, domain.StatusConfirmed, ev.PreviousStatus)

	history, err := orders.StatusHistory(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.StatusPending, history[0].Status)
	assert.Equal(t, domain.StatusPreparing, history[2].Status)
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, intp(10)))

	created, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)

	// Skipping ahead is illegal.
	_, err = svc.UpdateStatus(context.Background(), created.ID, domain.StatusReady, "op-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Cancellation is not reachable through status updates.
	_, err = svc.UpdateStatus(context.Background(), created.ID, domain.StatusCancelled, "op-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Unknown status strings are rejected outright.
	_, err = svc.UpdateStatus(context.Background(), created.ID, domain.OrderStatus("burnt"), "op-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc, _, _, _ := newService()
	_, err := svc.UpdateStatus(context.Background(), "missing", domain.StatusConfirmed, "op-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelRestoresStock(t *testing.T) {
	svc, catalog, _, pub := newService(menuItem("item1", "Burger", 100, intp(10)))

	created, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 8, catalog.stock("item1"))

	require.NoError(t, svc.Cancel(context.Background(), created.ID, "customer"))
	assert.Equal(t, 10, catalog.stock("item1"), "net stock change over create+cancel must be zero")

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	ev := pub.last(t)
	assert.Equal(t, domain.EventOrderCancelled, ev.Event)
	assert.Equal(t, created.ID, ev.OrderID)

	// Cancelling again is rejected and restores nothing further.
	err = svc.Cancel(context.Background(), created.ID, "customer")
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	assert.Equal(t, 10, catalog.stock("item1"))
}

func TestCancelGuards(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, intp(10)))

	assert.ErrorIs(t, svc.Cancel(context.Background(), "missing", "customer"), domain.ErrOrderNotFound)

	created, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), created.ID, domain.StatusConfirmed, "op-1")
	require.NoError(t, err)

	// Confirmed is still cancellable.
	require.NoError(t, svc.Cancel(context.Background(), created.ID, "customer"))

	second, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-2",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)
	for _, s := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusPreparing} {
		_, err = svc.UpdateStatus(context.Background(), second.ID, s, "op-1")
		require.NoError(t, err)
	}
	assert.ErrorIs(t, svc.Cancel(context.Background(), second.ID, "customer"), domain.ErrNotCancellable)
}

func TestConcurrentCreatesNeverOversell(t *testing.T) {
	svc, catalog, orders, _ := newService(menuItem("item1", "Burger", 100, intp(5)))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), nil, domain.CreateOrderRequest{
				SessionID: fmt.Sprintf("sess-%d", n),
				Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, catalog.stock("item1"))
	all, _ := orders.List(context.Background(), nil)
	assert.Len(t, all, 5)
}

func TestListBySessionAndUser(t *testing.T) {
	svc, _, _, _ := newService(menuItem("item1", "Burger", 100, nil))

	uid := "user-1"
	_, err := svc.Create(context.Background(), &uid, domain.CreateOrderRequest{
		SessionID: "sess-1",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), nil, domain.CreateOrderRequest{
		SessionID: "sess-2",
		Items:     []domain.CartLine{{MenuItemID: "item1", Quantity: 1}},
	})
	require.NoError(t, err)

	mine, err := svc.ListByUser(context.Background(), uid)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	guest, err := svc.ListBySession(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Len(t, guest, 1)
	assert.Nil(t, guest[0].UserID)
}
