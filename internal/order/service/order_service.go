package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/metrics"
	"restaurant-orders/internal/order/repository"

	"github.com/google/uuid"
)

// EventPublisher delivers lifecycle events to the broker. Delivery is
// fire-and-forget best-effort; a failed publish never fails the operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.OrderEvent) error
}

// Catalog is the read-only slice of the menu store the validator needs.
type Catalog interface {
	GetAvailableByIDs(ctx context.Context, ids []string) (map[string]*domain.MenuItem, error)
}

type OrderServiceInterface interface {
	ValidateCart(ctx context.Context, lines []domain.CartLine) (domain.ValidationResult, error)
	Create(ctx context.Context, userID *string, req domain.CreateOrderRequest) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, actor string) (*domain.Order, error)
	Cancel(ctx context.Context, id string, actor string) error
	StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error)
}

type OrderService struct {
	orders  repository.OrderRepositoryInterface
	menu    Catalog
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func New(orders repository.OrderRepositoryInterface, menu Catalog,
	events EventPublisher, m *metrics.Metrics, lg *logger.Logger) *OrderService {
	return &OrderService{orders: orders, menu: menu, events: events, metrics: m, logger: lg}
}

// taxFor computes the 10% tax on an integer-cent subtotal, rounded half-up.
func taxFor(subtotal int64) int64 { return (subtotal + 5) / 10 }

// ValidateCart checks every line against the live catalog and prices the
// cart. It never mutates anything: the preview endpoint and Create both call
// it freely. All-or-nothing: one bad line zeroes the totals.
func (s *OrderService) ValidateCart(ctx context.Context, lines []domain.CartLine) (domain.ValidationResult, error) {
	if len(lines) == 0 {
		return domain.ValidationResult{Errors: []string{"Order must contain at least one item"}}, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}
	catalog, err := s.menu.GetAvailableByIDs(ctx, ids)
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("load catalog: %w", err)
	}

	var (
		errs      []string
		validated []domain.ValidatedLine
		subtotal  int64
		requested = make(map[string]int)
	)
	for _, line := range lines {
		if line.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("Invalid quantity for menu item %s", line.MenuItemID))
			continue
		}
		item, ok := catalog[line.MenuItemID]
		if !ok {
			errs = append(errs, fmt.Sprintf("Menu item %s not found or unavailable", line.MenuItemID))
			continue
		}
		// Lines for the same item count against stock cumulatively, so a
		// cart cannot pass validation only to fail its own decrements.
		need := requested[line.MenuItemID] + line.Quantity
		if item.TracksStock() && *item.StockQuantity < need {
			errs = append(errs, fmt.Sprintf("Insufficient stock for %s. Available: %d", item.Name, *item.StockQuantity))
			continue
		}
		requested[line.MenuItemID] = need

		unitPrice := item.BasePrice
		totalPrice := unitPrice * int64(line.Quantity)
		subtotal += totalPrice
		validated = append(validated, domain.ValidatedLine{
			MenuItem:   item,
			Quantity:   line.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
			Notes:      line.Notes,
		})
	}

	if len(errs) > 0 {
		return domain.ValidationResult{Errors: errs}, nil
	}

	tax := taxFor(subtotal)
	return domain.ValidationResult{
		Valid:    true,
		Lines:    validated,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}, nil
}

// Create validates the cart and hands the whole order to one storage
// transaction: order row, item rows with price snapshots, and a conditional
// stock decrement per finite-stock line. domain.ErrStockConflict means a
// concurrent order won the race; the transport layer may retry.
func (s *OrderService) Create(ctx context.Context, userID *string, req domain.CreateOrderRequest) (*domain.Order, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, &domain.ValidationError{Errors: []string{"Session id is required"}}
	}

	result, err := s.ValidateCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		s.logger.Warn("order_create_rejected", map[string]any{"session_id": req.SessionID, "errors": result.Errors})
		return nil, &domain.ValidationError{Errors: result.Errors}
	}

	order := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: req.SessionID,
		Status:    domain.StatusPending,
		Subtotal:  result.Subtotal,
		Tax:       result.Tax,
		Total:     result.Total,
		Notes:     req.Notes,
	}
	for _, l := range result.Lines {
		order.Items = append(order.Items, domain.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			MenuItemID:     l.MenuItem.ID,
			MenuItemName:   l.MenuItem.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			TotalPrice:     l.TotalPrice,
			Notes:          l.Notes,
			DecrementStock: l.MenuItem.TracksStock(),
		})
	}

	start := time.Now()
	if err := s.orders.CreateOrder(ctx, order, "order-service"); err != nil {
		if errors.Is(err, domain.ErrStockConflict) {
			s.metrics.StockConflicts.Inc()
			s.logger.Warn("order_create_stock_conflict", map[string]any{"order_id": order.ID})
			return nil, err
		}
		s.logger.Error("order_create_failed", err, map[string]any{"order_id": order.ID})
		return nil, err
	}
	s.metrics.CreateDurationMS.Observe(float64(time.Since(start).Milliseconds()))
	s.metrics.OrdersCreated.Inc()
	s.logger.Info("order_created", map[string]any{
		"order_id": order.ID, "session_id": order.SessionID, "total": order.Total, "items": len(order.Items),
	})

	s.publish(domain.OrderEvent{
		Event:     domain.EventOrderCreated,
		OrderID:   order.ID,
		SessionID: order.SessionID,
		UserID:    userID,
	})

	full, err := s.orders.GetByID(ctx, order.ID)
	if err != nil {
		// Committed but the reload failed; the in-memory copy is complete
		// except for owner display info.
		s.logger.Error("order_reload_failed", err, map[string]any{"order_id": order.ID})
		return order, nil
	}
	return full, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) List(ctx context.Context, status *domain.OrderStatus) ([]domain.Order, error) {
	return s.orders.List(ctx, status)
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	return s.orders.ListBySession(ctx, sessionID)
}

// UpdateStatus advances an order along the forward path. Cancellation is not
// reachable from here. Cancel owns it, because it also restores stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, next domain.OrderStatus, actor string) (*domain.Order, error) {
	if !next.Valid() || next == domain.StatusCancelled {
		return nil, domain.ErrInvalidTransition
	}

	prev, sessionID, err := s.orders.UpdateStatus(ctx, id, next, actor)
	if err != nil {
		return nil, err
	}
	s.metrics.StatusUpdates.WithLabelValues(string(next)).Inc()
	s.logger.Info("order_status_updated", map[string]any{
		"order_id": id, "status": next, "previous_status": prev, "actor": actor,
	})

	s.publish(domain.OrderEvent{
		Event:          domain.EventOrderStatusUpdated,
		OrderID:        id,
		SessionID:      sessionID,
		Status:         next,
		PreviousStatus: prev,
	})

	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) Cancel(ctx context.Context, id string, actor string) error {
	sessionID, err := s.orders.Cancel(ctx, id, actor)
	if err != nil {
		return err
	}
	s.metrics.OrdersCancelled.Inc()
	s.logger.Info("order_cancelled", map[string]any{"order_id": id, "actor": actor})

	s.publish(domain.OrderEvent{
		Event:     domain.EventOrderCancelled,
		OrderID:   id,
		SessionID: sessionID,
	})
	return nil
}

func (s *OrderService) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	return s.orders.StatusHistory(ctx, id)
}

// publish emits an event with a short deadline of its own; the triggering
// request is already committed and must not fail on broker trouble.
func (s *OrderService) publish(ev domain.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Error("event_publish_failed", err, map[string]any{"event": ev.Event, "order_id": ev.OrderID})
		return
	}
	s.metrics.EventsPublished.WithLabelValues(ev.Event).Inc()
}
