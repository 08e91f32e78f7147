package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/httpx"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/order/service"

	"github.com/go-chi/chi/v5"
)

// createAttempts bounds the retry loop around stock conflicts. Each retry
// re-validates against the then-current catalog, so callers either get a
// fresh order or an itemized validation failure.
const createAttempts = 3

type OrderHandler struct {
	svc    service.OrderServiceInterface
	logger *logger.Logger
}

func NewOrderHandler(svc service.OrderServiceInterface, lg *logger.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: lg}
}

func Routes(svc service.OrderServiceInterface, lg *logger.Logger) chi.Router {
	h := NewOrderHandler(svc, lg)
	r := chi.NewRouter()

	r.With(httpx.RequireOperator).Get("/", h.List)
	r.Get("/my", h.ListMine)
	r.Get("/session/{sessionID}", h.ListBySession)
	r.Post("/validate", h.Validate)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.With(httpx.RequireOperator).Put("/{id}/status", h.UpdateStatus)
	r.With(httpx.RequireOperator).Get("/{id}/history", h.History)
	r.Post("/{id}/cancel", h.Cancel)
	return r
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		if !s.Valid() {
			httpx.Error(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = &s
	}

	orders, err := h.svc.List(r.Context(), status)
	if err != nil {
		h.logger.Error("orders_list_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	httpx.Data(w, http.StatusOK, orders)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller := httpx.CallerFrom(r.Context())
	if caller.UserID == "" {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	orders, err := h.svc.ListByUser(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("orders_list_mine_failed", err, map[string]any{"user_id": caller.UserID})
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	httpx.Data(w, http.StatusOK, orders)
}

func (h *OrderHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	orders, err := h.svc.ListBySession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("orders_list_session_failed", err, map[string]any{"session_id": sessionID})
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	httpx.Data(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrOrderNotFound) {
		httpx.Error(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.logger.Error("order_get_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	httpx.Data(w, http.StatusOK, order)
}

func (h *OrderHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.svc.ValidateCart(r.Context(), req.Items)
	if err != nil {
		h.logger.Error("cart_validate_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to validate cart")
		return
	}
	if !result.Valid {
		httpx.Error(w, http.StatusBadRequest, "Cart validation failed", result.Errors...)
		return
	}
	httpx.Data(w, http.StatusOK, map[string]any{
		"valid":     true,
		"subtotal":  result.Subtotal,
		"tax":       result.Tax,
		"total":     result.Total,
		"itemCount": len(result.Lines),
	})
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var userID *string
	if caller := httpx.CallerFrom(r.Context()); caller.UserID != "" {
		userID = &caller.UserID
	}

	for attempt := 1; ; attempt++ {
		order, err := h.svc.Create(r.Context(), userID, req)
		if err == nil {
			httpx.Data(w, http.StatusCreated, order)
			return
		}

		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			httpx.Error(w, http.StatusBadRequest, "Order creation failed", verr.Errors...)
			return
		case errors.Is(err, domain.ErrStockConflict):
			if attempt < createAttempts {
				continue
			}
			httpx.Error(w, http.StatusConflict, "Stock changed while ordering, please retry")
			return
		default:
			h.logger.Error("order_create_failed", err, nil)
			httpx.Error(w, http.StatusInternalServerError, "Failed to create order")
			return
		}
	}
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	actor := httpx.CallerFrom(r.Context()).UserID
	if actor == "" {
		actor = "operator"
	}

	order, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		httpx.Error(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		httpx.Error(w, http.StatusConflict, "Invalid status transition")
	case err != nil:
		h.logger.Error("order_status_update_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to update order status")
	default:
		httpx.Data(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller := httpx.CallerFrom(r.Context())
	actor := caller.UserID
	if actor == "" {
		actor = "customer"
	}

	err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), actor)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		httpx.Error(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, domain.ErrNotCancellable):
		httpx.Error(w, http.StatusBadRequest, "Order cannot be cancelled")
	case err != nil:
		h.logger.Error("order_cancel_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to cancel order")
	default:
		httpx.JSON(w, http.StatusOK, map[string]string{"message": "Order cancelled successfully"})
	}
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.StatusHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("order_history_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch status history")
		return
	}
	httpx.Data(w, http.StatusOK, history)
}
