package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/httpx"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/menu/service"

	"github.com/go-chi/chi/v5"
)

type MenuHandler struct {
	svc    service.MenuServiceInterface
	logger *logger.Logger
}

func NewMenuHandler(svc service.MenuServiceInterface, lg *logger.Logger) *MenuHandler {
	return &MenuHandler{svc: svc, logger: lg}
}

func Routes(svc service.MenuServiceInterface, lg *logger.Logger) chi.Router {
	h := NewMenuHandler(svc, lg)
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/categories", h.Categories)
	r.Get("/{id}", h.Get)
	r.With(httpx.RequireOperator).Post("/", h.Create)
	r.With(httpx.RequireOperator).Put("/{id}", h.Update)
	r.With(httpx.RequireOperator).Delete("/{id}", h.Delete)
	return r
}

func filterFromQuery(r *http.Request) domain.MenuFilter {
	q := r.URL.Query()
	f := domain.MenuFilter{
		CategoryID:   q.Get("categoryId"),
		Search:       q.Get("search"),
		IsVegetarian: q.Get("vegetarian") == "true",
		IsVegan:      q.Get("vegan") == "true",
		IsGlutenFree: q.Get("glutenFree") == "true",
	}
	if v := q.Get("minPrice"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MinPrice = &n
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.MaxPrice = &n
		}
	}
	if v := q.Get("available"); v != "" {
		b := v == "true"
		f.Available = &b
	}
	return f
}

func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("menu_list_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch menu")
		return
	}
	httpx.Data(w, http.StatusOK, items)
}

func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrMenuItemNotFound) {
		httpx.Error(w, http.StatusNotFound, "Menu item not found")
		return
	}
	if err != nil {
		h.logger.Error("menu_get_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch menu item")
		return
	}
	httpx.Data(w, http.StatusOK, item)
}

func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	item, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.Data(w, http.StatusCreated, item)
}

func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	item, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if errors.Is(err, domain.ErrMenuItemNotFound) {
		httpx.Error(w, http.StatusNotFound, "Menu item not found")
		return
	}
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.Data(w, http.StatusOK, item)
}

func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrMenuItemNotFound) {
		httpx.Error(w, http.StatusNotFound, "Menu item not found")
		return
	}
	if err != nil {
		h.logger.Error("menu_delete_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to delete menu item")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Menu item deleted"})
}

func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.logger.Error("categories_list_failed", err, nil)
		httpx.Error(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	httpx.Data(w, http.StatusOK, cats)
}
