package service

import (
	"context"
	"fmt"
	"strings"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/logger"
	"restaurant-orders/internal/menu/repository"
)

type MenuServiceInterface interface {
	List(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error)
	Get(ctx context.Context, id string) (*domain.MenuItem, error)
	Create(ctx context.Context, req domain.CreateMenuItemRequest) (*domain.MenuItem, error)
	Update(ctx context.Context, id string, req domain.UpdateMenuItemRequest) (*domain.MenuItem, error)
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]domain.Category, error)
}

type MenuService struct {
	repo   repository.MenuRepositoryInterface
	logger *logger.Logger
}

func New(repo repository.MenuRepositoryInterface, lg *logger.Logger) *MenuService {
	return &MenuService{repo: repo, logger: lg}
}

func (s *MenuService) List(ctx context.Context, filter domain.MenuFilter) ([]domain.MenuItem, error) {
	return s.repo.List(ctx, filter)
}

func (s *MenuService) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MenuService) Create(ctx context.Context, req domain.CreateMenuItemRequest) (*domain.MenuItem, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.CategoryID == "" {
		return nil, fmt.Errorf("category id is required")
	}
	if req.BasePrice <= 0 {
		return nil, fmt.Errorf("base price must be positive")
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return nil, fmt.Errorf("stock quantity must not be negative")
	}

	item := &domain.MenuItem{
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		BasePrice:     req.BasePrice,
		PrepTimeMin:   req.PrepTimeMin,
		IsAvailable:   true,
		IsVegetarian:  req.IsVegetarian,
		IsVegan:       req.IsVegan,
		IsGlutenFree:  req.IsGlutenFree,
		StockQuantity: req.StockQuantity,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	if item.PrepTimeMin <= 0 {
		item.PrepTimeMin = 15
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("menu_item_create_failed", err, map[string]any{"name": req.Name})
		return nil, err
	}
	s.logger.Info("menu_item_created", map[string]any{"menu_item_id": item.ID, "name": item.Name})
	return item, nil
}

func (s *MenuService) Update(ctx context.Context, id string, req domain.UpdateMenuItemRequest) (*domain.MenuItem, error) {
	if req.BasePrice != nil && *req.BasePrice <= 0 {
		return nil, fmt.Errorf("base price must be positive")
	}
	item, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("menu_item_updated", map[string]any{"menu_item_id": id, "version": item.Version})
	return item, nil
}

// Delete soft-deletes: orders hold price snapshots plus a reference, so the
// row must survive.
func (s *MenuService) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("menu_item_deleted", map[string]any{"menu_item_id": id})
	return nil
}

func (s *MenuService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}
