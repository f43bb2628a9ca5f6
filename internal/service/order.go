package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type OrderService interface {
	List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*domain.Order, int, error)
	GetByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error)
	GetSeller(ctx context.Context, sellerID uuid.UUID) (*domain.Seller, error)
}

type orderService struct {
	orderRepo  repository.OrderRepository
	sellerRepo repository.SellerRepository
	log        logger.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, sellerRepo repository.SellerRepository, log logger.Logger) OrderService {
	return &orderService{orderRepo: orderRepo, sellerRepo: sellerRepo, log: log}
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *orderService) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*domain.Order, int, error) {
	if status != "" && !domain.ValidOrderStatus(status) {
		return nil, 0, fmt.Errorf("%w: unknown order status %q", apperrors.ErrBadRequest, status)
	}

	limit, offset = clampPage(limit, offset)
	return s.orderRepo.List(ctx, userID, status, limit, offset)
}

func (s *orderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.GetByID(ctx, orderID, userID)
}

// GetSeller возвращает карточку продавца для шапки переписки.
func (s *orderService) GetSeller(ctx context.Context, sellerID uuid.UUID) (*domain.Seller, error) {
	return s.sellerRepo.GetByID(ctx, sellerID)
}
