package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type CommentService interface {
	Create(ctx context.Context, userID, orderID uuid.UUID, stars int, text string) (*domain.Comment, error)
	List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Comment, int, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	orderRepo   repository.OrderRepository
	log         logger.Logger
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	orderRepo repository.OrderRepository,
	log logger.Logger,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		orderRepo:   orderRepo,
		log:         log,
	}
}

const maxCommentLength = 2000

func (s *commentService) Create(ctx context.Context, userID, orderID uuid.UUID, stars int, text string) (*domain.Comment, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: stars must be between 1 and 5", apperrors.ErrBadRequest)
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment text exceeds %d characters", apperrors.ErrBadRequest, maxCommentLength)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		SellerID:    order.SellerID,
		Stars:       stars,
		Text:        text,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.log.Info("Comment created", "comment_id", comment.ID, "order_id", orderID, "stars", stars)

	return comment, nil
}

func (s *commentService) List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Comment, int, error) {
	limit, offset = clampPage(limit, offset)
	return s.commentRepo.List(ctx, userID, orderID, limit, offset)
}
