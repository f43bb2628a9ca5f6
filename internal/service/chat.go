package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type ChatService interface {
	Create(ctx context.Context, userID, orderID uuid.UUID) (*domain.Chat, error)
}

type chatService struct {
	chatRepo  repository.ChatRepository
	orderRepo repository.OrderRepository
	audit     AuditService
	log       logger.Logger
}

func NewChatService(
	chatRepo repository.ChatRepository,
	orderRepo repository.OrderRepository,
	audit AuditService,
	log logger.Logger,
) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		orderRepo: orderRepo,
		audit:     audit,
		log:       log,
	}
}

// Create открывает чат по заказу. Операция идемпотентна с точки зрения
// клиента: при повторном вызове возвращается уже существующий чат.
func (s *chatService) Create(ctx context.Context, userID, orderID uuid.UUID) (*domain.Chat, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	chat := &domain.Chat{
		ID:        uuid.New(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		SellerID:  order.SellerID,
		CreatedAt: time.Now(),
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		if errors.Is(err, apperrors.ErrChatAlreadyExists) {
			// Гонка двух открытий одного чата разрешается в пользу первого
			return s.chatRepo.GetByOrderID(ctx, orderID)
		}
		return nil, err
	}

	s.log.Info("Chat created", "chat_id", chat.ID, "order_id", orderID, "user_id", userID)
	s.audit.Record(ctx, &userID, domain.AuditActionChatCreated, &chat.ID, nil)

	return chat, nil
}
