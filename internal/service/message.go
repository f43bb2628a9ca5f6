package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/push"
	"cargo_miniapp/internal/repository"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type MessageService interface {
	Send(ctx context.Context, userID, orderID uuid.UUID, text string, image *string) (*domain.Message, error)
	List(ctx context.Context, userID, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	orderRepo   repository.OrderRepository
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	pushSrv     *push.Server
	notifier    Notifier
	audit       AuditService
	log         logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	orderRepo repository.OrderRepository,
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	pushSrv *push.Server,
	notifier Notifier,
	audit AuditService,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		orderRepo:   orderRepo,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		pushSrv:     pushSrv,
		notifier:    notifier,
		audit:       audit,
		log:         log,
	}
}

func (s *messageService) Send(ctx context.Context, userID, orderID uuid.UUID, text string, image *string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text must not be empty", apperrors.ErrBadRequest)
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageLength {
		return nil, fmt.Errorf("%w: message text exceeds %d characters", apperrors.ErrBadRequest, domain.MaxMessageLength)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	// Писать можно только в открытый чат
	exists, err := s.chatRepo.ExistsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrChatNotFound
	}

	message := &domain.Message{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		SellerID:    order.SellerID,
		SenderRole:  domain.SenderRoleUser,
		Text:        text,
		Image:       image,
		Seller:      order.Seller,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	// Обе стороны переписки получают событие по своим push-подключениям
	s.pushSrv.Emit(push.EventNewMessage, message, order.UserID, order.SellerID)

	s.notifyCounterparty(ctx, order, text)
	s.audit.Record(ctx, &userID, domain.AuditActionMessageSent, &message.ID, nil)

	return message, nil
}

func (s *messageService) List(ctx context.Context, userID, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error) {
	// Проверка принадлежности заказа пользователю
	if _, err := s.orderRepo.GetByID(ctx, orderID, userID); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return s.messageRepo.ListByOrder(ctx, orderID, limit, offset)
}

// notifyCounterparty дублирует push-событие сообщением бота, если у
// стороны продавца есть привязанный telegram-чат.
func (s *messageService) notifyCounterparty(ctx context.Context, order *domain.Order, text string) {
	if s.notifier == nil {
		return
	}

	seller, err := s.userRepo.GetBySellerID(ctx, order.SellerID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			s.log.Warn("Failed to resolve seller account", "error", err, "seller_id", order.SellerID)
		}
		return
	}
	if seller.TelegramChatID == nil {
		return
	}

	if err := s.notifier.NotifyNewMessage(ctx, *seller.TelegramChatID, order.OrderNumber, text); err != nil {
		s.log.Warn("Failed to notify seller via bot", "error", err, "order_id", order.ID)
	}
}
