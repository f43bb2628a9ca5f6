package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/push"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type fakeMessageRepo struct {
	created []*domain.Message
	listed  []*domain.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	message.CreatedAt = time.Now()
	message.UpdatedAt = message.CreatedAt
	f.created = append(f.created, message)
	return nil
}

func (f *fakeMessageRepo) ListByOrder(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error) {
	return f.listed, len(f.listed), nil
}

type fakeOrderRepo struct {
	order *domain.Order
}

func (f *fakeOrderRepo) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*domain.Order, int, error) {
	return []*domain.Order{f.order}, 1, nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error) {
	if f.order == nil || f.order.ID != orderID || f.order.UserID != userID {
		return nil, apperrors.ErrOrderNotFound
	}
	return f.order, nil
}

type fakeChatRepo struct {
	exists bool
}

func (f *fakeChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	if f.exists {
		return apperrors.ErrChatAlreadyExists
	}
	f.exists = true
	return nil
}

func (f *fakeChatRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Chat, error) {
	if !f.exists {
		return nil, apperrors.ErrChatNotFound
	}
	return &domain.Chat{OrderID: orderID}, nil
}

func (f *fakeChatRepo) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return f.exists, nil
}

type fakeUserRepo struct{}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error { return nil }
func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, apperrors.ErrUserNotFound
}
func (f *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return nil, apperrors.ErrUserNotFound
}
func (f *fakeUserRepo) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*domain.User, error) {
	return nil, apperrors.ErrUserNotFound
}
func (f *fakeUserRepo) SetTelegramChatID(ctx context.Context, userID uuid.UUID, chatID int64) error {
	return nil
}
func (f *fakeUserRepo) CreateSession(ctx context.Context, session *domain.UserSession) error {
	return nil
}
func (f *fakeUserRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	return nil, apperrors.ErrNotFound
}
func (f *fakeUserRepo) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, userID *uuid.UUID, action string, entityID *uuid.UUID, details *string) {
}

func newTestOrder() *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		SellerID:    uuid.New(),
		OrderNumber: 77,
		Name:        "Комплект запчастей",
		Status:      domain.OrderStatusInProcess,
	}
}

func newMessageService(order *domain.Order, chatExists bool) (MessageService, *fakeMessageRepo, *push.Server) {
	log := logger.New("error")
	messageRepo := &fakeMessageRepo{}
	pushSrv := push.NewServer(log)

	svc := NewMessageService(
		messageRepo,
		&fakeOrderRepo{order: order},
		&fakeChatRepo{exists: chatExists},
		&fakeUserRepo{},
		pushSrv,
		nil,
		noopAudit{},
		log,
	)

	return svc, messageRepo, pushSrv
}

func TestMessageService_SendPersistsAndPushes(t *testing.T) {
	order := newTestOrder()
	svc, repo, pushSrv := newMessageService(order, true)

	conn := pushSrv.Register(order.UserID)
	defer pushSrv.Unregister(conn)

	message, err := svc.Send(context.Background(), order.UserID, order.ID, "  Привет!  ", nil)
	require.NoError(t, err)

	assert.Equal(t, "Привет!", message.Text)
	assert.Equal(t, domain.SenderRoleUser, message.SenderRole)
	assert.Equal(t, order.OrderNumber, message.OrderNumber)
	assert.Len(t, repo.created, 1)

	// Событие уходит в push-канал отправителя
	assert.Len(t, conn.Send, 1)
}

func TestMessageService_SendRejectsEmptyText(t *testing.T) {
	order := newTestOrder()
	svc, repo, _ := newMessageService(order, true)

	_, err := svc.Send(context.Background(), order.UserID, order.ID, "   ", nil)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Empty(t, repo.created)
}

func TestMessageService_SendRejectsTooLongText(t *testing.T) {
	order := newTestOrder()
	svc, repo, _ := newMessageService(order, true)

	long := strings.Repeat("ю", domain.MaxMessageLength+1)
	_, err := svc.Send(context.Background(), order.UserID, order.ID, long, nil)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Empty(t, repo.created)

	// Ровно на пределе - допустимо
	_, err = svc.Send(context.Background(), order.UserID, order.ID, strings.Repeat("ю", domain.MaxMessageLength), nil)
	assert.NoError(t, err)
}

func TestMessageService_SendRequiresOpenChat(t *testing.T) {
	order := newTestOrder()
	svc, repo, _ := newMessageService(order, false)

	_, err := svc.Send(context.Background(), order.UserID, order.ID, "Привет", nil)
	assert.ErrorIs(t, err, apperrors.ErrChatNotFound)
	assert.Empty(t, repo.created)
}

func TestMessageService_SendChecksOrderOwnership(t *testing.T) {
	order := newTestOrder()
	svc, repo, _ := newMessageService(order, true)

	stranger := uuid.New()
	_, err := svc.Send(context.Background(), stranger, order.ID, "Привет", nil)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
	assert.Empty(t, repo.created)
}

func TestChatService_CreateIsIdempotent(t *testing.T) {
	order := newTestOrder()
	log := logger.New("error")
	chatRepo := &fakeChatRepo{}

	svc := NewChatService(chatRepo, &fakeOrderRepo{order: order}, noopAudit{}, log)

	first, err := svc.Create(context.Background(), order.UserID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Повторное открытие возвращает существующий чат, а не ошибку
	second, err := svc.Create(context.Background(), order.UserID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, second.OrderID)
}
