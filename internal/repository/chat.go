package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Chat, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	query := `
		INSERT INTO chats (id, order_id, user_id, seller_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, chat.ID, chat.OrderID, chat.UserID, chat.SellerID, chat.CreatedAt)
	if err != nil {
		// 23505 - уникальный индекс по order_id, чат уже существует
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrChatAlreadyExists
		}
		r.log.Error("Failed to create chat", "error", err, "order_id", chat.OrderID)
		return err
	}

	return nil
}

func (r *chatRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, order_id, user_id, seller_id, created_at
		FROM chats
		WHERE order_id = $1
	`

	chat := &domain.Chat{}
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&chat.ID, &chat.OrderID, &chat.UserID, &chat.SellerID, &chat.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrChatNotFound
		}
		r.log.Error("Failed to get chat", "error", err, "order_id", orderID)
		return nil, err
	}

	return chat, nil
}

func (r *chatRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chats WHERE order_id = $1)`, orderID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check chat existence", "error", err, "order_id", orderID)
		return false, err
	}

	return exists, nil
}
