package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByOrder(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, order_id, user_id, seller_id, sender_role, text, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	// created_at назначает сервер - клиентские часы не участвуют в порядке сообщений
	err := r.db.QueryRow(ctx, query,
		message.ID, message.OrderID, message.UserID, message.SellerID,
		message.SenderRole, message.Text, message.Image,
	).Scan(&message.CreatedAt, &message.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "order_id", message.OrderID)
		return err
	}

	return nil
}

func (r *messageRepository) ListByOrder(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error) {
	query := `
		SELECT m.id, m.order_id, o.order_number, m.user_id, m.seller_id, m.sender_role,
		       m.text, m.image, m.created_at, m.updated_at, s.id, s.full_name
		FROM messages m
		JOIN orders o ON o.id = m.order_id
		JOIN sellers s ON s.id = m.seller_id
		WHERE m.order_id = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, orderID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "order_id", orderID)
		return nil, 0, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{Seller: &domain.SellerRef{}}
		err := rows.Scan(
			&message.ID, &message.OrderID, &message.OrderNumber, &message.UserID, &message.SellerID,
			&message.SenderRole, &message.Text, &message.Image, &message.CreatedAt, &message.UpdatedAt,
			&message.Seller.ID, &message.Seller.FullName,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, 0, err
		}
		messages = append(messages, message)
	}

	var totalCount int
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE order_id = $1`, orderID).Scan(&totalCount)
	if err != nil {
		r.log.Error("Failed to count messages", "error", err, "order_id", orderID)
		return nil, 0, err
	}

	return messages, totalCount, nil
}
