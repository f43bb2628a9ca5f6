package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/pkg/logger"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Comment, int, error)
}

type commentRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewCommentRepository(db *pgxpool.Pool, log logger.Logger) CommentRepository {
	return &commentRepository{db: db, log: log}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (id, order_id, user_id, seller_id, stars, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		comment.ID, comment.OrderID, comment.UserID, comment.SellerID, comment.Stars, comment.Text,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create comment", "error", err, "order_id", comment.OrderID)
		return err
	}

	return nil
}

func (r *commentRepository) List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Comment, int, error) {
	query := `
		SELECT c.id, c.order_id, o.order_number, c.user_id, c.seller_id, c.stars, c.text,
		       c.created_at, c.updated_at, u.id, u.full_name
		FROM comments c
		JOIN orders o ON o.id = c.order_id
		JOIN users u ON u.id = c.user_id
		WHERE c.user_id = $1
		  AND ($2::uuid IS NULL OR c.order_id = $2)
		ORDER BY c.created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userID, orderID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list comments", "error", err, "user_id", userID)
		return nil, 0, err
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment := &domain.Comment{User: &domain.UserRef{}}
		err := rows.Scan(
			&comment.ID, &comment.OrderID, &comment.OrderNumber, &comment.UserID, &comment.SellerID,
			&comment.Stars, &comment.Text, &comment.CreatedAt, &comment.UpdatedAt,
			&comment.User.ID, &comment.User.FullName,
		)
		if err != nil {
			r.log.Error("Failed to scan comment", "error", err)
			return nil, 0, err
		}
		comments = append(comments, comment)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM comments c
		WHERE c.user_id = $1
		  AND ($2::uuid IS NULL OR c.order_id = $2)
	`

	var totalCount int
	if err := r.db.QueryRow(ctx, countQuery, userID, orderID).Scan(&totalCount); err != nil {
		r.log.Error("Failed to count comments", "error", err, "user_id", userID)
		return nil, 0, err
	}

	return comments, totalCount, nil
}
