package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/pkg/logger"
)

type PaymentRepository interface {
	List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Payment, int, error)
}

type paymentRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewPaymentRepository(db *pgxpool.Pool, log logger.Logger) PaymentRepository {
	return &paymentRepository{db: db, log: log}
}

func (r *paymentRepository) List(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, limit, offset int) ([]*domain.Payment, int, error) {
	query := `
		SELECT p.id, p.user_id, p.order_id, o.order_number, p.seller_id, p.document, p.amount,
		       p.is_deleted, p.created_at, p.updated_at,
		       s.id, s.full_name, o.id, o.order_number, o.name
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		JOIN sellers s ON s.id = p.seller_id
		WHERE p.user_id = $1 AND p.is_deleted = FALSE
		  AND ($2::uuid IS NULL OR p.order_id = $2)
		ORDER BY p.created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userID, orderID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list payments", "error", err, "user_id", userID)
		return nil, 0, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment := &domain.Payment{Seller: &domain.SellerRef{}, Order: &domain.OrderRef{}}
		err := rows.Scan(
			&payment.ID, &payment.UserID, &payment.OrderID, &payment.OrderNumber, &payment.SellerID,
			&payment.Document, &payment.Amount, &payment.IsDeleted, &payment.CreatedAt, &payment.UpdatedAt,
			&payment.Seller.ID, &payment.Seller.FullName,
			&payment.Order.ID, &payment.Order.OrderNumber, &payment.Order.Name,
		)
		if err != nil {
			r.log.Error("Failed to scan payment", "error", err)
			return nil, 0, err
		}
		payments = append(payments, payment)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM payments p
		WHERE p.user_id = $1 AND p.is_deleted = FALSE
		  AND ($2::uuid IS NULL OR p.order_id = $2)
	`

	var totalCount int
	if err := r.db.QueryRow(ctx, countQuery, userID, orderID).Scan(&totalCount); err != nil {
		r.log.Error("Failed to count payments", "error", err, "user_id", userID)
		return nil, 0, err
	}

	return payments, totalCount, nil
}
