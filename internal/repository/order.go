package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type OrderRepository interface {
	List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*domain.Order, int, error)
	GetByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error)
}

type orderRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewOrderRepository(db *pgxpool.Pool, log logger.Logger) OrderRepository {
	return &orderRepository{db: db, log: log}
}

const orderColumns = `
	o.id, o.user_id, o.seller_id, o.order_number, o.name, o.description,
	o.weight, o.price, o.paid_amount, o.contract_file, o.status, o.payment_status,
	EXISTS (SELECT 1 FROM chats c WHERE c.order_id = o.id) AS has_chat,
	EXISTS (SELECT 1 FROM comments cm WHERE cm.order_id = o.id) AS has_comment,
	o.is_deleted, o.created_at, o.updated_at,
	s.id, s.full_name
`

func (r *orderRepository) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]*domain.Order, int, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN sellers s ON s.id = o.seller_id
		WHERE o.user_id = $1 AND o.is_deleted = FALSE
		  AND ($2 = '' OR o.status = $2)
		ORDER BY o.created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userID, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list orders", "error", err, "user_id", userID)
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.log.Error("Failed to scan order", "error", err)
			return nil, 0, err
		}
		orders = append(orders, order)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM orders o
		WHERE o.user_id = $1 AND o.is_deleted = FALSE
		  AND ($2 = '' OR o.status = $2)
	`

	var totalCount int
	if err := r.db.QueryRow(ctx, countQuery, userID, status).Scan(&totalCount); err != nil {
		r.log.Error("Failed to count orders", "error", err, "user_id", userID)
		return nil, 0, err
	}

	return orders, totalCount, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN sellers s ON s.id = o.seller_id
		WHERE o.id = $1 AND o.user_id = $2 AND o.is_deleted = FALSE
	`

	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		r.log.Error("Failed to get order", "error", err, "order_id", orderID)
		return nil, err
	}

	return order, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	order := &domain.Order{Seller: &domain.SellerRef{}}
	err := row.Scan(
		&order.ID, &order.UserID, &order.SellerID, &order.OrderNumber, &order.Name, &order.Description,
		&order.Weight, &order.Price, &order.PaidAmount, &order.ContractFile, &order.Status, &order.PaymentStatus,
		&order.HasChat, &order.HasComment,
		&order.IsDeleted, &order.CreatedAt, &order.UpdatedAt,
		&order.Seller.ID, &order.Seller.FullName,
	)
	if err != nil {
		return nil, err
	}

	return order, nil
}
