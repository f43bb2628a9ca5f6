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

type SellerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Seller, error)
}

type sellerRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSellerRepository(db *pgxpool.Pool, log logger.Logger) SellerRepository {
	return &sellerRepository{db: db, log: log}
}

func (r *sellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Seller, error) {
	query := `
		SELECT id, full_name, phone, about, is_deleted, created_at, updated_at
		FROM sellers
		WHERE id = $1 AND is_deleted = FALSE
	`

	seller := &domain.Seller{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&seller.ID, &seller.FullName, &seller.Phone, &seller.About,
		&seller.IsDeleted, &seller.CreatedAt, &seller.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get seller", "error", err, "seller_id", id)
		return nil, err
	}

	return seller, nil
}
