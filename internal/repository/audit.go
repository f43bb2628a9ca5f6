package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/pkg/logger"
)

type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) Create(ctx context.Context, record *domain.AuditRecord) error {
	query := `
		INSERT INTO audit_log (id, user_id, action, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.UserID, record.Action, record.EntityID, record.Details, record.CreatedAt,
	)
	if err != nil {
		// Аудит не должен ломать основную операцию, ошибку только логируем
		r.log.Error("Failed to write audit record", "error", err, "action", record.Action)
		return err
	}

	return nil
}
