package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	"cargo_miniapp/pkg/logger"
)

// AuditService пишет след значимых действий пользователя. Запись
// best-effort: сбой аудита не ломает основную операцию.
type AuditService interface {
	Record(ctx context.Context, userID *uuid.UUID, action string, entityID *uuid.UUID, details *string)
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{auditRepo: auditRepo, log: log}
}

func (s *auditService) Record(ctx context.Context, userID *uuid.UUID, action string, entityID *uuid.UUID, details *string) {
	record := &domain.AuditRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		EntityID:  entityID,
		Details:   details,
		CreatedAt: time.Now(),
	}

	if err := s.auditRepo.Create(ctx, record); err != nil {
		s.log.Warn("Audit record dropped", "action", action, "error", err)
	}
}
