package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargo_miniapp/internal/domain"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetTelegramChatID(ctx context.Context, userID uuid.UUID, chatID int64) error
	CreateSession(ctx context.Context, session *domain.UserSession) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error)
	RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, phone, full_name, gender, birthday, telegram_chat_id, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Phone, user.FullName, user.Gender, user.Birthday,
		user.TelegramChatID, user.SellerID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create user", "error", err)
		return err
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, phone, full_name, gender, birthday, telegram_chat_id, seller_id, is_deleted, created_at, updated_at
		FROM users
		WHERE id = $1 AND is_deleted = FALSE
	`

	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `
		SELECT id, phone, full_name, gender, birthday, telegram_chat_id, seller_id, is_deleted, created_at, updated_at
		FROM users
		WHERE phone = $1 AND is_deleted = FALSE
	`

	return r.scanUser(r.db.QueryRow(ctx, query, phone))
}

// GetBySellerID возвращает аккаунт пользователя, привязанный к продавцу.
func (r *userRepository) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, phone, full_name, gender, birthday, telegram_chat_id, seller_id, is_deleted, created_at, updated_at
		FROM users
		WHERE seller_id = $1 AND is_deleted = FALSE
	`

	return r.scanUser(r.db.QueryRow(ctx, query, sellerID))
}

func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Phone, &user.FullName, &user.Gender, &user.Birthday,
		&user.TelegramChatID, &user.SellerID, &user.IsDeleted, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to scan user", "error", err)
		return nil, err
	}

	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET full_name = $2, gender = $3, birthday = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, user.ID, user.FullName, user.Gender, user.Birthday, time.Now())
	if err != nil {
		r.log.Error("Failed to update user", "error", err, "user_id", user.ID)
		return err
	}

	return nil
}

func (r *userRepository) SetTelegramChatID(ctx context.Context, userID uuid.UUID, chatID int64) error {
	query := `UPDATE users SET telegram_chat_id = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.Exec(ctx, query, userID, chatID)
	if err != nil {
		r.log.Error("Failed to set telegram chat id", "error", err, "user_id", userID)
		return err
	}

	return nil
}

func (r *userRepository) CreateSession(ctx context.Context, session *domain.UserSession) error {
	query := `
		INSERT INTO user_sessions (id, user_id, refresh_token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.RefreshTokenHash, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		r.log.Error("Failed to create session", "error", err)
		return err
	}

	return nil
}

func (r *userRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, created_at, expires_at, revoked_at, revoked_reason
		FROM user_sessions
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`

	session := &domain.UserSession{}
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID, &session.UserID, &session.RefreshTokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.RevokedReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get session", "error", err)
		return nil, err
	}

	return session, nil
}

func (r *userRepository) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	query := `UPDATE user_sessions SET revoked_at = NOW(), revoked_reason = $2 WHERE id = $1`

	_, err := r.db.Exec(ctx, query, sessionID, reason)
	if err != nil {
		r.log.Error("Failed to revoke session", "error", err, "session_id", sessionID)
		return err
	}

	return nil
}
