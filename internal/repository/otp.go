package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

const (
	// Префиксы ключей Redis
	otpCodeKeyPrefix  = "otp:phone:%s:code"
	otpTriesKeyPrefix = "otp:phone:%s:tries"
)

type OTPRepository interface {
	// Сохранить код для номера телефона (перезаписывает предыдущий, сбрасывает счетчик попыток)
	Save(ctx context.Context, phone, code string, ttl time.Duration) error

	// Проверить код и удалить его при успехе; при неверном коде увеличивает счетчик попыток
	Consume(ctx context.Context, phone, code string, maxTries int) error
}

type otpRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewOTPRepository(rdb *redis.Client, log logger.Logger) OTPRepository {
	return &otpRepository{rdb: rdb, log: log}
}

func (r *otpRepository) codeKey(phone string) string {
	return fmt.Sprintf(otpCodeKeyPrefix, phone)
}

func (r *otpRepository) triesKey(phone string) string {
	return fmt.Sprintf(otpTriesKeyPrefix, phone)
}

func (r *otpRepository) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	// Храним только хеш кода
	if err := r.rdb.Set(ctx, r.codeKey(phone), hashCode(code), ttl).Err(); err != nil {
		r.log.Error("Failed to save OTP code", "error", err)
		return fmt.Errorf("failed to save OTP code: %w", err)
	}

	if err := r.rdb.Set(ctx, r.triesKey(phone), 0, ttl).Err(); err != nil {
		r.log.Warn("Failed to reset OTP tries counter", "error", err)
		// Не критичная ошибка, продолжаем
	}

	return nil
}

func (r *otpRepository) Consume(ctx context.Context, phone, code string, maxTries int) error {
	tries, err := r.rdb.Get(ctx, r.triesKey(phone)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.log.Error("Failed to read OTP tries counter", "error", err)
		return err
	}
	if tries >= maxTries {
		return apperrors.ErrTooManyAttempts
	}

	stored, err := r.rdb.Get(ctx, r.codeKey(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrInvalidOTP
		}
		r.log.Error("Failed to read OTP code", "error", err)
		return err
	}

	if stored != hashCode(code) {
		if err := r.rdb.Incr(ctx, r.triesKey(phone)).Err(); err != nil {
			r.log.Warn("Failed to increment OTP tries counter", "error", err)
		}
		return apperrors.ErrInvalidOTP
	}

	// Код одноразовый - удаляем сразу после успешной проверки
	if err := r.rdb.Del(ctx, r.codeKey(phone), r.triesKey(phone)).Err(); err != nil {
		r.log.Warn("Failed to delete consumed OTP code", "error", err)
	}

	return nil
}

func hashCode(code string) string {
	hash := sha256.Sum256([]byte(code))
	return hex.EncodeToString(hash[:])
}
