package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"cargo_miniapp/internal/config"
	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/jwt"
	"cargo_miniapp/pkg/logger"
)

// Notifier - доставка уведомлений пользователю через Telegram-бота.
// Реализация может отсутствовать (бот не сконфигурирован).
type Notifier interface {
	SendOTP(ctx context.Context, chatID int64, code string) error
	NotifyNewMessage(ctx context.Context, chatID int64, orderNumber int64, text string) error
}

type AuthService interface {
	RequestOTP(ctx context.Context, phone string) (*OTPResponse, error)
	VerifyOTP(ctx context.Context, phone, code string) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
	LinkTelegramChat(ctx context.Context, userID uuid.UUID, chatID int64) error
}

type OTPResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"` // только в development-окружении
	IsNewUser bool   `json:"isNewUser"`
}

type LoginResponse struct {
	Message      string       `json:"message"`
	IsNewUser    bool         `json:"isNewUser"`
	User         *domain.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type authService struct {
	userRepo repository.UserRepository
	otpRepo  repository.OTPRepository
	notifier Notifier
	audit    AuditService
	cfg      *config.Config
	log      logger.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	otpRepo repository.OTPRepository,
	notifier Notifier,
	audit AuditService,
	cfg *config.Config,
	log logger.Logger,
) AuthService {
	return &authService{
		userRepo: userRepo,
		otpRepo:  otpRepo,
		notifier: notifier,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

var phoneRe = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

func (s *authService) RequestOTP(ctx context.Context, phone string) (*OTPResponse, error) {
	phone = normalizePhone(phone)
	if !phoneRe.MatchString(phone) {
		return nil, fmt.Errorf("%w: invalid phone format", apperrors.ErrBadRequest)
	}

	code, err := generateOTP(s.cfg.Telegram.OTPLength)
	if err != nil {
		s.log.Error("Failed to generate OTP", "error", err)
		return nil, errors.New("failed to generate code")
	}

	if err := s.otpRepo.Save(ctx, phone, code, s.cfg.Telegram.OTPTTL); err != nil {
		return nil, errors.New("failed to save code")
	}

	user, err := s.userRepo.GetByPhone(ctx, phone)
	isNewUser := errors.Is(err, apperrors.ErrUserNotFound)
	if err != nil && !isNewUser {
		return nil, err
	}

	// Доставляем код через бота, если знаем telegram-чат пользователя
	if user != nil && user.TelegramChatID != nil && s.notifier != nil {
		if err := s.notifier.SendOTP(ctx, *user.TelegramChatID, code); err != nil {
			s.log.Warn("Failed to deliver OTP via bot", "error", err, "phone", phone)
			// Не критично: в development код возвращается в ответе
		}
	}

	if user != nil {
		s.audit.Record(ctx, &user.ID, domain.AuditActionOTPRequested, nil, nil)
	}

	resp := &OTPResponse{
		Message:   "code sent",
		IsNewUser: isNewUser,
	}
	if s.cfg.Environment == "development" {
		resp.Code = code
	}

	return resp, nil
}

func (s *authService) VerifyOTP(ctx context.Context, phone, code string) (*LoginResponse, error) {
	phone = normalizePhone(phone)
	code = strings.TrimSpace(code)
	if !phoneRe.MatchString(phone) || code == "" {
		return nil, fmt.Errorf("%w: phone and code are required", apperrors.ErrBadRequest)
	}

	if err := s.otpRepo.Consume(ctx, phone, code, s.cfg.Telegram.OTPMaxTries); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByPhone(ctx, phone)
	isNewUser := errors.Is(err, apperrors.ErrUserNotFound)
	if err != nil && !isNewUser {
		return nil, err
	}

	if isNewUser {
		user = &domain.User{
			ID:        uuid.New(),
			Phone:     phone,
			FullName:  "",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			s.log.Error("Failed to create user", "error", err, "phone", phone)
			return nil, errors.New("failed to create user")
		}
		s.log.Info("New user registered", "user_id", user.ID)
	}

	accessToken, err := jwt.GenerateAccessToken(user.ID, user.Phone, s.cfg.JWT.AccessSecret, s.cfg.JWT.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, errors.New("failed to generate access token")
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTTL)
	if err != nil {
		s.log.Error("Failed to generate refresh token", "error", err)
		return nil, errors.New("failed to generate refresh token")
	}

	session := &domain.UserSession{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: hashToken(refreshToken),
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(s.cfg.JWT.RefreshTTL),
	}
	if err := s.userRepo.CreateSession(ctx, session); err != nil {
		s.log.Error("Failed to create session", "error", err)
		return nil, errors.New("failed to create session")
	}

	s.audit.Record(ctx, &user.ID, domain.AuditActionOTPVerified, nil, nil)

	return &LoginResponse{
		Message:      "authenticated",
		IsNewUser:    isNewUser,
		User:         user,
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	session, err := s.userRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	accessToken, err := jwt.GenerateAccessToken(user.ID, user.Phone, s.cfg.JWT.AccessSecret, s.cfg.JWT.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, errors.New("failed to generate access token")
	}

	newRefreshToken, err := jwt.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTTL)
	if err != nil {
		s.log.Error("Failed to generate refresh token", "error", err)
		return nil, errors.New("failed to generate refresh token")
	}

	// Ротация: старая сессия отзывается, создается новая
	if err := s.userRepo.RevokeSession(ctx, session.ID, "refreshed"); err != nil {
		s.log.Warn("Failed to revoke old session", "error", err)
	}

	newSession := &domain.UserSession{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: hashToken(newRefreshToken),
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(s.cfg.JWT.RefreshTTL),
	}
	if err := s.userRepo.CreateSession(ctx, newSession); err != nil {
		s.log.Error("Failed to create new session", "error", err)
		return nil, errors.New("failed to create new session")
	}

	return &TokenResponse{
		Token:        accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.cfg.JWT.AccessSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (s *authService) LinkTelegramChat(ctx context.Context, userID uuid.UUID, chatID int64) error {
	return s.userRepo.SetTelegramChatID(ctx, userID, chatID)
}

func normalizePhone(phone string) string {
	return strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
}

// generateOTP возвращает криптослучайный числовой код заданной длины.
func generateOTP(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
