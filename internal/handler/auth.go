package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargo_miniapp/internal/middleware"
	"cargo_miniapp/internal/service"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type AuthHandler struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthHandler(authService service.AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type OTPAuthRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// OTPAuth обслуживает обе фазы входа одним эндпоинтом: запрос без кода
// отправляет код на телефон, запрос с кодом завершает аутентификацию.
func (h *AuthHandler) OTPAuth(c *gin.Context) {
	var req OTPAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid auth request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if req.Code == "" {
		resp, err := h.authService.RequestOTP(c.Request.Context(), req.Phone)
		if err != nil {
			h.log.Warn("OTP request failed", "error", err)
			c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp, err := h.authService.VerifyOTP(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		h.log.Warn("OTP verification failed", "error", err)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("User authenticated", "user_id", resp.User.ID)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LinkTelegram привязывает telegram-чат из валидированного initData к
// аккаунту пользователя. Требует Bearer-токен и X-Telegram-Auth.
func (h *AuthHandler) LinkTelegram(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tgUser, ok := middleware.TelegramUserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "telegram auth data required"})
		return
	}

	if err := h.authService.LinkTelegramChat(c.Request.Context(), userID, tgUser.ID); err != nil {
		h.log.Error("Failed to link telegram chat", "error", err, "user_id", userID)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Telegram chat linked", "user_id", userID, "chat_id", tgUser.ID)
	c.JSON(http.StatusOK, gin.H{"message": "telegram linked"})
}
