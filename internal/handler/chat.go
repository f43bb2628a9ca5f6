package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cargo_miniapp/internal/middleware"
	"cargo_miniapp/internal/service"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type ChatHandler struct {
	chatService    service.ChatService
	messageService service.MessageService
	log            logger.Logger
}

func NewChatHandler(chatService service.ChatService, messageService service.MessageService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		messageService: messageService,
		log:            log,
	}
}

type CreateChatRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

func (h *ChatHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	chat, err := h.chatService.Create(c.Request.Context(), userID, orderID)
	if err != nil {
		h.log.Warn("Chat creation failed", "error", err, "order_id", orderID)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "chat created",
		"chatId":  chat.ID,
	})
}
