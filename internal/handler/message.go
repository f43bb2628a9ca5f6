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

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		log:            log,
	}
}

type SendMessageRequest struct {
	OrderID string  `json:"orderId" binding:"required"`
	Text    string  `json:"text" binding:"required"`
	Image   *string `json:"image"`
}

func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, err := uuid.Parse(c.Query("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId query parameter is required"})
		return
	}

	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	messages, totalCount, err := h.messageService.List(c.Request.Context(), userID, orderID, limit, offset)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"totalCount": totalCount,
	})
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), userID, orderID, req.Text, req.Image)
	if err != nil {
		h.log.Warn("Message send failed", "error", err, "order_id", orderID)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "message sent",
		"data":    message,
	})
}
