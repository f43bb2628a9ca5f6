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

type CommentHandler struct {
	commentService service.CommentService
	log            logger.Logger
}

func NewCommentHandler(commentService service.CommentService, log logger.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            log,
	}
}

type CreateCommentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Stars   int    `json:"stars" binding:"required"`
	Text    string `json:"text"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), userID, orderID, req.Stars, req.Text)
	if err != nil {
		h.log.Warn("Comment creation failed", "error", err, "order_id", orderID)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, err := orderIDQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	comments, totalCount, err := h.commentService.List(c.Request.Context(), userID, orderID, limit, offset)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments":   comments,
		"totalCount": totalCount,
	})
}
