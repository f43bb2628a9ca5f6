package handler

import (
	"cargo_miniapp/internal/config"
	"cargo_miniapp/internal/push"
	"cargo_miniapp/internal/service"
	"cargo_miniapp/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Order     *OrderHandler
	Chat      *ChatHandler
	Message   *MessageHandler
	Payment   *PaymentHandler
	Comment   *CommentHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, pushSrv *push.Server, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Order:     NewOrderHandler(services.Order, log),
		Chat:      NewChatHandler(services.Chat, services.Message, log),
		Message:   NewMessageHandler(services.Message, log),
		Payment:   NewPaymentHandler(services.Payment, log),
		Comment:   NewCommentHandler(services.Comment, log),
		WebSocket: NewWebSocketHandler(services.Auth, pushSrv, log),
	}
}
