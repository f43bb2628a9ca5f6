package service

import (
	"cargo_miniapp/internal/config"
	"cargo_miniapp/internal/push"
	"cargo_miniapp/internal/repository"
	"cargo_miniapp/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Order     OrderService
	Chat      ChatService
	Message   MessageService
	Payment   PaymentService
	Comment   CommentService
	RateLimit RateLimitService
	Audit     AuditService
}

func NewServices(repos *repository.Repositories, pushSrv *push.Server, notifier Notifier, cfg *config.Config, log logger.Logger) *Services {
	audit := NewAuditService(repos.Audit, log)

	return &Services{
		Auth:      NewAuthService(repos.User, repos.OTP, notifier, audit, cfg, log),
		User:      NewUserService(repos.User, log),
		Order:     NewOrderService(repos.Order, repos.Seller, log),
		Chat:      NewChatService(repos.Chat, repos.Order, audit, log),
		Message:   NewMessageService(repos.Message, repos.Order, repos.Chat, repos.User, pushSrv, notifier, audit, log),
		Payment:   NewPaymentService(repos.Payment, log),
		Comment:   NewCommentService(repos.Comment, repos.Order, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Audit:     audit,
	}
}
