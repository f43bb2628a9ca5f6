package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"cargo_miniapp/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Seller    SellerRepository
	Order     OrderRepository
	Chat      ChatRepository
	Message   MessageRepository
	Payment   PaymentRepository
	Comment   CommentRepository
	Audit     AuditRepository
	OTP       OTPRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db, log),
		Seller:    NewSellerRepository(db, log),
		Order:     NewOrderRepository(db, log),
		Chat:      NewChatRepository(db, log),
		Message:   NewMessageRepository(db, log),
		Payment:   NewPaymentRepository(db, log),
		Comment:   NewCommentRepository(db, log),
		Audit:     NewAuditRepository(db, log),
		OTP:       NewOTPRepository(rdb, log),
		RateLimit: NewRateLimitRepository(rdb, log),
	}
}
