package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Phone          string     `json:"phone"`
	FullName       string     `json:"fullName"`
	Gender         *string    `json:"gender,omitempty"`
	Birthday       *time.Time `json:"birthday,omitempty"`
	TelegramChatID *int64     `json:"-"`
	SellerID       *uuid.UUID `json:"sellerId,omitempty"`
	IsDeleted      bool       `json:"isDeleted"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Seller struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	About     *string   `json:"about,omitempty"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SellerRef - краткая информация о продавце для вложенных ответов API.
type SellerRef struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
}

type UserSession struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	RefreshTokenHash string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedReason    *string    `json:"revoked_reason,omitempty"`
}

const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)
