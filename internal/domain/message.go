package domain

import (
	"time"

	"github.com/google/uuid"
)

// Chat - запись о том, что переписка по заказу открыта.
// На один заказ существует не более одного чата.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	UserID    uuid.UUID `json:"userId"`
	SellerID  uuid.UUID `json:"sellerId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"orderId"`
	OrderNumber int64      `json:"orderNumber"`
	UserID      uuid.UUID  `json:"userId"`
	SellerID    uuid.UUID  `json:"sellerId"`
	SenderRole  string     `json:"senderType"`
	Text        string     `json:"text"`
	Image       *string    `json:"image,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Seller      *SellerRef `json:"seller,omitempty"`
}

const (
	SenderRoleUser   = "USER"
	SenderRoleSeller = "SELLER"
)

// MaxMessageLength - предел длины текста сообщения в кодовых точках.
const MaxMessageLength = 1000
