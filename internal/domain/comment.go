package domain

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber int64     `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	SellerID    uuid.UUID `json:"sellerId"`
	Stars       int       `json:"stars"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	User        *UserRef  `json:"user,omitempty"`
}

// UserRef - краткая информация о пользователе для вложенных ответов API.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
}
