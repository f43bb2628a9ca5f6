package domain

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	OrderID     uuid.UUID  `json:"orderId"`
	OrderNumber int64      `json:"orderNumber"`
	SellerID    uuid.UUID  `json:"sellerId"`
	Document    *string    `json:"document,omitempty"`
	Amount      float64    `json:"amount"`
	IsDeleted   bool       `json:"isDeleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Seller      *SellerRef `json:"seller,omitempty"`
	Order       *OrderRef  `json:"order,omitempty"`
}

// OrderRef - краткая информация о заказе для вложенных ответов API.
type OrderRef struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber int64     `json:"orderNumber"`
	Name        string    `json:"name"`
}
