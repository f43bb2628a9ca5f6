package domain

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	SellerID      uuid.UUID  `json:"sellerId"`
	OrderNumber   int64      `json:"orderNumber"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Weight        float64    `json:"weight"`
	Price         float64    `json:"price"`
	PaidAmount    float64    `json:"paidAmount"`
	ContractFile  *string    `json:"contractFile,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	HasChat       bool       `json:"hasChat"`
	HasComment    bool       `json:"hasComment"`
	IsDeleted     bool       `json:"isDeleted"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Seller        *SellerRef `json:"seller,omitempty"`
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusInProcess = "IN_PROCESS"
	OrderStatusInBorder  = "IN_BORDER"
	OrderStatusDone      = "DONE"
)

const (
	PaymentStatusUnpaid  = "UNPAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"
)

// ValidOrderStatus проверяет значение фильтра статуса из query-параметров.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusInProcess, OrderStatusInBorder, OrderStatusDone:
		return true
	}
	return false
}
