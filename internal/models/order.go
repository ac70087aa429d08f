package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus for orders.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderCompleted      OrderStatus = "COMPLETED"
	OrderRejected       OrderStatus = "REJECTED"
)

// Order is a plan purchase. Amounts are whole TRY.
type Order struct {
	ID             uuid.UUID   `json:"id"`
	OrderCode      string      `json:"orderCode"`
	UserID         uuid.UUID   `json:"userId"`
	Plan           Plan        `json:"plan"`
	Amount         int         `json:"amount"`
	OriginalAmount int         `json:"originalAmount"`
	CouponCode     *string     `json:"couponCode,omitempty"`
	CouponDiscount *float64    `json:"couponDiscount,omitempty"`
	IsFree         bool        `json:"isFree"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}
