package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType is percent or fixed.
type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

// Coupon is a discount code for plan purchases.
type Coupon struct {
	ID              uuid.UUID    `json:"id"`
	Code            string       `json:"code"`
	DiscountType    DiscountType `json:"discountType"`
	DiscountValue   float64      `json:"discountValue"`
	ValidFrom       time.Time    `json:"validFrom"`
	ValidUntil      *time.Time   `json:"validUntil,omitempty"`
	MaxUsage        *int         `json:"maxUsage,omitempty"`
	UsageCount      int          `json:"usageCount"`
	PlanRestriction *Plan        `json:"planRestriction,omitempty"`
	IsActive        bool         `json:"isActive"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}
