package orders

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/kariyerai/backend/internal/coupons"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
)

// codeAlphabet omits 0/O and 1/I so codes survive being read over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderCode returns a user-facing reference like KAI-7F3K9Q2M.
func NewOrderCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("order code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return "KAI-" + string(b), nil
}

// price builds the order for plan, redeeming c when given. c must be the locked,
// current row; a coupon that stopped being usable since the preview is rejected here.
func price(plan plans.Plan, c *models.Coupon, now time.Time) (*models.Order, error) {
	o := &models.Order{
		Plan:           plan.ID,
		Amount:         plan.Price,
		OriginalAmount: plan.Price,
		Status:         models.OrderPendingPayment,
	}
	if c != nil {
		if reason := coupons.CheckUsable(c, plan.ID, now); reason != coupons.ReasonNone {
			return nil, &coupons.InvalidCouponError{Code: c.Code, Reason: reason}
		}
		q := coupons.Apply(c, plan.Price)
		code := c.Code
		discount := q.DiscountAmount
		o.Amount = q.FinalPrice
		o.CouponCode = &code
		o.CouponDiscount = &discount
	}
	o.IsFree = o.Amount == 0
	if o.IsFree {
		o.Status = models.OrderCompleted
	}
	return o, nil
}

// expiry returns when a plan activated at now lapses, or nil for no expiry.
func expiry(plan plans.Plan, now time.Time) *time.Time {
	if plan.DurationDays <= 0 {
		return nil
	}
	t := now.AddDate(0, 0, plan.DurationDays)
	return &t
}
