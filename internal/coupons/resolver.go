// Package coupons validates discount codes and computes final plan prices.
// Validation is read-only; usage is only counted by the order flow.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
)

var (
	ErrCouponNotFound = errors.New("coupon not found")
	ErrPriceMismatch  = errors.New("original price does not match the plan price")
)

// Reason explains why a coupon cannot be used.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotFound      Reason = "NOT_FOUND"
	ReasonInactive      Reason = "INACTIVE"
	ReasonOutOfWindow   Reason = "OUT_OF_WINDOW"
	ReasonUsageExceeded Reason = "USAGE_EXCEEDED"
	ReasonPlanMismatch  Reason = "PLAN_MISMATCH"
)

// InvalidCouponError is a user-correctable rejection.
type InvalidCouponError struct {
	Code   string
	Reason Reason
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("coupon %q invalid: %s", e.Code, e.Reason)
}

// Quote is the priced result of a usable coupon.
type Quote struct {
	Code           string  `json:"code"`
	OriginalPrice  int     `json:"originalPrice"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalPrice     int     `json:"finalPrice"`
	IsFree         bool    `json:"isFree"`
}

// Normalize trims and upper-cases a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckUsable returns ReasonNone if c applies to plan at now.
// The window is inclusive at both ends; a nil ValidUntil never closes.
func CheckUsable(c *models.Coupon, plan models.Plan, now time.Time) Reason {
	switch {
	case c == nil:
		return ReasonNotFound
	case !c.IsActive:
		return ReasonInactive
	case now.Before(c.ValidFrom), c.ValidUntil != nil && now.After(*c.ValidUntil):
		return ReasonOutOfWindow
	case c.MaxUsage != nil && c.UsageCount >= *c.MaxUsage:
		return ReasonUsageExceeded
	case c.PlanRestriction != nil && *c.PlanRestriction != plan:
		return ReasonPlanMismatch
	}
	return ReasonNone
}

// Apply prices original with c. It does not check usability.
func Apply(c *models.Coupon, original int) Quote {
	orig := float64(original)
	var discount float64
	switch c.DiscountType {
	case models.DiscountPercent:
		discount = orig * c.DiscountValue / 100
	case models.DiscountFixed:
		discount = math.Min(c.DiscountValue, orig)
	}
	discount = math.Max(0, math.Min(discount, orig))
	discount = math.Round(discount*100) / 100

	final := int(math.Round(orig - discount))
	if final < 0 {
		final = 0
	}
	return Quote{
		Code:           c.Code,
		OriginalPrice:  original,
		DiscountAmount: discount,
		FinalPrice:     final,
		IsFree:         final == 0,
	}
}

// Finder looks coupons up by normalized code. Missing codes return ErrCouponNotFound.
type Finder interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// Resolver is the read-only validation path used by checkout previews.
type Resolver struct {
	finder Finder
	now    func() time.Time
}

// NewResolver creates a resolver over finder.
func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder, now: time.Now}
}

// CheckPrice verifies original against the catalog price of plan.
func CheckPrice(plan models.Plan, original int) error {
	p, err := plans.Lookup(plan)
	if err != nil {
		return err
	}
	if p.Price != original {
		return ErrPriceMismatch
	}
	return nil
}

// Resolve validates code for plan and prices it. Rejections are *InvalidCouponError.
func (r *Resolver) Resolve(ctx context.Context, code string, plan models.Plan, original int) (*Quote, error) {
	if err := CheckPrice(plan, original); err != nil {
		return nil, err
	}
	code = Normalize(code)
	if code == "" {
		return nil, &InvalidCouponError{Code: code, Reason: ReasonNotFound}
	}
	c, err := r.finder.GetByCode(ctx, code)
	if errors.Is(err, ErrCouponNotFound) {
		return nil, &InvalidCouponError{Code: code, Reason: ReasonNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup coupon: %w", err)
	}
	if reason := CheckUsable(c, plan, r.now()); reason != ReasonNone {
		return nil, &InvalidCouponError{Code: code, Reason: reason}
	}
	q := Apply(c, original)
	return &q, nil
}
