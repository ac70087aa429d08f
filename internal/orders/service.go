// Package orders implements plan checkout: coupon redemption, manual bank transfer
// orders, free activation and admin approval.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/config"
	"github.com/kariyerai/backend/internal/coupons"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/metrics"
	"github.com/kariyerai/backend/pkg/queue"
)

// ErrNotPurchasable is returned for FREE or unknown plans.
var ErrNotPurchasable = errors.New("plan cannot be purchased")

const codeAttempts = 3

// Notifier queues outbound order notifications. *queue.Queue satisfies it.
type Notifier interface {
	EnqueueOrderNotification(ctx context.Context, t queue.JobType, n queue.OrderNotification) error
}

// PaymentInstructions tell the buyer where to send the transfer.
type PaymentInstructions struct {
	BankName        string `json:"bankName"`
	IBAN            string `json:"iban"`
	AccountHolder   string `json:"accountHolder"`
	Amount          int    `json:"amount"`
	Currency        string `json:"currency"`
	Reference       string `json:"reference"`
	WhatsAppContact string `json:"whatsappContact,omitempty"`
}

// Checkout is the result of placing an order.
type Checkout struct {
	Order                 *models.Order        `json:"order"`
	PaymentRequired       bool                 `json:"paymentRequired"`
	Payment               *PaymentInstructions `json:"payment,omitempty"`
	SubscriptionActivated bool                 `json:"subscriptionActivated"`
}

// CreateRequest is the body for POST /orders.
type CreateRequest struct {
	Plan           string `json:"plan" binding:"required"`
	OriginalAmount int    `json:"originalAmount"`
	CouponCode     string `json:"couponCode"`
}

// Service runs the checkout flow.
type Service struct {
	store    Store
	resolver *coupons.Resolver
	notifier Notifier
	billing  config.BillingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the order service. notifier may be nil.
func NewService(store Store, resolver *coupons.Resolver, notifier Notifier, billing config.BillingConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, resolver: resolver, notifier: notifier, billing: billing, logger: logger, now: time.Now}
}

// Create validates the request, previews the coupon and places the order.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Checkout, error) {
	id, err := plans.Parse(req.Plan)
	if err != nil || !plans.Purchasable(id) {
		return nil, ErrNotPurchasable
	}
	plan := plans.MustLookup(id)
	if err := coupons.CheckPrice(id, req.OriginalAmount); err != nil {
		return nil, err
	}
	code := coupons.Normalize(req.CouponCode)
	if code != "" {
		// Read-only preview; Place re-checks under the row lock.
		if _, err := s.resolver.Resolve(ctx, code, id, req.OriginalAmount); err != nil {
			return nil, err
		}
	}

	var o *models.Order
	for attempt := 0; attempt < codeAttempts; attempt++ {
		orderCode, err := NewOrderCode()
		if err != nil {
			return nil, err
		}
		o, err = s.store.Place(ctx, PlaceParams{UserID: userID, Plan: plan, CouponCode: code, OrderCode: orderCode, Now: s.now()})
		if errors.Is(err, ErrCodeCollision) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if o == nil {
		return nil, ErrCodeCollision
	}
	metrics.RecordOrder(string(o.Plan), o.IsFree)

	out := &Checkout{Order: o}
	if o.IsFree {
		out.SubscriptionActivated = true
		s.logger.Info("free order activated",
			zap.String("order_code", o.OrderCode),
			zap.String("user_id", userID.String()),
			zap.String("plan", string(o.Plan)))
		s.notify(ctx, queue.JobOrderActivated, o)
		return out, nil
	}
	out.PaymentRequired = true
	out.Payment = &PaymentInstructions{
		BankName:        s.billing.BankName,
		IBAN:            s.billing.IBAN,
		AccountHolder:   s.billing.AccountHolder,
		Amount:          o.Amount,
		Currency:        s.billing.Currency,
		Reference:       o.OrderCode,
		WhatsAppContact: s.billing.WhatsAppContact,
	}
	s.notify(ctx, queue.JobOrderAwaitingPayment, o)
	return out, nil
}

// Approve marks a transfer as received and activates the plan.
func (s *Service) Approve(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.store.Approve(ctx, orderID, s.now())
	if err != nil {
		return nil, err
	}
	s.notify(ctx, queue.JobOrderActivated, o)
	return o, nil
}

// Reject closes an unpaid order.
func (s *Service) Reject(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.store.Reject(ctx, orderID)
}

// Mine lists the caller's orders.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// SalesRecords lists orders for admins.
func (s *Service) SalesRecords(ctx context.Context, status models.OrderStatus, page, pageSize int) ([]SalesRecord, int, error) {
	return s.store.List(ctx, status, page, pageSize)
}

// notify queues a notification. Failures are logged; the order stands.
func (s *Service) notify(ctx context.Context, t queue.JobType, o *models.Order) {
	if s.notifier == nil {
		return
	}
	n := queue.OrderNotification{
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		UserID:    o.UserID,
		Plan:      string(o.Plan),
		Amount:    o.Amount,
		Currency:  s.billing.Currency,
	}
	if c, err := s.store.Contact(ctx, o.UserID); err == nil {
		n.UserName, n.UserEmail, n.UserPhone = c.FullName, c.Email, c.Phone
	} else {
		s.logger.Warn("order contact lookup failed", zap.String("order_code", o.OrderCode), zap.Error(err))
	}
	if err := s.notifier.EnqueueOrderNotification(ctx, t, n); err != nil {
		s.logger.Error("enqueue order notification failed",
			zap.String("order_code", o.OrderCode),
			zap.String("type", string(t)),
			zap.Error(err))
	}
}
