package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/coupons"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/database"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("order is not awaiting payment")
	ErrCodeCollision     = errors.New("order code collision")
)

// PlaceParams describes one checkout.
type PlaceParams struct {
	UserID     uuid.UUID
	Plan       plans.Plan
	CouponCode string // normalized; empty for none
	OrderCode  string
	Now        time.Time
}

// Contact is what notifications need to know about a buyer.
type Contact struct {
	FullName string
	Email    string
	Phone    string
}

// SalesRecord is an order joined with its buyer for the admin list.
type SalesRecord struct {
	models.Order
	UserEmail    string `json:"userEmail"`
	UserFullName string `json:"userFullName"`
}

// Store is the order persistence contract. Place, Approve and Reject are each one transaction.
type Store interface {
	Place(ctx context.Context, p PlaceParams) (*models.Order, error)
	Approve(ctx context.Context, id uuid.UUID, now time.Time) (*models.Order, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, status models.OrderStatus, page, pageSize int) ([]SalesRecord, int, error)
	Contact(ctx context.Context, userID uuid.UUID) (*Contact, error)
}

// Repository is the Postgres order store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an order repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, order_code, user_id, plan, amount, original_amount, coupon_code, coupon_discount::float8,
	is_free, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.OrderCode, &o.UserID, &o.Plan, &o.Amount, &o.OriginalAmount, &o.CouponCode,
		&o.CouponDiscount, &o.IsFree, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Place locks the coupon row, re-checks and prices it, counts the redemption and inserts
// the order. Free orders activate the plan in the same transaction.
func (r *Repository) Place(ctx context.Context, p PlaceParams) (*models.Order, error) {
	var out *models.Order
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var c *models.Coupon
		if p.CouponCode != "" {
			var err error
			c, err = coupons.LockByCode(ctx, tx, p.CouponCode)
			if errors.Is(err, coupons.ErrCouponNotFound) {
				return &coupons.InvalidCouponError{Code: p.CouponCode, Reason: coupons.ReasonNotFound}
			}
			if err != nil {
				return fmt.Errorf("lock coupon: %w", err)
			}
		}
		o, err := price(p.Plan, c, p.Now)
		if err != nil {
			return err
		}
		if c != nil {
			if err := coupons.IncrementUsage(ctx, tx, c.ID); err != nil {
				return err
			}
		}

		o, err = scanOrder(tx.QueryRow(ctx,
			`INSERT INTO orders (order_code, user_id, plan, amount, original_amount, coupon_code, coupon_discount, is_free, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+orderColumns,
			p.OrderCode, p.UserID, string(o.Plan), o.Amount, o.OriginalAmount, o.CouponCode, o.CouponDiscount, o.IsFree, string(o.Status)))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrCodeCollision
			}
			return fmt.Errorf("insert order: %w", err)
		}
		if o.IsFree {
			if err := activate(ctx, tx, p.UserID, p.Plan, p.Now); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	return out, err
}

// activate sets the subscription to plan and adds the plan's grants to both balances.
func activate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, plan plans.Plan, now time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO subscriptions (user_id, plan, status, started_at, expires_at)
		 VALUES ($1, $2, 'ACTIVE', $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET plan = EXCLUDED.plan, status = 'ACTIVE',
		   started_at = EXCLUDED.started_at, expires_at = EXCLUDED.expires_at, updated_at = NOW()`,
		userID, string(plan.ID), now, expiry(plan, now))
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE users SET credits = credits + $2, cv_chat_tokens = cv_chat_tokens + $3, updated_at = NOW() WHERE id = $1`,
		userID, plan.Credits, plan.CVChatTokens)
	if err != nil {
		return fmt.Errorf("grant plan: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("grant plan: user %s not found", userID)
	}
	return nil
}

// transition moves a PENDING_PAYMENT order to status under a row lock.
func transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderPendingPayment {
		return nil, ErrInvalidTransition
	}
	return scanOrder(tx.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+orderColumns, id, string(status)))
}

// Approve completes a bank transfer order and activates the plan.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID, now time.Time) (*models.Order, error) {
	var out *models.Order
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := transition(ctx, tx, id, models.OrderCompleted)
		if err != nil {
			return err
		}
		if err := activate(ctx, tx, o.UserID, plans.MustLookup(o.Plan), now); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// Reject closes a bank transfer order. Coupon usage is not refunded.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := transition(ctx, tx, id, models.OrderRejected)
		out = o
		return err
	})
	return out, err
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// List returns sales records for admins, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status models.OrderStatus, page, pageSize int) ([]SalesRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.order_code, o.user_id, o.plan, o.amount, o.original_amount, o.coupon_code, o.coupon_discount::float8,
		   o.is_free, o.status, o.created_at, o.updated_at, u.email, u.full_name
		 FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE ($1 = '' OR o.status = $1)
		 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`,
		string(status), pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []SalesRecord{}
	for rows.Next() {
		var s SalesRecord
		o := &s.Order
		if err := rows.Scan(&o.ID, &o.OrderCode, &o.UserID, &o.Plan, &o.Amount, &o.OriginalAmount, &o.CouponCode,
			&o.CouponDiscount, &o.IsFree, &o.Status, &o.CreatedAt, &o.UpdatedAt, &s.UserEmail, &s.UserFullName); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

// Contact returns the buyer's name, email and phone.
func (r *Repository) Contact(ctx context.Context, userID uuid.UUID) (*Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `SELECT full_name, email, COALESCE(phone,'') FROM users WHERE id = $1`, userID).
		Scan(&c.FullName, &c.Email, &c.Phone)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
