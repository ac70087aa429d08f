package coupons

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

var (
	ErrCodeTaken    = errors.New("coupon code already exists")
	ErrInvalidInput = errors.New("invalid coupon")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// Validate checks admin-supplied coupon fields.
func Validate(c *models.Coupon) error {
	if !codePattern.MatchString(c.Code) {
		return fmt.Errorf("%w: code must be 3-32 characters of A-Z, 0-9, _ or -", ErrInvalidInput)
	}
	switch c.DiscountType {
	case models.DiscountPercent:
		if c.DiscountValue < 0 || c.DiscountValue > 100 {
			return fmt.Errorf("%w: percent discount must be between 0 and 100", ErrInvalidInput)
		}
	case models.DiscountFixed:
		if c.DiscountValue < 0 {
			return fmt.Errorf("%w: fixed discount must not be negative", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: discountType must be PERCENT or FIXED", ErrInvalidInput)
	}
	if c.ValidUntil != nil && c.ValidUntil.Before(c.ValidFrom) {
		return fmt.Errorf("%w: validUntil is before validFrom", ErrInvalidInput)
	}
	if c.MaxUsage != nil && *c.MaxUsage < 0 {
		return fmt.Errorf("%w: maxUsage must not be negative", ErrInvalidInput)
	}
	if c.PlanRestriction != nil {
		switch *c.PlanRestriction {
		case models.PlanBasic, models.PlanPremium:
		default:
			return fmt.Errorf("%w: planRestriction must be a purchasable plan", ErrInvalidInput)
		}
	}
	return nil
}

// Store is the coupon persistence used by the resolver and admin endpoints.
type Store interface {
	Finder
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context, page, pageSize int) ([]models.Coupon, int, error)
	Create(ctx context.Context, c *models.Coupon) error
	Update(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository is the Postgres coupon store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a coupon repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const couponColumns = `id, code, discount_type, discount_value::float8, valid_from, valid_until, max_usage, usage_count,
	plan_restriction, is_active, created_at, updated_at`

func scanCoupon(row pgx.Row) (*models.Coupon, error) {
	var c models.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.ValidFrom, &c.ValidUntil, &c.MaxUsage,
		&c.UsageCount, &c.PlanRestriction, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByCode returns the coupon with the normalized code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, Normalize(code)))
}

// LockByCode reads the coupon inside tx and holds its row lock until tx ends.
func LockByCode(ctx context.Context, tx pgx.Tx, code string) (*models.Coupon, error) {
	return scanCoupon(tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, Normalize(code)))
}

// IncrementUsage counts one redemption inside tx.
func IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `UPDATE coupons SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrCouponNotFound
	}
	return nil
}

// GetByID returns one coupon.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	return scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
}

// List returns one page of coupons, newest first.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Coupon, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *c)
	}
	return list, total, rows.Err()
}

// Create inserts c and fills server-generated fields.
func (r *Repository) Create(ctx context.Context, c *models.Coupon) error {
	if c.ValidFrom.IsZero() {
		c.ValidFrom = time.Now()
	}
	const q = `INSERT INTO coupons (code, discount_type, discount_value, valid_from, valid_until, max_usage, plan_restriction, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, usage_count, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.Code, string(c.DiscountType), c.DiscountValue, c.ValidFrom, c.ValidUntil,
		c.MaxUsage, c.PlanRestriction, c.IsActive).Scan(&c.ID, &c.UsageCount, &c.CreatedAt, &c.UpdatedAt)
	return mapWriteErr(err)
}

// Update rewrites the editable fields. usage_count is never written here.
func (r *Repository) Update(ctx context.Context, c *models.Coupon) error {
	const q = `UPDATE coupons SET code = $2, discount_type = $3, discount_value = $4, valid_from = $5, valid_until = $6,
		max_usage = $7, plan_restriction = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1 RETURNING usage_count, updated_at`
	err := r.pool.QueryRow(ctx, q, c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.ValidFrom, c.ValidUntil,
		c.MaxUsage, c.PlanRestriction, c.IsActive).Scan(&c.UsageCount, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCouponNotFound
	}
	return mapWriteErr(err)
}

// Delete removes a coupon. Orders keep the code they were priced with.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrCodeTaken
	}
	return err
}
