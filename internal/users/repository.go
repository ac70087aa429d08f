// Package users serves the caller's profile and the admin user directory.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/database"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidPatch = errors.New("invalid user update")
)

// Patch is a partial admin update. Nil fields are left unchanged.
type Patch struct {
	Credits      *int         `json:"credits"`
	CVChatTokens *int         `json:"cvChatTokens"`
	Role         *models.Role `json:"role"`
	Plan         *models.Plan `json:"plan"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Credits == nil && p.CVChatTokens == nil && p.Role == nil && p.Plan == nil
}

// Store is the user directory contract.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.UserPublic, error)
	Search(ctx context.Context, q string, page, size int) ([]models.UserPublic, int, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*models.UserPublic, error)
}

// Repository is the Postgres Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT u.id, u.email, u.full_name, COALESCE(u.phone,''), u.role, u.credits, u.cv_chat_tokens,
	COALESCE(s.plan,'FREE'), u.created_at
	FROM users u LEFT JOIN subscriptions s ON s.user_id = u.id`

func scan(row pgx.Row) (*models.UserPublic, error) {
	var u models.UserPublic
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Role, &u.Credits, &u.CVChatTokens, &u.Plan, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.UserPublic, error) {
	return scan(r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
}

// Search matches q against email and full name, newest first.
func (r *Repository) Search(ctx context.Context, q string, page, size int) ([]models.UserPublic, int, error) {
	where, args := "", []interface{}{}
	if q = strings.TrimSpace(q); q != "" {
		where = ` WHERE u.email ILIKE $1 OR u.full_name ILIKE $1`
		args = append(args, "%"+q+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	args = append(args, size, (page-1)*size)
	rows, err := r.pool.Query(ctx,
		selectUser+where+fmt.Sprintf(` ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []models.UserPublic
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

// Update applies p in one transaction. A plan change upserts the subscription as ACTIVE.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Patch) (*models.UserPublic, error) {
	var role *string
	if p.Role != nil {
		s := string(*p.Role)
		role = &s
	}
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET credits = COALESCE($2, credits), cv_chat_tokens = COALESCE($3, cv_chat_tokens),
			 role = COALESCE($4, role), updated_at = NOW() WHERE id = $1`,
			id, p.Credits, p.CVChatTokens, role)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if p.Plan != nil {
			_, err = tx.Exec(ctx,
				`INSERT INTO subscriptions (user_id, plan, status) VALUES ($1, $2, 'ACTIVE')
				 ON CONFLICT (user_id) DO UPDATE SET plan = EXCLUDED.plan, status = 'ACTIVE', updated_at = NOW()`,
				id, string(*p.Plan))
			if err != nil {
				return fmt.Errorf("update subscription: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
