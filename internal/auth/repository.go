package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/database"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserStore is what the auth handler needs from persistence.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, p CreateUserParams) (*models.User, error)
}

// CreateUserParams holds the fields of a new account.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         models.Role
}

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, COALESCE(phone,''), role, credits, cv_chat_tokens, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Phone, &u.Role, &u.Credits, &u.CVChatTokens, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
}

// Create inserts a user with the FREE plan grants and a FREE/ACTIVE subscription in one transaction.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	free := plans.MustLookup(models.PlanFree)
	var u *models.User
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx,
			`INSERT INTO users (email, password_hash, full_name, phone, role, credits, cv_chat_tokens)
			 VALUES (LOWER($1), $2, $3, NULLIF($4,''), $5, $6, $7)
			 RETURNING `+userColumns,
			strings.TrimSpace(p.Email), p.PasswordHash, p.FullName, p.Phone, string(p.Role), free.Credits, free.CVChatTokens))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO subscriptions (user_id, plan, status) VALUES ($1, $2, $3)`,
			u.ID, string(models.PlanFree), string(models.SubscriptionActive))
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
