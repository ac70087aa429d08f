package entitlements

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/pkg/database"
)

// PostgresStore keeps balances on the users row and the ledger in consumption_ledger.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed entitlement store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Snapshot returns balances and the current subscription (FREE/ACTIVE when no row exists).
func (s *PostgresStore) Snapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	const q = `SELECT u.id, u.credits, u.cv_chat_tokens,
		COALESCE(s.plan, 'FREE'), COALESCE(s.status, 'ACTIVE'), s.expires_at
		FROM users u LEFT JOIN subscriptions s ON s.user_id = u.id
		WHERE u.id = $1`
	var snap Snapshot
	err := s.pool.QueryRow(ctx, q, userID).Scan(&snap.UserID, &snap.Credits, &snap.CVChatTokens, &snap.Plan, &snap.Status, &snap.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &snap, nil
}

// Balance returns one balance.
func (s *PostgresStore) Balance(ctx context.Context, userID uuid.UUID, r Resource) (int, error) {
	col, err := r.column()
	if err != nil {
		return 0, err
	}
	var n int
	err = s.pool.QueryRow(ctx, `SELECT `+col+` FROM users WHERE id = $1`, userID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return n, nil
}

// Settled looks up a committed ledger row.
func (s *PostgresStore) Settled(ctx context.Context, requestID string) (*DebitResult, error) {
	res := &DebitResult{Duplicate: true}
	err := s.pool.QueryRow(ctx,
		`SELECT requested, charged, balance_after FROM consumption_ledger WHERE request_id = $1`,
		requestID).Scan(&res.Requested, &res.Charged, &res.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	return res, nil
}

// Debit claims the request id in the ledger, then decrements with a guarded update.
// If the guard fails (a concurrent debit drained the balance) it clamps at zero in one
// row-locked statement and reports Underflow.
func (s *PostgresStore) Debit(ctx context.Context, req DebitRequest) (*DebitResult, error) {
	if err := validateDebit(req); err != nil {
		return nil, err
	}
	col, _ := req.Resource.column()
	res := &DebitResult{Requested: req.Amount}

	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO consumption_ledger (request_id, user_id, resource, operation, requested)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (request_id) DO NOTHING`,
			req.RequestID, req.UserID, string(req.Resource), req.Operation, req.Amount)
		if err != nil {
			return fmt.Errorf("claim request id: %w", err)
		}
		if tag.RowsAffected() == 0 {
			res.Duplicate = true
			err := tx.QueryRow(ctx, `SELECT `+col+` FROM users WHERE id = $1`, req.UserID).Scan(&res.Balance)
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		err = tx.QueryRow(ctx,
			`UPDATE users SET `+col+` = `+col+` - $2, updated_at = NOW()
			 WHERE id = $1 AND `+col+` >= $2 RETURNING `+col,
			req.UserID, req.Amount).Scan(&res.Balance)
		switch {
		case err == nil:
			res.Charged = req.Amount
		case errors.Is(err, pgx.ErrNoRows):
			var before int
			err = tx.QueryRow(ctx,
				`UPDATE users u SET `+col+` = GREATEST(b.before - $2, 0), updated_at = NOW()
				 FROM (SELECT id, `+col+` AS before FROM users WHERE id = $1 FOR UPDATE) b
				 WHERE u.id = b.id RETURNING b.before, u.`+col,
				req.UserID, req.Amount).Scan(&before, &res.Balance)
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			if err != nil {
				return fmt.Errorf("clamp debit: %w", err)
			}
			res.Charged = before - res.Balance
			res.Underflow = res.Charged < req.Amount
		default:
			return fmt.Errorf("debit: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE consumption_ledger SET charged = $2, balance_after = $3 WHERE request_id = $1`,
			req.RequestID, res.Charged, res.Balance)
		if err != nil {
			return fmt.Errorf("settle ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
