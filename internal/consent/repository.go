package consent

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

// Store persists cookie consent records.
type Store interface {
	Latest(ctx context.Context, ip string, now time.Time) (*models.CookieConsent, error)
	Insert(ctx context.Context, c *models.CookieConsent) error
}

// Repository is the Postgres consent store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a consent repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Latest returns the newest unexpired consent for ip, or nil.
func (r *Repository) Latest(ctx context.Context, ip string, now time.Time) (*models.CookieConsent, error) {
	var c models.CookieConsent
	err := r.pool.QueryRow(ctx, `
		SELECT id, ip_address, consent_type, accepted_at, expires_at
		FROM cookie_consents WHERE ip_address = $1 AND expires_at > $2
		ORDER BY accepted_at DESC LIMIT 1`, ip, now,
	).Scan(&c.ID, &c.IPAddress, &c.ConsentType, &c.AcceptedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert stores c and fills its id.
func (r *Repository) Insert(ctx context.Context, c *models.CookieConsent) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO cookie_consents (ip_address, consent_type, accepted_at, expires_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		c.IPAddress, c.ConsentType, c.AcceptedAt, c.ExpiresAt,
	).Scan(&c.ID)
}
