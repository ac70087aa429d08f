package cvs

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

var (
	ErrNotFound     = errors.New("cv not found")
	ErrLimitReached = errors.New("cv limit reached for your plan")
)

// Store is the CV persistence contract. Every read and write is scoped to the owner.
type Store interface {
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.CV, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.CV, error)
	// Create inserts cv only while the owner holds fewer than limit CVs.
	Create(ctx context.Context, cv *models.CV, limit int) error
	Update(ctx context.Context, cv *models.CV) error
	SetPDFKey(ctx context.Context, userID, id uuid.UUID, key string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Repository is the Postgres CV store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a CV repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const cvColumns = `id, user_id, title, source, data, pdf_key, created_at, updated_at`

func scanCV(row pgx.Row) (*models.CV, error) {
	var cv models.CV
	var data []byte
	err := row.Scan(&cv.ID, &cv.UserID, &cv.Title, &cv.Source, &data, &cv.PDFKey, &cv.CreatedAt, &cv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cv.Data = json.RawMessage(data)
	return &cv, nil
}

// Count returns how many CVs userID owns.
func (r *Repository) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cvs WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// List returns the owner's CVs, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.CV, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cvColumns+` FROM cvs WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CV
	for rows.Next() {
		cv, err := scanCV(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cv)
	}
	return list, rows.Err()
}

// Get returns one of the owner's CVs.
func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (*models.CV, error) {
	return scanCV(r.pool.QueryRow(ctx, `SELECT `+cvColumns+` FROM cvs WHERE id = $1 AND user_id = $2`, id, userID))
}

// Create inserts cv under the plan limit. The count and insert share one statement.
func (r *Repository) Create(ctx context.Context, cv *models.CV, limit int) error {
	data := []byte(cv.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cvs (user_id, title, source, data, pdf_key)
		SELECT $1::uuid, $2::text, $3::text, $4::jsonb, $5::text
		WHERE (SELECT COUNT(*) FROM cvs WHERE user_id = $1::uuid) < $6::int
		RETURNING id, created_at, updated_at`,
		cv.UserID, cv.Title, cv.Source, data, cv.PDFKey, limit,
	).Scan(&cv.ID, &cv.CreatedAt, &cv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLimitReached
	}
	return err
}

// Update rewrites title and data.
func (r *Repository) Update(ctx context.Context, cv *models.CV) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE cvs SET title = $3, data = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 RETURNING updated_at`,
		cv.ID, cv.UserID, cv.Title, []byte(cv.Data),
	).Scan(&cv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// SetPDFKey records where the original upload is stored.
func (r *Repository) SetPDFKey(ctx context.Context, userID, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cvs SET pdf_key = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`, id, userID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one of the owner's CVs.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cvs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
