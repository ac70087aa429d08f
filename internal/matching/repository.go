package matching

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

// Store persists match results.
type Store interface {
	Create(ctx context.Context, m *models.MatchResult) error
	ListByCV(ctx context.Context, userID, cvID uuid.UUID) ([]models.MatchResult, error)
}

// Repository is the Postgres match result store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a match result repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts m.
func (r *Repository) Create(ctx context.Context, m *models.MatchResult) error {
	strengths, _ := json.Marshal(m.Strengths)
	gaps, _ := json.Marshal(m.Gaps)
	return r.pool.QueryRow(ctx, `
		INSERT INTO match_results (user_id, cv_id, job_id, score, feedback, strengths, gaps, credits_charged)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		m.UserID, m.CVID, m.JobID, m.Score, m.Feedback, strengths, gaps, m.CreditsCharged,
	).Scan(&m.ID, &m.CreatedAt)
}

// ListByCV returns the owner's results for one CV, newest first.
func (r *Repository) ListByCV(ctx context.Context, userID, cvID uuid.UUID) ([]models.MatchResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, cv_id, job_id, score, feedback, strengths, gaps, credits_charged, created_at
		FROM match_results WHERE user_id = $1 AND cv_id = $2
		ORDER BY created_at DESC`, userID, cvID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MatchResult
	for rows.Next() {
		var m models.MatchResult
		var score int16
		var strengths, gaps []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.CVID, &m.JobID, &score, &m.Feedback, &strengths, &gaps,
			&m.CreditsCharged, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Score = int(score)
		_ = json.Unmarshal(strengths, &m.Strengths)
		_ = json.Unmarshal(gaps, &m.Gaps)
		list = append(list, m)
	}
	return list, rows.Err()
}
