// Package joblistings serves the job catalog CVs are matched against.
package joblistings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

var (
	ErrNotFound     = errors.New("job listing not found")
	ErrInvalidInput = errors.New("invalid job listing")
)

// Query filters catalog listings.
type Query struct {
	Search     string
	Location   string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// Store is the job listing persistence contract.
type Store interface {
	List(ctx context.Context, q Query) ([]models.JobListing, int, error)
	Get(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
	Create(ctx context.Context, j *models.JobListing) error
	Update(ctx context.Context, j *models.JobListing) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Validate checks the required fields.
func Validate(j *models.JobListing) error {
	j.Title = strings.TrimSpace(j.Title)
	j.Company = strings.TrimSpace(j.Company)
	j.Description = strings.TrimSpace(j.Description)
	switch {
	case j.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case j.Company == "":
		return fmt.Errorf("%w: company is required", ErrInvalidInput)
	case j.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	return nil
}

// Repository is the Postgres job listing store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a job listing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `id, title, company, location, employment_type, description, requirements, is_active, created_at, updated_at`

func scanJob(row pgx.Row) (*models.JobListing, error) {
	var j models.JobListing
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.EmploymentType, &j.Description,
		&j.Requirements, &j.IsActive, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (q Query) where() (string, []any) {
	var b strings.Builder
	b.WriteString(" WHERE 1=1")
	var args []any
	if q.ActiveOnly {
		b.WriteString(" AND is_active")
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		args = append(args, "%"+s+"%")
		fmt.Fprintf(&b, " AND (title ILIKE $%d OR company ILIKE $%d OR description ILIKE $%d)", len(args), len(args), len(args))
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		args = append(args, "%"+l+"%")
		fmt.Fprintf(&b, " AND location ILIKE $%d", len(args))
	}
	return b.String(), args
}

// List returns one page of listings matching q, newest first.
func (r *Repository) List(ctx context.Context, q Query) ([]models.JobListing, int, error) {
	where, args := q.where()
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM job_listings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM job_listings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.JobListing
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *j)
	}
	return list, total, rows.Err()
}

// Get returns one listing.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM job_listings WHERE id = $1`, id))
}

// Create inserts j.
func (r *Repository) Create(ctx context.Context, j *models.JobListing) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO job_listings (title, company, location, employment_type, description, requirements, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		j.Title, j.Company, j.Location, j.EmploymentType, j.Description, j.Requirements, j.IsActive,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

// Update rewrites every editable field of j.
func (r *Repository) Update(ctx context.Context, j *models.JobListing) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE job_listings SET title = $2, company = $3, location = $4, employment_type = $5, description = $6,
			requirements = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		j.ID, j.Title, j.Company, j.Location, j.EmploymentType, j.Description, j.Requirements, j.IsActive,
	).Scan(&j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a listing and, by cascade, its match results.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_listings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
