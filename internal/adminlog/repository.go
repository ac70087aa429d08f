package adminlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

// Store persists audit entries. Entries are never updated.
type Store interface {
	Append(ctx context.Context, e *models.AdminLog) error
	Query(ctx context.Context, f Filter) ([]models.AdminLog, int, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Repository is the Postgres audit store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts e and fills ID and CreatedAt.
func (r *Repository) Append(ctx context.Context, e *models.AdminLog) error {
	details := e.Details
	if len(details) == 0 {
		details = []byte("{}")
	}
	const q = `INSERT INTO admin_logs (admin_id, action, target_type, target_id, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, e.AdminID, string(e.Action), string(e.TargetType), e.TargetID, details, e.IPAddress).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert admin log: %w", err)
	}
	return nil
}

// Query returns one page newest first and the total match count.
func (r *Repository) Query(ctx context.Context, f Filter) ([]models.AdminLog, int, error) {
	where, args := f.where()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count admin logs: %w", err)
	}

	q := `SELECT id, admin_id, action, target_type, target_id, details, ip_address, created_at FROM admin_logs` +
		where + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("query admin logs: %w", err)
	}
	defer rows.Close()
	list := make([]models.AdminLog, 0, f.PageSize)
	for rows.Next() {
		var e models.AdminLog
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TargetType, &e.TargetID, &e.Details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	return list, total, rows.Err()
}

// Purge deletes entries created before the cutoff.
func (r *Repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admin_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge admin logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
