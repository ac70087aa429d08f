package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kariyerai/backend/internal/models"
)

var (
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrRoomClosed    = errors.New("chat room is closed")
	ErrRoomActive    = errors.New("chat room is still active")
	ErrNotConsultant = errors.New("user is not a consultant")
)

// Store is the chat persistence contract. AppendMessage must only succeed while the
// room is ACTIVE, checked in the same statement that writes the row.
type Store interface {
	IsConsultant(ctx context.Context, id uuid.UUID) (bool, error)
	GetOrCreateRoom(ctx context.Context, userID, consultantID uuid.UUID) (*models.ChatRoom, bool, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, viewer uuid.UUID, side models.SenderType) ([]models.ChatRoom, error)
	ListMessages(ctx context.Context, roomID uuid.UUID, after int64, limit int) ([]models.ChatMessage, error)
	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	Close(ctx context.Context, roomID uuid.UUID, rating *int, comment string, now time.Time) (*models.ChatRoom, error)
	Restart(ctx context.Context, roomID uuid.UUID) (*models.ChatRoom, error)
	Rate(ctx context.Context, roomID uuid.UUID, rating int, comment string) (*models.ChatRoom, error)
	MarkRead(ctx context.Context, roomID uuid.UUID, reader models.SenderType) (int, error)
}

// Repository is the Postgres chat store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roomColumns = `id, user_id, consultant_id, status, rating, COALESCE(rating_comment, ''), closed_at, created_at, updated_at`

func scanRoom(row pgx.Row, extra ...any) (*models.ChatRoom, error) {
	var r models.ChatRoom
	var rating *int16
	dest := []any{&r.ID, &r.UserID, &r.ConsultantID, &r.Status, &rating, &r.RatingComment, &r.ClosedAt, &r.CreatedAt, &r.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if rating != nil {
		v := int(*rating)
		r.Rating = &v
	}
	return &r, nil
}

// IsConsultant reports whether id belongs to a CONSULTANT account.
func (r *Repository) IsConsultant(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = 'CONSULTANT')`, id).Scan(&ok)
	return ok, err
}

// GetOrCreateRoom returns the room for the pair, creating it if needed. created reports an insert.
func (r *Repository) GetOrCreateRoom(ctx context.Context, userID, consultantID uuid.UUID) (*models.ChatRoom, bool, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		INSERT INTO chat_rooms (user_id, consultant_id) VALUES ($1, $2)
		ON CONFLICT (user_id, consultant_id) DO NOTHING
		RETURNING `+roomColumns, userID, consultantID))
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, false, fmt.Errorf("create room: %w", err)
	}
	room, err = scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE user_id = $1 AND consultant_id = $2`, userID, consultantID))
	if err != nil {
		return nil, false, err
	}
	return room, false, nil
}

// GetRoom returns a room by id.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	return scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, id))
}

// ListRooms returns the viewer's rooms with unread counts of messages sent by the other side.
func (r *Repository) ListRooms(ctx context.Context, viewer uuid.UUID, side models.SenderType) ([]models.ChatRoom, error) {
	owner := "user_id"
	if side == models.SenderConsultant {
		owner = "consultant_id"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+roomColumns+`,
			(SELECT COUNT(*) FROM chat_messages m
			 WHERE m.room_id = chat_rooms.id AND m.sender_type <> $2 AND NOT m.is_read)
		FROM chat_rooms WHERE `+owner+` = $1
		ORDER BY updated_at DESC`, viewer, side)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ChatRoom
	for rows.Next() {
		var unread int
		room, err := scanRoom(rows, &unread)
		if err != nil {
			return nil, err
		}
		room.UnreadCount = unread
		list = append(list, *room)
	}
	return list, rows.Err()
}

// ListMessages returns messages with seq greater than after, oldest first.
func (r *Repository) ListMessages(ctx context.Context, roomID uuid.UUID, after int64, limit int) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seq, id, room_id, sender_type, sender_id, content, is_read, created_at
		FROM chat_messages WHERE room_id = $1 AND seq > $2
		ORDER BY seq ASC LIMIT $3`, roomID, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.Seq, &m.ID, &m.RoomID, &m.SenderType, &m.SenderID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// AppendMessage inserts m only if its room is ACTIVE. A concurrent close either lands
// before the insert (ErrRoomClosed) or after it.
func (r *Repository) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (room_id, sender_type, sender_id, content)
		SELECT id, $2::text, $3::uuid, $4::text FROM chat_rooms WHERE id = $1 AND status = 'ACTIVE'
		RETURNING seq, id, is_read, created_at`,
		m.RoomID, m.SenderType, m.SenderID, m.Content,
	).Scan(&m.Seq, &m.ID, &m.IsRead, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := r.GetRoom(ctx, m.RoomID); gerr != nil {
			return gerr
		}
		return ErrRoomClosed
	}
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `UPDATE chat_rooms SET updated_at = $2 WHERE id = $1`, m.RoomID, m.CreatedAt)
	return err
}

// Close flips ACTIVE to CLOSED, optionally storing a rating in the same statement.
func (r *Repository) Close(ctx context.Context, roomID uuid.UUID, rating *int, comment string, now time.Time) (*models.ChatRoom, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		UPDATE chat_rooms SET status = 'CLOSED', closed_at = $2, updated_at = $2,
			rating = COALESCE($3, rating),
			rating_comment = CASE WHEN $3::smallint IS NULL THEN rating_comment ELSE NULLIF($4, '') END
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING `+roomColumns, roomID, now, rating, comment))
	return r.transitioned(ctx, roomID, room, err, ErrRoomClosed)
}

// Restart flips CLOSED back to ACTIVE. Messages are untouched.
func (r *Repository) Restart(ctx context.Context, roomID uuid.UUID) (*models.ChatRoom, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		UPDATE chat_rooms SET status = 'ACTIVE', closed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'CLOSED'
		RETURNING `+roomColumns, roomID))
	return r.transitioned(ctx, roomID, room, err, ErrRoomActive)
}

// Rate stores the user's rating on a CLOSED room.
func (r *Repository) Rate(ctx context.Context, roomID uuid.UUID, rating int, comment string) (*models.ChatRoom, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		UPDATE chat_rooms SET rating = $2, rating_comment = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1 AND status = 'CLOSED'
		RETURNING `+roomColumns, roomID, rating, comment))
	return r.transitioned(ctx, roomID, room, err, ErrRoomActive)
}

// transitioned turns a conditional update miss into not-found or the state error.
func (r *Repository) transitioned(ctx context.Context, id uuid.UUID, room *models.ChatRoom, err, stateErr error) (*models.ChatRoom, error) {
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}
	if _, gerr := r.GetRoom(ctx, id); gerr != nil {
		return nil, gerr
	}
	return nil, stateErr
}

// MarkRead marks every unread message written by the other side as read.
func (r *Repository) MarkRead(ctx context.Context, roomID uuid.UUID, reader models.SenderType) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_messages SET is_read = TRUE
		WHERE room_id = $1 AND sender_type <> $2 AND NOT is_read`, roomID, reader)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
