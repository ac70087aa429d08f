package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kariyerai/backend/internal/models"
)

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int64
	consultants map[uuid.UUID]bool
	rooms       map[uuid.UUID]*models.ChatRoom
	messages    []models.ChatMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consultants: make(map[uuid.UUID]bool),
		rooms:       make(map[uuid.UUID]*models.ChatRoom),
	}
}

// AddConsultant registers id as a consultant account.
func (s *MemoryStore) AddConsultant(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consultants[id] = true
}

func (s *MemoryStore) IsConsultant(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consultants[id], nil
}

func (s *MemoryStore) GetOrCreateRoom(_ context.Context, userID, consultantID uuid.UUID) (*models.ChatRoom, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.UserID == userID && r.ConsultantID == consultantID {
			cp := *r
			return &cp, false, nil
		}
	}
	now := time.Now().UTC()
	r := &models.ChatRoom{ID: uuid.New(), UserID: userID, ConsultantID: consultantID,
		Status: models.RoomActive, CreatedAt: now, UpdatedAt: now}
	s.rooms[r.ID] = r
	cp := *r
	return &cp, true, nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListRooms(_ context.Context, viewer uuid.UUID, side models.SenderType) ([]models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.ChatRoom
	for _, r := range s.rooms {
		owner := r.UserID
		if side == models.SenderConsultant {
			owner = r.ConsultantID
		}
		if owner != viewer {
			continue
		}
		cp := *r
		for _, m := range s.messages {
			if m.RoomID == r.ID && m.SenderType != side && !m.IsRead {
				cp.UnreadCount++
			}
		}
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, roomID uuid.UUID, after int64, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == roomID && m.Seq > after {
			list = append(list, m)
			if len(list) == limit {
				break
			}
		}
	}
	return list, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[m.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.Status != models.RoomActive {
		return ErrRoomClosed
	}
	s.seq++
	m.Seq = s.seq
	m.ID = uuid.New()
	m.IsRead = false
	m.CreatedAt = time.Now().UTC()
	r.UpdatedAt = m.CreatedAt
	s.messages = append(s.messages, *m)
	return nil
}

func (s *MemoryStore) Close(_ context.Context, roomID uuid.UUID, rating *int, comment string, now time.Time) (*models.ChatRoom, error) {
	return s.update(roomID, models.RoomActive, ErrRoomClosed, func(r *models.ChatRoom) {
		r.Status = models.RoomClosed
		r.ClosedAt = &now
		if rating != nil {
			v := *rating
			r.Rating = &v
			r.RatingComment = comment
		}
	})
}

func (s *MemoryStore) Restart(_ context.Context, roomID uuid.UUID) (*models.ChatRoom, error) {
	return s.update(roomID, models.RoomClosed, ErrRoomActive, func(r *models.ChatRoom) {
		r.Status = models.RoomActive
		r.ClosedAt = nil
	})
}

func (s *MemoryStore) Rate(_ context.Context, roomID uuid.UUID, rating int, comment string) (*models.ChatRoom, error) {
	return s.update(roomID, models.RoomClosed, ErrRoomActive, func(r *models.ChatRoom) {
		r.Rating = &rating
		r.RatingComment = comment
	})
}

func (s *MemoryStore) update(id uuid.UUID, want models.RoomStatus, stateErr error, fn func(*models.ChatRoom)) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Status != want {
		return nil, stateErr
	}
	fn(r)
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, roomID uuid.UUID, reader models.SenderType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.RoomID == roomID && m.SenderType != reader && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}
