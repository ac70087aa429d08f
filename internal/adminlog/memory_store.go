package adminlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kariyerai/backend/internal/models"
)

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []models.AdminLog
	nextID  int64
	// Now stamps CreatedAt; defaults to time.Now.
	Now func() time.Time
	// Err, when set, is returned by Append.
	Err error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now}
}

func (s *MemoryStore) Append(_ context.Context, e *models.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.Now()
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter) ([]models.AdminLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hits []models.AdminLog
	for i := range s.entries {
		if f.matches(&s.entries[i]) {
			hits = append(hits, s.entries[i])
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].ID > hits[j].ID
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})
	total := len(hits)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return hits[start:end], total, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

// All returns every stored entry in insertion order.
func (s *MemoryStore) All() []models.AdminLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AdminLog, len(s.entries))
	copy(out, s.entries)
	return out
}
