package joblistings

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kariyerai/backend/internal/models"
)

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]models.JobListing
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]models.JobListing)}
}

func (s *MemoryStore) List(_ context.Context, q Query) ([]models.JobListing, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(q.Search))
	loc := strings.ToLower(strings.TrimSpace(q.Location))
	var all []models.JobListing
	for _, j := range s.jobs {
		if q.ActiveOnly && !j.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(j.Title+" "+j.Company+" "+j.Description), search) {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(j.Location), loc) {
			continue
		}
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool { return all[i].CreatedAt.After(all[k].CreatedAt) })
	total := len(all)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (s *MemoryStore) Create(_ context.Context, j *models.JobListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.ID = uuid.New()
	j.CreatedAt = time.Now().UTC().Add(time.Duration(len(s.jobs)) * time.Millisecond)
	j.UpdatedAt = j.CreatedAt
	s.jobs[j.ID] = *j
	return nil
}

func (s *MemoryStore) Update(_ context.Context, j *models.JobListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		return ErrNotFound
	}
	j.UpdatedAt = time.Now().UTC()
	s.jobs[j.ID] = *j
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}
