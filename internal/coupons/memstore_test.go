package coupons

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kariyerai/backend/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]*models.Coupon
	lookups int
}

func newMemStore(cs ...*models.Coupon) *memStore {
	s := &memStore{coupons: make(map[uuid.UUID]*models.Coupon)}
	for _, c := range cs {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		s.coupons[c.ID] = c
	}
	return s
}

func (s *memStore) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	for _, c := range s.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCouponNotFound
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) List(_ context.Context, _, _ int) ([]models.Coupon, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Coupon
	for _, c := range s.coupons {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *memStore) Create(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.coupons {
		if ex.Code == c.Code {
			return ErrCodeTaken
		}
	}
	c.ID = uuid.New()
	cp := *c
	s.coupons[c.ID] = &cp
	return nil
}

func (s *memStore) Update(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.coupons[c.ID]
	if !ok {
		return ErrCouponNotFound
	}
	c.UsageCount = ex.UsageCount
	cp := *c
	s.coupons[c.ID] = &cp
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[id]; !ok {
		return ErrCouponNotFound
	}
	delete(s.coupons, id)
	return nil
}
