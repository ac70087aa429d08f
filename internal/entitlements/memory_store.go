package entitlements

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kariyerai/backend/internal/models"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Snapshot
	settled  map[string]DebitResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]*Snapshot),
		settled:  make(map[string]DebitResult),
	}
}

// Seed creates or replaces an account on the FREE plan.
func (s *MemoryStore) Seed(userID uuid.UUID, credits, cvChatTokens int) {
	s.SeedPlan(userID, credits, cvChatTokens, models.PlanFree)
}

// SeedPlan creates or replaces an account on the given plan.
func (s *MemoryStore) SeedPlan(userID uuid.UUID, credits, cvChatTokens int, plan models.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[userID] = &Snapshot{
		UserID:       userID,
		Credits:      credits,
		CVChatTokens: cvChatTokens,
		Plan:         plan,
		Status:       models.SubscriptionActive,
	}
}

// Snapshot returns a copy of the account.
func (s *MemoryStore) Snapshot(_ context.Context, userID uuid.UUID) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

// Balance returns one balance.
func (s *MemoryStore) Balance(_ context.Context, userID uuid.UUID, r Resource) (int, error) {
	if _, err := r.column(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return a.Of(r), nil
}

// Debit mirrors PostgresStore.Debit under a single mutex.
func (s *MemoryStore) Debit(_ context.Context, req DebitRequest) (*DebitResult, error) {
	if err := validateDebit(req); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[req.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	bal := &a.Credits
	if req.Resource == CVChatTokens {
		bal = &a.CVChatTokens
	}
	res := &DebitResult{Requested: req.Amount}
	if _, dup := s.settled[req.RequestID]; dup {
		res.Duplicate = true
		res.Balance = *bal
		return res, nil
	}

	res.Charged = req.Amount
	if *bal < req.Amount {
		res.Charged = *bal
		res.Underflow = true
	}
	*bal -= res.Charged
	res.Balance = *bal
	s.settled[req.RequestID] = *res
	return res, nil
}

// Settled returns the recorded outcome of requestID.
func (s *MemoryStore) Settled(_ context.Context, requestID string) (*DebitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.settled[requestID]
	if !ok {
		return nil, nil
	}
	r.Duplicate = true
	r.Underflow = false
	return &r, nil
}
