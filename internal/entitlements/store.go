// Package entitlements holds the per-user credit and CV chat token balances, the
// pre-operation balance gate and the post-operation consumption ledger.
package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kariyerai/backend/internal/models"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidAmount   = errors.New("amount must be at least 1")
	ErrUserNotFound    = errors.New("user not found")
)

// Resource is a consumable balance kind.
type Resource string

const (
	Credits      Resource = "credits"
	CVChatTokens Resource = "cv_chat_tokens"
)

// column maps a resource to its users table column. The result is safe to splice into SQL.
func (r Resource) column() (string, error) {
	switch r {
	case Credits:
		return "credits", nil
	case CVChatTokens:
		return "cv_chat_tokens", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, string(r))
}

// Snapshot is a user's entitlement state at one point in time.
type Snapshot struct {
	UserID       uuid.UUID                 `json:"userId"`
	Credits      int                       `json:"credits"`
	CVChatTokens int                       `json:"cvChatTokens"`
	Plan         models.Plan               `json:"plan"`
	Status       models.SubscriptionStatus `json:"status"`
	ExpiresAt    *time.Time                `json:"expiresAt,omitempty"`
}

// Of returns the balance of r.
func (s *Snapshot) Of(r Resource) int {
	if r == CVChatTokens {
		return s.CVChatTokens
	}
	return s.Credits
}

// DebitRequest asks the ledger to remove Amount of Resource. RequestID makes the debit idempotent.
type DebitRequest struct {
	RequestID string
	UserID    uuid.UUID
	Resource  Resource
	Operation string
	Amount    int
}

// DebitResult is the ledger outcome. Balance is what the client should display next.
type DebitResult struct {
	Balance   int  `json:"balance"`
	Requested int  `json:"requested"`
	Charged   int  `json:"charged"`
	Underflow bool `json:"underflow,omitempty"` // balance ran out between gate and debit; clamped at zero
	Duplicate bool `json:"duplicate,omitempty"` // request id already settled; nothing charged
}

// Store is the entitlement persistence contract.
type Store interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	Balance(ctx context.Context, userID uuid.UUID, r Resource) (int, error)
	// Debit must be atomic: no lost updates and no negative balances under concurrent callers.
	Debit(ctx context.Context, req DebitRequest) (*DebitResult, error)
	// Settled returns the recorded outcome of requestID, or nil if it was never debited.
	Settled(ctx context.Context, requestID string) (*DebitResult, error)
}

func validateDebit(req DebitRequest) error {
	if _, err := req.Resource.column(); err != nil {
		return err
	}
	if req.Amount < 1 {
		return ErrInvalidAmount
	}
	if req.RequestID == "" {
		return errors.New("request id required")
	}
	return nil
}
