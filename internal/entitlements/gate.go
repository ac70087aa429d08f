package entitlements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Decision is the gate's answer for one attempted operation.
type Decision struct {
	Allowed   bool     `json:"allowed"`
	Resource  Resource `json:"resource"`
	Required  int      `json:"required"`
	Available int      `json:"available"`
}

// Err returns nil when allowed, otherwise an *InsufficientBalanceError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &InsufficientBalanceError{Resource: d.Resource, Required: d.Required, Available: d.Available}
}

// InsufficientBalanceError reports a denied metered operation.
type InsufficientBalanceError struct {
	Resource  Resource
	Required  int
	Available int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s: required %d, available %d", e.Resource, e.Required, e.Available)
}

// Gate checks balances before a metered operation runs. It never mutates anything.
type Gate struct {
	store  Store
	logger *zap.Logger
}

// NewGate creates a gate over store.
func NewGate(store Store, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{store: store, logger: logger}
}

// Check reports whether userID holds at least required units of r.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID, r Resource, required int) (Decision, error) {
	if _, err := r.column(); err != nil {
		return Decision{}, err
	}
	if required < 1 {
		return Decision{}, ErrInvalidAmount
	}
	available, err := g.store.Balance(ctx, userID, r)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{
		Allowed:   available >= required,
		Resource:  r,
		Required:  required,
		Available: available,
	}
	if !d.Allowed {
		g.logger.Debug("balance gate denied",
			zap.String("user_id", userID.String()),
			zap.String("resource", string(r)),
			zap.Int("required", required),
			zap.Int("available", available))
	}
	return d, nil
}
