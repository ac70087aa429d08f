package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/pkg/metrics"
)

// UpstreamError wraps a failure of the external work inside a metered operation.
// Nothing is debited when it is returned.
type UpstreamError struct {
	Operation string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Operation describes one metered call.
type Operation struct {
	Name      string // e.g. "job_match", used in the ledger and metrics
	UserID    uuid.UUID
	Resource  Resource
	Required  int // amount the gate demands before running
	RequestID string
}

// Work performs the operation and reports how many units it actually consumed.
type Work func(ctx context.Context) (consumed int, err error)

// Charge is the outcome of a successful metered run.
type Charge struct {
	Decision Decision
	Consumed int
	Debit    *DebitResult // nil when nothing was consumed or the debit could not be settled
	Balance  int
	Settled  bool
}

// Meter composes gate, work and ledger.
type Meter struct {
	gate   *Gate
	store  Store
	logger *zap.Logger
}

// NewMeter creates a meter over store.
func NewMeter(store Store, logger *zap.Logger) *Meter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Meter{gate: NewGate(store, logger), store: store, logger: logger}
}

// Gate exposes the meter's gate for read-only checks.
func (m *Meter) Gate() *Gate { return m.gate }

// Run checks the balance, runs work and debits what work consumed.
//
// A denied gate returns *InsufficientBalanceError without calling work. A work error is
// returned as *UpstreamError with no debit. A ledger failure after successful work is
// logged and reported through Charge.Settled; the delivered result is kept.
func (m *Meter) Run(ctx context.Context, op Operation, work Work) (*Charge, error) {
	if op.RequestID == "" {
		op.RequestID = uuid.NewString()
	}
	d, err := m.gate.Check(ctx, op.UserID, op.Resource, op.Required)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		metrics.RecordDenial(string(op.Resource), op.Name)
		return nil, d.Err()
	}

	consumed, err := work(ctx)
	if err != nil {
		metrics.RecordUpstreamFailure(op.Name)
		m.logger.Warn("metered work failed",
			zap.String("operation", op.Name),
			zap.String("user_id", op.UserID.String()),
			zap.Error(err))
		return nil, &UpstreamError{Operation: op.Name, Err: err}
	}
	consumed = clamp(consumed, 0, op.Required)

	ch := &Charge{Decision: d, Consumed: consumed, Balance: d.Available, Settled: true}
	if consumed == 0 {
		return ch, nil
	}

	res, err := m.store.Debit(ctx, DebitRequest{
		RequestID: op.RequestID,
		UserID:    op.UserID,
		Resource:  op.Resource,
		Operation: op.Name,
		Amount:    consumed,
	})
	if err != nil {
		metrics.RecordDebit(string(op.Resource), op.Name, "error", 0)
		m.logger.Error("debit failed after delivered work",
			zap.String("operation", op.Name),
			zap.String("request_id", op.RequestID),
			zap.String("user_id", op.UserID.String()),
			zap.Int("amount", consumed),
			zap.Error(err))
		ch.Settled = false
		ch.Balance = d.Available - consumed
		if ch.Balance < 0 {
			ch.Balance = 0
		}
		return ch, nil
	}

	outcome := "ok"
	switch {
	case res.Duplicate:
		outcome = "duplicate"
	case res.Underflow:
		outcome = "underflow"
		m.logger.Warn("debit clamped at zero",
			zap.String("operation", op.Name),
			zap.String("user_id", op.UserID.String()),
			zap.Int("requested", res.Requested),
			zap.Int("charged", res.Charged))
	}
	metrics.RecordDebit(string(op.Resource), op.Name, outcome, res.Charged)
	ch.Debit = res
	ch.Balance = res.Balance
	return ch, nil
}

// Settled reports a prior debit for requestID, so callers can replay instead of redoing work.
func (m *Meter) Settled(ctx context.Context, requestID string) (*DebitResult, error) {
	return m.store.Settled(ctx, requestID)
}

// RequestID scopes a client-supplied idempotency key to one user and operation.
// An empty key yields a fresh id, so the call is never deduplicated.
func RequestID(userID uuid.UUID, operation, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.NewString()
	}
	if len(key) > 128 {
		key = key[:128]
	}
	return userID.String() + ":" + operation + ":" + key
}

// IsDenied reports whether err is a gate denial and returns it.
func IsDenied(err error) (*InsufficientBalanceError, bool) {
	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		return ib, true
	}
	return nil, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
