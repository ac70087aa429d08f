// Package adminlog is the append-only audit trail of administrative mutations.
package adminlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/response"
)

// Recorder writes audit entries. Writes are synchronous; failures are logged and returned
// so the caller can decide, but they never undo the audited action.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder creates a recorder over store.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// Append stores a fully built entry.
func (r *Recorder) Append(ctx context.Context, e *models.AdminLog) error {
	if err := r.store.Append(ctx, e); err != nil {
		r.logger.Error("admin log write failed",
			zap.String("admin_id", e.AdminID.String()),
			zap.String("action", string(e.Action)),
			zap.String("target_type", string(e.TargetType)),
			zap.Error(err))
		return err
	}
	return nil
}

// Record audits an action by the authenticated admin of c. targetID may be empty for
// system-level actions; details is serialized as JSON.
func (r *Recorder) Record(c *gin.Context, action models.AdminAction, target models.TargetType, targetID string, details interface{}) error {
	raw := []byte("{}")
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		raw = b
	}
	adminID, _ := c.Get(middleware.ContextUserID)
	id, _ := adminID.(uuid.UUID)
	e := &models.AdminLog{
		AdminID:    id,
		Action:     action,
		TargetType: target,
		Details:    raw,
		IPAddress:  c.ClientIP(),
	}
	if targetID != "" {
		e.TargetID = &targetID
	}
	return r.Append(c.Request.Context(), e)
}

// AuditWarning is the envelope warning for an action whose audit entry was not written.
const AuditWarning = "action applied but its audit entry could not be recorded"

// Audited is Record for handlers. On failure the response carries X-Audit-Recorded: false
// and AuditWarning.
func (r *Recorder) Audited(c *gin.Context, action models.AdminAction, target models.TargetType, targetID string, details interface{}) bool {
	if err := r.Record(c, action, target, targetID, details); err != nil {
		c.Header("X-Audit-Recorded", "false")
		response.Warn(c, AuditWarning)
		return false
	}
	return true
}

// Query passes through to the store.
func (r *Recorder) Query(ctx context.Context, f Filter) ([]models.AdminLog, int, error) {
	return r.store.Query(ctx, f)
}
