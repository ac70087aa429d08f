package adminlog

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves the audit log admin endpoints.
type Handler struct {
	store    Store
	recorder *Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates an audit log handler.
func NewHandler(store Store, recorder *Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, recorder: recorder, logger: logger, now: time.Now}
}

// List handles GET /admin/logs.
func (h *Handler) List(c *gin.Context) {
	f, err := ParseFilter(c.Request.URL.Query())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	list, total, err := h.store.Query(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("query admin logs", zap.Error(err))
		response.Internal(c, "failed to query admin logs")
		return
	}
	response.Paginated(c, list, total, f.Page, f.PageSize)
}

// Purge handles DELETE /admin/logs?olderThanDays=N.
func (h *Handler) Purge(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("olderThanDays", "30"))
	if err != nil || days < 1 {
		response.BadRequest(c, "olderThanDays must be a positive integer")
		return
	}
	cutoff := h.now().AddDate(0, 0, -days)
	n, err := h.store.Purge(c.Request.Context(), cutoff)
	if err != nil {
		h.logger.Error("purge admin logs", zap.Error(err))
		response.Internal(c, "failed to purge admin logs")
		return
	}
	details := gin.H{"olderThanDays": days, "before": cutoff, "deleted": n}
	if err := h.recorder.Record(c, models.ActionDelete, models.TargetAdminLog, "", details); err != nil {
		response.OK(c, gin.H{"deleted": n, "auditRecorded": false})
		return
	}
	response.OK(c, gin.H{"deleted": n, "auditRecorded": true})
}
