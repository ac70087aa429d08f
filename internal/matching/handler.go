package matching

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/cvs"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/joblistings"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves /cvs/:id/matches.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a matching handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// MatchRequest is the body for POST /cvs/:id/matches.
type MatchRequest struct {
	JobID uuid.UUID `json:"jobId" binding:"required"`
}

// Create handles POST /cvs/:id/matches.
func (h *Handler) Create(c *gin.Context) {
	cvID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid cv id")
		return
	}
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	out, err := h.svc.Match(c.Request.Context(), middleware.UserID(c), cvID, req.JobID, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, out)
}

// List handles GET /cvs/:id/matches.
func (h *Handler) List(c *gin.Context) {
	cvID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid cv id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), middleware.UserID(c), cvID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"matches": list})
}

func (h *Handler) fail(c *gin.Context, err error) {
	if entitlements.RespondError(c, err) {
		return
	}
	switch {
	case errors.Is(err, cvs.ErrNotFound), errors.Is(err, joblistings.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error("job match failed", zap.Error(err))
		response.Internal(c, "job match failed")
	}
}
