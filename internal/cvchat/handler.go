package cvchat

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves /cv-chat endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a CV chat handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// MessageRequest is the body for POST /cv-chat/sessions/:id/messages.
type MessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// Start handles POST /cv-chat/sessions.
func (h *Handler) Start(c *gin.Context) {
	v, err := h.svc.Start(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"sessionId": v.ID, "session": v})
}

// Get handles GET /cv-chat/sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	v, history, err := h.svc.Session(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"session": v, "messages": history})
}

// Send handles POST /cv-chat/sessions/:id/messages.
func (h *Handler) Send(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Send(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Message, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if entitlements.RespondError(c, err) {
		return
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("cv chat failed", zap.Error(err))
		response.Internal(c, "cv chat failed")
	}
}
