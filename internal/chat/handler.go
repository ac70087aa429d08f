package chat

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves /chat endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// OpenRequest is the body for POST /chat/rooms.
type OpenRequest struct {
	ConsultantID uuid.UUID `json:"consultantId" binding:"required"`
}

// SendRequest is the body for POST /chat/rooms/:id/messages.
type SendRequest struct {
	Content string `json:"content" binding:"required"`
}

// CloseRequest is the optional body for POST /chat/rooms/:id/close.
type CloseRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// RatingRequest is the body for POST /chat/rooms/:id/rating.
type RatingRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// Open handles POST /chat/rooms.
func (h *Handler) Open(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room, created, err := h.svc.Open(c.Request.Context(), middleware.UserID(c), req.ConsultantID)
	if err != nil {
		h.fail(c, "open room", err)
		return
	}
	if created {
		response.Created(c, room)
		return
	}
	response.OK(c, room)
}

// Rooms handles GET /chat/rooms.
func (h *Handler) Rooms(c *gin.Context) {
	list, err := h.svc.Rooms(c.Request.Context(), middleware.UserID(c), middleware.Role(c))
	if err != nil {
		h.fail(c, "list rooms", err)
		return
	}
	response.OK(c, gin.H{"rooms": list})
}

// Messages handles GET /chat/rooms/:id/messages?after=&limit=.
func (h *Handler) Messages(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid after")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list, err := h.svc.Messages(c.Request.Context(), id, middleware.UserID(c), after, limit)
	if err != nil {
		h.fail(c, "list messages", err)
		return
	}
	last := after
	if n := len(list); n > 0 {
		last = list[n-1].Seq
	}
	response.OK(c, gin.H{"messages": list, "lastSeq": last})
}

// Send handles POST /chat/rooms/:id/messages.
func (h *Handler) Send(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Send(c.Request.Context(), id, middleware.UserID(c), req.Content)
	if err != nil {
		h.fail(c, "send message", err)
		return
	}
	response.Created(c, m)
}

// Close handles POST /chat/rooms/:id/close.
func (h *Handler) Close(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req CloseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	room, err := h.svc.Close(c.Request.Context(), id, middleware.UserID(c), req.Rating, req.Comment)
	if err != nil {
		h.fail(c, "close room", err)
		return
	}
	response.OK(c, room)
}

// Restart handles POST /chat/rooms/:id/restart.
func (h *Handler) Restart(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	room, err := h.svc.Restart(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, "restart room", err)
		return
	}
	response.OK(c, room)
}

// Rate handles POST /chat/rooms/:id/rating.
func (h *Handler) Rate(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room, err := h.svc.Rate(c.Request.Context(), id, middleware.UserID(c), req.Rating, req.Comment)
	if err != nil {
		h.fail(c, "rate room", err)
		return
	}
	response.OK(c, room)
}

// MarkRead handles POST /chat/rooms/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, "mark read", err)
		return
	}
	response.OK(c, gin.H{"marked": n})
}

func roomID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrOwnerOnly):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrRoomClosed), errors.Is(err, ErrRoomActive):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong),
		errors.Is(err, ErrSelfChat), errors.Is(err, ErrNotConsultant):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "chat request failed")
	}
}
