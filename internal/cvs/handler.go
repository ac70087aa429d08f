package cvs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/pdftext"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves /cvs endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a CV handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Input is the create/update body.
type Input struct {
	Title  string          `json:"title" binding:"required"`
	Source models.CVSource `json:"source"`
	Data   json.RawMessage `json:"data"`
}

// List handles GET /cvs.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "list cvs", err)
		return
	}
	response.OK(c, gin.H{"cvs": list})
}

// Get handles GET /cvs/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	cv, err := h.svc.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.fail(c, "get cv", err)
		return
	}
	response.OK(c, cv)
}

// Create handles POST /cvs.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	source := in.Source
	if source != models.CVSourceChat {
		source = models.CVSourceManual
	}
	cv, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), in.Title, source, in.Data)
	if err != nil {
		h.fail(c, "create cv", err)
		return
	}
	response.Created(c, cv)
}

// Update handles PUT /cvs/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cv, err := h.svc.Update(c.Request.Context(), middleware.UserID(c), id, in.Title, in.Data)
	if err != nil {
		h.fail(c, "update cv", err)
		return
	}
	response.OK(c, cv)
}

// Delete handles DELETE /cvs/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		h.fail(c, "delete cv", err)
		return
	}
	response.NoContent(c)
}

// File handles GET /cvs/:id/file with a presigned link to the original PDF.
func (h *Handler) File(c *gin.Context) {
	id, ok := cvID(c)
	if !ok {
		return
	}
	url, err := h.svc.FileURL(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.fail(c, "cv file url", err)
		return
	}
	response.OK(c, gin.H{"url": url})
}

// Import handles POST /cvs/import (multipart field "file").
func (h *Handler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, pdftext.MaxSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "a PDF file is required in field \"file\"")
		return
	}
	if fh.Size > pdftext.MaxSize {
		response.BadRequest(c, pdftext.ErrTooLarge.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "could not read upload")
		return
	}
	defer f.Close()

	res, err := h.svc.Import(c.Request.Context(), middleware.UserID(c), f, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.fail(c, "import cv", err)
		return
	}
	response.Created(c, res)
}

func cvID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid cv id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if entitlements.RespondError(c, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrLimitReached):
		response.ForbiddenCode(c, "CV_LIMIT_REACHED", err.Error())
	case errors.Is(err, ErrInvalidCV), pdftext.IsValidation(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, pdftext.ErrCorruptPDF), errors.Is(err, pdftext.ErrNoText):
		response.UnprocessableCode(c, "PDF_UNREADABLE", "could not read text from this PDF")
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "cv request failed")
	}
}
