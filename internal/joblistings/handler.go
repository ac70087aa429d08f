package joblistings

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves the public catalog and admin CRUD.
type Handler struct {
	store  Store
	audit  *adminlog.Recorder
	logger *zap.Logger
}

// NewHandler creates a job listing handler.
func NewHandler(store Store, audit *adminlog.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, audit: audit, logger: logger}
}

// Input is the admin create/update body.
type Input struct {
	Title          string `json:"title" binding:"required"`
	Company        string `json:"company" binding:"required"`
	Location       string `json:"location"`
	EmploymentType string `json:"employmentType"`
	Description    string `json:"description" binding:"required"`
	Requirements   string `json:"requirements"`
	IsActive       *bool  `json:"isActive"`
}

func (in Input) apply(j *models.JobListing) {
	j.Title = in.Title
	j.Company = in.Company
	j.Location = in.Location
	j.EmploymentType = in.EmploymentType
	j.Description = in.Description
	j.Requirements = in.Requirements
	if in.IsActive != nil {
		j.IsActive = *in.IsActive
	}
}

// List handles GET /jobs?q=&location=&page=&pageSize=. Only active listings are shown.
func (h *Handler) List(c *gin.Context) {
	h.list(c, true)
}

// AdminList handles GET /admin/jobs, inactive listings included.
func (h *Handler) AdminList(c *gin.Context) {
	h.list(c, false)
}

func (h *Handler) list(c *gin.Context, activeOnly bool) {
	page, size := pageParams(c)
	q := Query{Search: c.Query("q"), Location: c.Query("location"), ActiveOnly: activeOnly, Page: page, PageSize: size}
	list, total, err := h.store.List(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("list job listings", zap.Error(err))
		response.Internal(c, "failed to list jobs")
		return
	}
	if list == nil {
		list = []models.JobListing{}
	}
	response.Paginated(c, list, total, page, size)
}

// Get handles GET /jobs/:id. Inactive listings are hidden from the public.
func (h *Handler) Get(c *gin.Context) {
	j, ok := h.load(c)
	if !ok {
		return
	}
	if !j.IsActive {
		response.NotFound(c, ErrNotFound.Error())
		return
	}
	response.OK(c, j)
}

// Create handles POST /admin/jobs.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	j := &models.JobListing{IsActive: true}
	in.apply(j)
	if err := Validate(j); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Create(c.Request.Context(), j); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionCreate, models.TargetJob, j.ID.String(), gin.H{"title": j.Title, "company": j.Company})
	response.Created(c, j)
}

// Update handles PUT /admin/jobs/:id.
func (h *Handler) Update(c *gin.Context) {
	j, ok := h.load(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	before := *j
	in.apply(j)
	if err := Validate(j); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Update(c.Request.Context(), j); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionUpdate, models.TargetJob, j.ID.String(), gin.H{"before": before, "after": j})
	response.OK(c, j)
}

// Delete handles DELETE /admin/jobs/:id.
func (h *Handler) Delete(c *gin.Context) {
	j, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), j.ID); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionDelete, models.TargetJob, j.ID.String(), gin.H{"title": j.Title, "company": j.Company})
	response.NoContent(c)
}

func (h *Handler) load(c *gin.Context) (*models.JobListing, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid job id")
		return nil, false
	}
	j, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, err)
		return nil, false
	}
	return j, true
}

func (h *Handler) writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("job listing store error", zap.Error(err))
		response.Internal(c, "job listing operation failed")
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
