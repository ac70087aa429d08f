package users

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves /me and /admin/users.
type Handler struct {
	store  Store
	ents   entitlements.Store
	audit  *adminlog.Recorder
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(store Store, ents entitlements.Store, audit *adminlog.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, ents: ents, audit: audit, logger: logger}
}

// Me is the caller's profile with balances and the limits of their plan.
type Me struct {
	User         *models.UserPublic     `json:"user"`
	Entitlements *entitlements.Snapshot `json:"entitlements"`
	Limits       plans.Plan             `json:"limits"`
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	id := middleware.UserID(c)
	u, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	snap, err := h.ents.Snapshot(ctx, id)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	response.OK(c, Me{User: u, Entitlements: snap, Limits: plans.MustLookup(snap.Plan)})
}

// List handles GET /admin/users?q=&page=&pageSize=.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	list, total, err := h.store.Search(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	if list == nil {
		list = []models.UserPublic{}
	}
	response.Paginated(c, list, total, page, size)
}

// Update handles PATCH /admin/users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var p Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validate(&p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	before, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	after, err := h.store.Update(ctx, id, p)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionUpdate, models.TargetUser, id.String(), gin.H{"before": before, "after": after})
	response.OK(c, after)
}

func validate(p *Patch) error {
	if p.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidPatch)
	}
	if p.Credits != nil && *p.Credits < 0 {
		return fmt.Errorf("%w: credits must be >= 0", ErrInvalidPatch)
	}
	if p.CVChatTokens != nil && *p.CVChatTokens < 0 {
		return fmt.Errorf("%w: cvChatTokens must be >= 0", ErrInvalidPatch)
	}
	if p.Role != nil && !p.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidPatch, *p.Role)
	}
	if p.Plan != nil {
		plan, err := plans.Parse(string(*p.Plan))
		if err != nil {
			return fmt.Errorf("%w: unknown plan %q", ErrInvalidPatch, *p.Plan)
		}
		p.Plan = &plan
	}
	return nil
}

func (h *Handler) writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, entitlements.ErrUserNotFound):
		response.NotFound(c, ErrNotFound.Error())
	case errors.Is(err, ErrInvalidPatch):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("user store error", zap.Error(err))
		response.Internal(c, "user operation failed")
	}
}
