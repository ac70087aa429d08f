package coupons

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/internal/plans"
	"github.com/kariyerai/backend/pkg/metrics"
	"github.com/kariyerai/backend/pkg/response"
)

// ValidateRequest is the body for POST /coupons/validate.
type ValidateRequest struct {
	Code          string `json:"code" binding:"required"`
	Plan          string `json:"plan" binding:"required"`
	OriginalPrice int    `json:"originalPrice"`
}

// ValidResponse is the checkout preview for a usable code.
type ValidResponse struct {
	Valid          bool    `json:"valid"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalPrice     int     `json:"finalPrice"`
	IsFree         bool    `json:"isFree"`
}

// InvalidResponse carries the rejection reason.
type InvalidResponse struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason"`
}

// CouponInput is the admin create/update body.
type CouponInput struct {
	Code            string              `json:"code" binding:"required"`
	DiscountType    models.DiscountType `json:"discountType" binding:"required"`
	DiscountValue   float64             `json:"discountValue"`
	ValidFrom       *time.Time          `json:"validFrom"`
	ValidUntil      *time.Time          `json:"validUntil"`
	MaxUsage        *int                `json:"maxUsage"`
	PlanRestriction *models.Plan        `json:"planRestriction"`
	IsActive        *bool               `json:"isActive"`
}

func (in *CouponInput) apply(c *models.Coupon) {
	c.Code = Normalize(in.Code)
	c.DiscountType = in.DiscountType
	c.DiscountValue = in.DiscountValue
	if in.ValidFrom != nil {
		c.ValidFrom = *in.ValidFrom
	}
	c.ValidUntil = in.ValidUntil
	c.MaxUsage = in.MaxUsage
	c.PlanRestriction = in.PlanRestriction
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// Handler serves coupon validation and admin CRUD.
type Handler struct {
	store    Store
	resolver *Resolver
	audit    *adminlog.Recorder
	logger   *zap.Logger
}

// NewHandler creates a coupon handler.
func NewHandler(store Store, resolver *Resolver, audit *adminlog.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, resolver: resolver, audit: audit, logger: logger}
}

// Validate handles POST /coupons/validate. It never changes the coupon.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	plan, err := plans.Parse(req.Plan)
	if err != nil || !plans.Purchasable(plan) {
		response.BadRequest(c, "invalid plan")
		return
	}

	q, err := h.resolver.Resolve(c.Request.Context(), req.Code, plan, req.OriginalPrice)
	var invalid *InvalidCouponError
	switch {
	case errors.As(err, &invalid):
		metrics.RecordCouponValidation(string(invalid.Reason))
		response.OK(c, InvalidResponse{Valid: false, Reason: invalid.Reason})
		return
	case errors.Is(err, ErrPriceMismatch):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		h.logger.Error("coupon validation failed", zap.String("code", Normalize(req.Code)), zap.Error(err))
		response.Internal(c, "failed to validate coupon")
		return
	}
	metrics.RecordCouponValidation("VALID")
	response.OK(c, ValidResponse{Valid: true, DiscountAmount: q.DiscountAmount, FinalPrice: q.FinalPrice, IsFree: q.IsFree})
}

// List handles GET /admin/coupons.
func (h *Handler) List(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.store.List(c.Request.Context(), page, size)
	if err != nil {
		h.logger.Error("list coupons", zap.Error(err))
		response.Internal(c, "failed to list coupons")
		return
	}
	response.Paginated(c, list, total, page, size)
}

// Create handles POST /admin/coupons.
func (h *Handler) Create(c *gin.Context) {
	var in CouponInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cp := &models.Coupon{IsActive: true, ValidFrom: time.Now()}
	in.apply(cp)
	if err := Validate(cp); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Create(c.Request.Context(), cp); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionCreate, models.TargetCoupon, cp.ID.String(), cp)
	response.Created(c, cp)
}

// Update handles PUT /admin/coupons/:id.
func (h *Handler) Update(c *gin.Context) {
	cp, ok := h.load(c)
	if !ok {
		return
	}
	var in CouponInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	before := *cp
	in.apply(cp)
	if err := Validate(cp); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Update(c.Request.Context(), cp); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionUpdate, models.TargetCoupon, cp.ID.String(), gin.H{"before": before, "after": cp})
	response.OK(c, cp)
}

// Toggle handles PATCH /admin/coupons/:id/toggle.
func (h *Handler) Toggle(c *gin.Context) {
	cp, ok := h.load(c)
	if !ok {
		return
	}
	cp.IsActive = !cp.IsActive
	if err := h.store.Update(c.Request.Context(), cp); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionUpdate, models.TargetCoupon, cp.ID.String(), gin.H{"code": cp.Code, "isActive": cp.IsActive})
	response.OK(c, cp)
}

// Delete handles DELETE /admin/coupons/:id.
func (h *Handler) Delete(c *gin.Context) {
	cp, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), cp.ID); err != nil {
		h.writeErr(c, err)
		return
	}
	h.audit.Audited(c, models.ActionDelete, models.TargetCoupon, cp.ID.String(), gin.H{"code": cp.Code, "usageCount": cp.UsageCount})
	response.NoContent(c)
}

func (h *Handler) load(c *gin.Context) (*models.Coupon, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid coupon id")
		return nil, false
	}
	cp, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, err)
		return nil, false
	}
	return cp, true
}

func (h *Handler) writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCouponNotFound):
		response.NotFound(c, "coupon not found")
	case errors.Is(err, ErrCodeTaken):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("coupon store error", zap.Error(err))
		response.Internal(c, "coupon operation failed")
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
