package orders

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/coupons"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
	"github.com/kariyerai/backend/pkg/response"
)

// Handler serves checkout and sales record endpoints.
type Handler struct {
	svc    *Service
	audit  *adminlog.Recorder
	logger *zap.Logger
}

// NewHandler creates an order handler.
func NewHandler(svc *Service, audit *adminlog.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, audit: audit, logger: logger}
}

// Create handles POST /orders.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	out, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req)
	var invalid *coupons.InvalidCouponError
	switch {
	case err == nil:
		response.Created(c, out)
	case errors.As(err, &invalid):
		response.UnprocessableCode(c, string(invalid.Reason), "coupon cannot be used")
	case errors.Is(err, ErrNotPurchasable), errors.Is(err, coupons.ErrPriceMismatch):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("create order failed", zap.Error(err))
		response.Internal(c, "failed to create order")
	}
}

// Mine handles GET /orders.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.Mine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		response.Internal(c, "failed to list orders")
		return
	}
	response.OK(c, gin.H{"orders": list})
}

// List handles GET /admin/orders?status=&page=&pageSize=.
func (h *Handler) List(c *gin.Context) {
	status := models.OrderStatus(strings.ToUpper(c.Query("status")))
	switch status {
	case "", models.OrderPendingPayment, models.OrderCompleted, models.OrderRejected:
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	list, total, err := h.svc.SalesRecords(c.Request.Context(), status, page, size)
	if err != nil {
		h.logger.Error("list sales records failed", zap.Error(err))
		response.Internal(c, "failed to list orders")
		return
	}
	response.Paginated(c, list, total, page, size)
}

// Approve handles POST /admin/orders/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, models.ActionApprove)
}

// Reject handles POST /admin/orders/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, models.ActionReject)
}

func (h *Handler) decide(c *gin.Context, action models.AdminAction) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	var o *models.Order
	if action == models.ActionApprove {
		o, err = h.svc.Approve(c.Request.Context(), id)
	} else {
		o, err = h.svc.Reject(c.Request.Context(), id)
	}
	switch {
	case errors.Is(err, ErrOrderNotFound):
		response.NotFound(c, "order not found")
		return
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, err.Error())
		return
	case err != nil:
		h.logger.Error("order decision failed", zap.String("action", string(action)), zap.Error(err))
		response.Internal(c, "failed to update order")
		return
	}
	h.audit.Audited(c, action, models.TargetOrder, o.ID.String(), gin.H{
		"orderCode": o.OrderCode,
		"plan":      o.Plan,
		"amount":    o.Amount,
		"userId":    o.UserID,
	})
	response.OK(c, o)
}
