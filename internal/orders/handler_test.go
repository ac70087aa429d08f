package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
)

func newTestRouter(svc *Service, audit *adminlog.MemoryStore, caller uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, adminlog.NewRecorder(audit, nil), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, caller); c.Next() })
	r.POST("/orders", h.Create)
	r.POST("/admin/orders/:id/approve", h.Approve)
	r.POST("/admin/orders/:id/reject", h.Reject)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateHandler_CouponReasonIs422(t *testing.T) {
	store := newFakeStore()
	addCoupon(store, &models.Coupon{Code: "PREMONLY", DiscountType: models.DiscountPercent, DiscountValue: 10,
		PlanRestriction: func() *models.Plan { p := models.PlanPremium; return &p }()})
	user := addUser(store)
	r := newTestRouter(newService(store, nil), adminlog.NewMemoryStore(), user)

	w := postJSON(r, "/orders", CreateRequest{Plan: "BASIC", OriginalAmount: 299, CouponCode: "premonly"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"PLAN_MISMATCH"`)
}

func TestCreateHandler_FreeOrder(t *testing.T) {
	store := newFakeStore()
	addCoupon(store, &models.Coupon{Code: "FREE100", DiscountType: models.DiscountPercent, DiscountValue: 100})
	user := addUser(store)
	r := newTestRouter(newService(store, nil), adminlog.NewMemoryStore(), user)

	w := postJSON(r, "/orders", CreateRequest{Plan: "PREMIUM", OriginalAmount: 599, CouponCode: "FREE100"})
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Data struct {
			PaymentRequired       bool                   `json:"paymentRequired"`
			SubscriptionActivated bool                   `json:"subscriptionActivated"`
			Payment               map[string]interface{} `json:"payment"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.SubscriptionActivated)
	assert.False(t, body.Data.PaymentRequired)
	assert.Nil(t, body.Data.Payment)
}

func TestApproveHandler_Audited(t *testing.T) {
	store := newFakeStore()
	user := addUser(store)
	svc := newService(store, nil)
	audit := adminlog.NewMemoryStore()
	admin := uuid.New()
	r := newTestRouter(svc, audit, admin)

	out, err := svc.Create(context.Background(), user, CreateRequest{Plan: "BASIC", OriginalAmount: 299})
	require.NoError(t, err)

	w := postJSON(r, "/admin/orders/"+out.Order.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = postJSON(r, "/admin/orders/"+out.Order.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = postJSON(r, "/admin/orders/"+uuid.NewString()+"/reject", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	logs := audit.All()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionApprove, logs[0].Action)
	assert.Equal(t, admin, logs[0].AdminID)
	require.NotNil(t, logs[0].TargetID)
	assert.Equal(t, out.Order.ID.String(), *logs[0].TargetID)
}
