package coupons

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
)

type fixture struct {
	store  *memStore
	audit  *adminlog.MemoryStore
	router *gin.Engine
}

func newFixture(cs ...*models.Coupon) *fixture {
	gin.SetMode(gin.TestMode)
	store := newMemStore(cs...)
	audit := adminlog.NewMemoryStore()
	res := NewResolver(store)
	res.now = func() time.Time { return t0 }
	h := NewHandler(store, res, adminlog.NewRecorder(audit, nil), nil)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, uuid.New()); c.Next() })
	r.POST("/coupons/validate", h.Validate)
	r.POST("/admin/coupons", h.Create)
	r.PATCH("/admin/coupons/:id/toggle", h.Toggle)
	return &fixture{store: store, audit: audit, router: r}
}

func (f *fixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func TestValidateHandler_FreeCoupon(t *testing.T) {
	f := newFixture(percent("FREE100", 100))
	w := f.post(t, "/coupons/validate", ValidateRequest{Code: "free100", Plan: "basic", OriginalPrice: 299})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    ValidResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, ValidResponse{Valid: true, DiscountAmount: 299, FinalPrice: 0, IsFree: true}, body.Data)
	assert.Contains(t, w.Body.String(), `"finalPrice":0`)
}

func TestValidateHandler_InvalidReason(t *testing.T) {
	used := percent("ONCE", 10)
	used.MaxUsage = ptr(1)
	used.UsageCount = 1
	f := newFixture(used)

	w := f.post(t, "/coupons/validate", ValidateRequest{Code: "ONCE", Plan: "PREMIUM", OriginalPrice: 599})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"valid":false,"reason":"USAGE_EXCEEDED"}}`, w.Body.String())
}

func TestValidateHandler_TamperedPrice(t *testing.T) {
	f := newFixture(percent("FREE100", 100))
	w := f.post(t, "/coupons/validate", ValidateRequest{Code: "FREE100", Plan: "PREMIUM", OriginalPrice: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateHandler_FreePlanNotPurchasable(t *testing.T) {
	f := newFixture()
	w := f.post(t, "/coupons/validate", ValidateRequest{Code: "X", Plan: "FREE", OriginalPrice: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateHandler_AuditsAndNormalizes(t *testing.T) {
	f := newFixture()
	w := f.post(t, "/admin/coupons", CouponInput{Code: " summer20 ", DiscountType: models.DiscountPercent, DiscountValue: 20})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"SUMMER20"`)

	logs := f.audit.All()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionCreate, logs[0].Action)
	assert.Equal(t, models.TargetCoupon, logs[0].TargetType)

	w = f.post(t, "/admin/coupons", CouponInput{Code: "summer20", DiscountType: models.DiscountPercent, DiscountValue: 20})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateHandler_AuditFailureIsFlagged(t *testing.T) {
	f := newFixture()
	f.audit.Err = errors.New("db down")

	w := f.post(t, "/admin/coupons", CouponInput{Code: "FALL10", DiscountType: models.DiscountPercent, DiscountValue: 10})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "false", w.Header().Get("X-Audit-Recorded"))
	var body struct {
		Success bool   `json:"success"`
		Warning string `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, adminlog.AuditWarning, body.Warning)
	_, err := f.store.GetByCode(context.Background(), "FALL10")
	assert.NoError(t, err)
}

func TestCreateHandler_RejectsPercentOver100(t *testing.T) {
	f := newFixture()
	w := f.post(t, "/admin/coupons", CouponInput{Code: "HUGE", DiscountType: models.DiscountPercent, DiscountValue: 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.audit.All())
}

func TestToggleHandler(t *testing.T) {
	c := percent("FLIP", 10)
	f := newFixture(c)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/admin/coupons/"+c.ID.String()+"/toggle", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isActive":false`)
	assert.Len(t, f.audit.All(), 1)
}
