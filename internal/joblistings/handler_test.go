package joblistings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

func newRouter(store Store, audit *adminlog.MemoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, adminlog.NewRecorder(audit, nil), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, uuid.New()); c.Next() })
	r.GET("/jobs", h.List)
	r.GET("/jobs/:id", h.Get)
	r.POST("/admin/jobs", h.Create)
	r.PUT("/admin/jobs/:id", h.Update)
	r.DELETE("/admin/jobs/:id", h.Delete)
	return r
}

func send(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicListHidesInactive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.JobListing{Title: "Go Developer", Company: "Acme", Description: "APIs", IsActive: true}))
	hidden := &models.JobListing{Title: "Go Lead", Company: "Acme", Description: "Team", IsActive: false}
	require.NoError(t, store.Create(ctx, hidden))
	require.NoError(t, store.Create(ctx, &models.JobListing{Title: "Designer", Company: "Studio", Description: "UI", IsActive: true}))
	r := newRouter(store, adminlog.NewMemoryStore())

	w := send(r, http.MethodGet, "/jobs?q=go", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Items []models.JobListing `json:"items"`
			Total int                 `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Total)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Go Developer", body.Data.Items[0].Title)

	w = send(r, http.MethodGet, "/jobs/"+hidden.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCRUD_Audited(t *testing.T) {
	store := NewMemoryStore()
	audit := adminlog.NewMemoryStore()
	r := newRouter(store, audit)

	w := send(r, http.MethodPost, "/admin/jobs", Input{Title: "SRE", Company: "Acme", Description: "On-call"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.JobListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Data.IsActive)

	off := false
	w = send(r, http.MethodPut, "/admin/jobs/"+created.Data.ID.String(),
		Input{Title: "SRE", Company: "Acme", Description: "On-call", IsActive: &off})
	require.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodDelete, "/admin/jobs/"+created.Data.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	entries := audit.All()
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActionCreate, entries[0].Action)
	assert.Equal(t, models.ActionUpdate, entries[1].Action)
	assert.Equal(t, models.ActionDelete, entries[2].Action)
	assert.Equal(t, models.TargetJob, entries[2].TargetType)
}

func TestCreate_Validation(t *testing.T) {
	r := newRouter(NewMemoryStore(), adminlog.NewMemoryStore())
	w := send(r, http.MethodPost, "/admin/jobs", Input{Title: "  ", Company: "Acme", Description: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete_AuditFailureReturnsWarning(t *testing.T) {
	store := NewMemoryStore()
	audit := adminlog.NewMemoryStore()
	r := newRouter(store, audit)

	w := send(r, http.MethodPost, "/admin/jobs", Input{Title: "SRE", Company: "Acme", Description: "On-call"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.JobListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	audit.Err = errors.New("db down")
	w = send(r, http.MethodDelete, "/admin/jobs/"+created.Data.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Header().Get("X-Audit-Recorded"))
	assert.JSONEq(t, `{"success":true,"warning":"`+adminlog.AuditWarning+`"}`, w.Body.String())
	assert.Len(t, audit.All(), 1)
}
