package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/adminlog"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/models"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.UserPublic
}

func (m *memUsers) Get(_ context.Context, id uuid.UUID) (*models.UserPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) Search(_ context.Context, q string, page, size int) ([]models.UserPublic, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPublic
	for _, u := range m.users {
		if q == "" || strings.Contains(u.Email, q) || strings.Contains(u.FullName, q) {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (m *memUsers) Update(_ context.Context, id uuid.UUID, p Patch) (*models.UserPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Credits != nil {
		u.Credits = *p.Credits
	}
	if p.CVChatTokens != nil {
		u.CVChatTokens = *p.CVChatTokens
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Plan != nil {
		u.Plan = *p.Plan
	}
	m.users[id] = u
	return &u, nil
}

type fixture struct {
	router *gin.Engine
	audit  *adminlog.MemoryStore
	users  *memUsers
	user   models.UserPublic
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{audit: adminlog.NewMemoryStore()}
	f.user = models.UserPublic{ID: uuid.New(), Email: "ayse@example.com", FullName: "Ayşe", Role: models.RoleUser, Credits: 5, CVChatTokens: 50, Plan: models.PlanFree}
	f.users = &memUsers{users: map[uuid.UUID]models.UserPublic{f.user.ID: f.user}}
	ents := entitlements.NewMemoryStore()
	ents.Seed(f.user.ID, 5, 50)

	h := NewHandler(f.users, ents, adminlog.NewRecorder(f.audit, nil), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, f.user.ID)
		c.Set(middleware.ContextUserRole, "ADMIN")
		c.Next()
	})
	r.GET("/me", h.Me)
	r.GET("/admin/users", h.List)
	r.PATCH("/admin/users/:id", h.Update)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestMe_ReturnsSnapshotAndLimits(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			User         models.UserPublic `json:"user"`
			Entitlements struct {
				Credits int         `json:"credits"`
				Plan    models.Plan `json:"plan"`
			} `json:"entitlements"`
			Limits struct {
				MaxCVs int `json:"maxCvs"`
			} `json:"limits"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ayse@example.com", body.Data.User.Email)
	assert.Equal(t, 5, body.Data.Entitlements.Credits)
	assert.Equal(t, models.PlanFree, body.Data.Entitlements.Plan)
	assert.Equal(t, 1, body.Data.Limits.MaxCVs)
}

func TestUpdate_AuditsBeforeAndAfter(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPatch, "/admin/users/"+f.user.ID.String(), `{"credits":40,"plan":"basic"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	u, _ := f.users.Get(context.Background(), f.user.ID)
	assert.Equal(t, 40, u.Credits)
	assert.Equal(t, models.PlanBasic, u.Plan)

	logs := f.audit.All()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionUpdate, logs[0].Action)
	assert.Equal(t, models.TargetUser, logs[0].TargetType)
	var details struct {
		Before models.UserPublic `json:"before"`
		After  models.UserPublic `json:"after"`
	}
	require.NoError(t, json.Unmarshal(logs[0].Details, &details))
	assert.Equal(t, 5, details.Before.Credits)
	assert.Equal(t, 40, details.After.Credits)
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture()
	path := "/admin/users/" + f.user.ID.String()
	for _, body := range []string{`{}`, `{"credits":-1}`, `{"role":"ROOT"}`, `{"plan":"GOLD"}`} {
		w := f.do(http.MethodPatch, path, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, f.audit.All())

	w := f.do(http.MethodPatch, "/admin/users/"+uuid.NewString(), `{"credits":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestList_Searches(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/admin/users?q=ayse", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = f.do(http.MethodGet, "/admin/users?q=nobody", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}
