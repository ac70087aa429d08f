package consent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	recs []models.CookieConsent
	err  error
}

func (m *memStore) Latest(_ context.Context, ip string, now time.Time) (*models.CookieConsent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.CookieConsent
	for i := range m.recs {
		r := &m.recs[i]
		if r.IPAddress == ip && r.ExpiresAt.After(now) && (best == nil || r.AcceptedAt.After(best.AcceptedAt)) {
			best = r
		}
	}
	return best, nil
}

func (m *memStore) Insert(_ context.Context, c *models.CookieConsent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c.ID = uuid.New()
	m.recs = append(m.recs, *c)
	return nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/cookie-consent", h.Get)
	r.POST("/api/cookie-consent", h.Save)
	return r
}

func call(r *gin.Engine, method, body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/cookie-consent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConsent_SaveThenGet(t *testing.T) {
	store := &memStore{}
	h := NewHandler(store, 30, nil)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }
	r := newRouter(h)

	w := call(r, http.MethodGet, "", "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasConsent":false}`, w.Body.String())

	w = call(r, http.MethodPost, `{"consentType":"all"}`, "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	var saved struct {
		Success   bool      `json:"success"`
		ConsentID uuid.UUID `json:"consentId"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.True(t, saved.Success)
	assert.NotEqual(t, uuid.Nil, saved.ConsentID)
	assert.True(t, saved.ExpiresAt.Equal(now.Add(30*24*time.Hour)))

	w = call(r, http.MethodGet, "", "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	var got Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.HasConsent)
	assert.Equal(t, "all", got.ConsentType)

	w = call(r, http.MethodGet, "", "10.0.0.2")
	assert.JSONEq(t, `{"hasConsent":false}`, w.Body.String())
}

func TestConsent_Expired(t *testing.T) {
	store := &memStore{}
	h := NewHandler(store, 30, nil)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return start }
	r := newRouter(h)
	require.Equal(t, http.StatusOK, call(r, http.MethodPost, `{"consentType":"necessary"}`, "10.0.0.1").Code)

	h.now = func() time.Time { return start.Add(31 * 24 * time.Hour) }
	w := call(r, http.MethodGet, "", "10.0.0.1")
	assert.JSONEq(t, `{"hasConsent":false}`, w.Body.String())
}

func TestConsent_StoreFailureIs500(t *testing.T) {
	r := newRouter(NewHandler(&memStore{err: errors.New("db down")}, 30, nil))
	w := call(r, http.MethodPost, `{"consentType":"all"}`, "10.0.0.1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"failed to save consent"}`, w.Body.String())
}

func TestConsent_MalformedBodyIs400(t *testing.T) {
	r := newRouter(NewHandler(&memStore{}, 30, nil))
	for _, body := range []string{`{`, `{}`, `{"consentType":"   "}`} {
		w := call(r, http.MethodPost, body, "10.0.0.1")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
