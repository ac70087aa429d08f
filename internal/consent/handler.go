// Package consent records cookie consent choices per client IP.
package consent

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/models"
)

const maxConsentTypeLength = 32

// Handler serves /api/cookie-consent. Its responses use their own shape rather than the
// standard envelope so existing clients keep parsing them.
type Handler struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a consent handler. ttlDays below 1 falls back to 30.
func NewHandler(store Store, ttlDays int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttlDays < 1 {
		ttlDays = 30
	}
	return &Handler{
		store:  store,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Request is the POST body.
type Request struct {
	ConsentType string `json:"consentType" binding:"required"`
}

// Status is the GET response.
type Status struct {
	HasConsent  bool       `json:"hasConsent"`
	ConsentType string     `json:"consentType,omitempty"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Get handles GET /api/cookie-consent.
func (h *Handler) Get(c *gin.Context) {
	rec, err := h.store.Latest(c.Request.Context(), c.ClientIP(), h.now())
	if err != nil {
		h.logger.Error("load cookie consent failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"hasConsent": false, "error": "failed to load consent"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, Status{HasConsent: false})
		return
	}
	c.JSON(http.StatusOK, Status{
		HasConsent:  true,
		ConsentType: rec.ConsentType,
		AcceptedAt:  &rec.AcceptedAt,
		ExpiresAt:   &rec.ExpiresAt,
	})
}

// Save handles POST /api/cookie-consent.
func (h *Handler) Save(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "consentType is required"})
		return
	}
	kind := strings.ToLower(strings.TrimSpace(req.ConsentType))
	if kind == "" || len(kind) > maxConsentTypeLength {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid consentType"})
		return
	}
	now := h.now()
	rec := &models.CookieConsent{
		IPAddress:   c.ClientIP(),
		ConsentType: kind,
		AcceptedAt:  now,
		ExpiresAt:   now.Add(h.ttl),
	}
	if err := h.store.Insert(c.Request.Context(), rec); err != nil {
		h.logger.Error("save cookie consent failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save consent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "consentId": rec.ID, "expiresAt": rec.ExpiresAt})
}
