package models

import (
	"time"

	"github.com/google/uuid"
)

// CookieConsent records one visitor's cookie choice.
type CookieConsent struct {
	ID          uuid.UUID `json:"id"`
	IPAddress   string    `json:"ipAddress"`
	ConsentType string    `json:"consentType"`
	AcceptedAt  time.Time `json:"acceptedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
