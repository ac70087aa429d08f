// Package plans is the canonical catalog of subscription tiers: list price and the
// grants each tier gives on activation.
package plans

import (
	"errors"
	"strings"

	"github.com/kariyerai/backend/internal/models"
)

// ErrUnknownPlan is returned for plan identifiers outside the catalog.
var ErrUnknownPlan = errors.New("unknown plan")

// Plan describes one tier.
type Plan struct {
	ID               models.Plan `json:"id"`
	Name             string      `json:"name"`
	Price            int         `json:"price"` // whole TRY
	Credits          int         `json:"credits"`
	CVChatTokens     int         `json:"cvChatTokens"`
	SessionChatLimit int         `json:"sessionChatLimit"` // advisory per-session cap
	MaxCVs           int         `json:"maxCvs"`
	DurationDays     int         `json:"durationDays"` // 0 = no expiry
}

var catalog = []Plan{
	{ID: models.PlanFree, Name: "Ücretsiz", Price: 0, Credits: 5, CVChatTokens: 50, SessionChatLimit: 20, MaxCVs: 1},
	{ID: models.PlanBasic, Name: "Temel", Price: 299, Credits: 50, CVChatTokens: 500, SessionChatLimit: 100, MaxCVs: 5, DurationDays: 30},
	{ID: models.PlanPremium, Name: "Premium", Price: 599, Credits: 200, CVChatTokens: 2000, SessionChatLimit: 300, MaxCVs: 20, DurationDays: 30},
}

// All returns the catalog in display order.
func All() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id models.Plan) (Plan, error) {
	for _, p := range catalog {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}

// MustLookup is Lookup for identifiers already validated (e.g. read back from the database).
// Unknown identifiers fall back to FREE.
func MustLookup(id models.Plan) Plan {
	p, err := Lookup(id)
	if err != nil {
		return catalog[0]
	}
	return p
}

// Parse accepts a case-insensitive plan identifier.
func Parse(s string) (models.Plan, error) {
	id := models.Plan(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := Lookup(id); err != nil {
		return "", err
	}
	return id, nil
}

// Purchasable reports whether id can be bought. FREE is granted at registration only.
func Purchasable(id models.Plan) bool {
	p, err := Lookup(id)
	return err == nil && p.Price > 0
}
