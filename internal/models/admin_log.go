package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AdminAction is the kind of administrative mutation.
type AdminAction string

const (
	ActionCreate  AdminAction = "CREATE"
	ActionUpdate  AdminAction = "UPDATE"
	ActionDelete  AdminAction = "DELETE"
	ActionApprove AdminAction = "APPROVE"
	ActionReject  AdminAction = "REJECT"
	ActionLogin   AdminAction = "LOGIN"
)

// Valid reports whether a is a known action.
func (a AdminAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionApprove, ActionReject, ActionLogin:
		return true
	}
	return false
}

// TargetType is the entity an admin action touched.
type TargetType string

const (
	TargetUser     TargetType = "USER"
	TargetJob      TargetType = "JOB"
	TargetCoupon   TargetType = "COUPON"
	TargetOrder    TargetType = "ORDER"
	TargetChat     TargetType = "CHAT"
	TargetAdminLog TargetType = "ADMIN_LOG"
	TargetSystem   TargetType = "SYSTEM"
)

// AdminLog is one append-only audit entry.
type AdminLog struct {
	ID         int64           `json:"id"`
	AdminID    uuid.UUID       `json:"adminId"`
	Action     AdminAction     `json:"action"`
	TargetType TargetType      `json:"targetType"`
	TargetID   *string         `json:"targetId,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	IPAddress  string          `json:"ipAddress"`
	CreatedAt  time.Time       `json:"createdAt"`
}
