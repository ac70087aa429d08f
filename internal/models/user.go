package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleConsultant Role = "CONSULTANT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleConsultant:
		return true
	}
	return false
}

// User represents a platform user together with both consumable balances.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	Credits      int       `json:"credits"`
	CVChatTokens int       `json:"cvChatTokens"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	Credits      int       `json:"credits"`
	CVChatTokens int       `json:"cvChatTokens"`
	Plan         Plan      `json:"plan,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Phone:        u.Phone,
		Role:         u.Role,
		Credits:      u.Credits,
		CVChatTokens: u.CVChatTokens,
		CreatedAt:    u.CreatedAt,
	}
}
