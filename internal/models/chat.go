package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the consultant chat room state.
type RoomStatus string

const (
	RoomActive RoomStatus = "ACTIVE"
	RoomClosed RoomStatus = "CLOSED"
)

// SenderType identifies which side of a room wrote a message.
type SenderType string

const (
	SenderUser       SenderType = "USER"
	SenderConsultant SenderType = "CONSULTANT"
)

// ChatRoom pairs a user with a consultant.
type ChatRoom struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	ConsultantID  uuid.UUID  `json:"consultantId"`
	Status        RoomStatus `json:"status"`
	Rating        *int       `json:"rating,omitempty"`
	RatingComment string     `json:"ratingComment,omitempty"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	UnreadCount   int        `json:"unreadCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ChatMessage is one message in a room. Seq is the per-table ordering key.
type ChatMessage struct {
	Seq        int64      `json:"seq"`
	ID         uuid.UUID  `json:"id"`
	RoomID     uuid.UUID  `json:"roomId"`
	SenderType SenderType `json:"senderType"`
	SenderID   uuid.UUID  `json:"senderId"`
	Content    string     `json:"content"`
	IsRead     bool       `json:"isRead"`
	CreatedAt  time.Time  `json:"createdAt"`
}
