// Package chat implements user/consultant chat rooms. Clients poll for new messages by sequence.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/internal/models"
)

const (
	MaxMessageLength = 4000
	DefaultPageSize  = 100
	MaxPageSize      = 500
)

var (
	ErrNotParticipant = errors.New("not a participant of this room")
	ErrOwnerOnly      = errors.New("only the room owner can rate")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrEmptyMessage   = errors.New("message content is required")
	ErrMessageTooLong = errors.New("message is too long")
	ErrSelfChat       = errors.New("cannot open a room with yourself")
)

// Service enforces room membership and the ACTIVE/CLOSED cycle on top of a Store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a chat service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Open returns the caller's room with consultantID, creating it on first contact.
func (s *Service) Open(ctx context.Context, userID, consultantID uuid.UUID) (*models.ChatRoom, bool, error) {
	if userID == consultantID {
		return nil, false, ErrSelfChat
	}
	ok, err := s.store.IsConsultant(ctx, consultantID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrNotConsultant
	}
	room, created, err := s.store.GetOrCreateRoom(ctx, userID, consultantID)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("chat room opened", zap.String("room_id", room.ID.String()), zap.String("user_id", userID.String()))
	}
	return room, created, nil
}

// Rooms lists the viewer's rooms. Consultants see the rooms assigned to them.
func (s *Service) Rooms(ctx context.Context, viewer uuid.UUID, role models.Role) ([]models.ChatRoom, error) {
	side := models.SenderUser
	if role == models.RoleConsultant {
		side = models.SenderConsultant
	}
	list, err := s.store.ListRooms(ctx, viewer, side)
	if list == nil {
		list = []models.ChatRoom{}
	}
	return list, err
}

// Messages returns messages after seq in creation order.
func (s *Service) Messages(ctx context.Context, roomID, caller uuid.UUID, after int64, limit int) ([]models.ChatMessage, error) {
	if _, _, err := s.member(ctx, roomID, caller); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if after < 0 {
		after = 0
	}
	list, err := s.store.ListMessages(ctx, roomID, after, limit)
	if list == nil {
		list = []models.ChatMessage{}
	}
	return list, err
}

// Send appends a message. CLOSED rooms reject it with ErrRoomClosed.
func (s *Service) Send(ctx context.Context, roomID, caller uuid.UUID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	_, side, err := s.member(ctx, roomID, caller)
	if err != nil {
		return nil, err
	}
	m := &models.ChatMessage{RoomID: roomID, SenderType: side, SenderID: caller, Content: content}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Close ends the conversation. Either participant may close; a rating is only kept from the owner.
func (s *Service) Close(ctx context.Context, roomID, caller uuid.UUID, rating *int, comment string) (*models.ChatRoom, error) {
	_, side, err := s.member(ctx, roomID, caller)
	if err != nil {
		return nil, err
	}
	if side != models.SenderUser {
		rating, comment = nil, ""
	}
	if rating != nil && !validRating(*rating) {
		return nil, ErrInvalidRating
	}
	room, err := s.store.Close(ctx, roomID, rating, strings.TrimSpace(comment), s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("chat room closed", zap.String("room_id", roomID.String()), zap.String("by", string(side)))
	return room, nil
}

// Restart reopens a CLOSED room. History stays in place.
func (s *Service) Restart(ctx context.Context, roomID, caller uuid.UUID) (*models.ChatRoom, error) {
	if _, _, err := s.member(ctx, roomID, caller); err != nil {
		return nil, err
	}
	return s.store.Restart(ctx, roomID)
}

// Rate records the owner's satisfaction rating on a CLOSED room.
func (s *Service) Rate(ctx context.Context, roomID, caller uuid.UUID, rating int, comment string) (*models.ChatRoom, error) {
	_, side, err := s.member(ctx, roomID, caller)
	if err != nil {
		return nil, err
	}
	if side != models.SenderUser {
		return nil, ErrOwnerOnly
	}
	if !validRating(rating) {
		return nil, ErrInvalidRating
	}
	return s.store.Rate(ctx, roomID, rating, strings.TrimSpace(comment))
}

// MarkRead marks the other side's messages as read for the caller.
func (s *Service) MarkRead(ctx context.Context, roomID, caller uuid.UUID) (int, error) {
	_, side, err := s.member(ctx, roomID, caller)
	if err != nil {
		return 0, err
	}
	return s.store.MarkRead(ctx, roomID, side)
}

func (s *Service) member(ctx context.Context, roomID, caller uuid.UUID) (*models.ChatRoom, models.SenderType, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	switch caller {
	case room.UserID:
		return room, models.SenderUser, nil
	case room.ConsultantID:
		return room, models.SenderConsultant, nil
	}
	return nil, "", ErrNotParticipant
}

func validRating(r int) bool { return r >= 1 && r <= 5 }
