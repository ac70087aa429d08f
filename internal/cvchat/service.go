// Package cvchat is the AI CV-building chat. Replies are charged in cv chat tokens;
// the per-session message limit is advisory and never blocks a request.
package cvchat

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kariyerai/backend/config"
	"github.com/kariyerai/backend/internal/ai"
	"github.com/kariyerai/backend/internal/entitlements"
	"github.com/kariyerai/backend/internal/plans"
)

const (
	OperationCVChat  = "cv_chat"
	MaxMessageLength = 4000
)

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrMessageTooLong = errors.New("message is too long")
)

// Chatter produces the assistant's next turn. *ai.Client satisfies it.
type Chatter interface {
	ChatCV(ctx context.Context, history []ai.Message, message string) (*ai.Reply, error)
}

// Budget is the advisory per-session usage report.
type Budget struct {
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Exhausted bool `json:"exhausted"`
}

// NewBudget builds a budget report. A limit of zero or less means unlimited.
func NewBudget(limit, used int) Budget {
	b := Budget{Limit: limit, Used: used}
	if limit <= 0 {
		return b
	}
	b.Remaining = limit - used
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	b.Exhausted = used >= limit
	return b
}

// SessionView is a session as returned to clients.
type SessionView struct {
	*Session
	Budget Budget `json:"budget"`
}

// SendResult is the outcome of one message.
type SendResult struct {
	Reply      string      `json:"reply"`
	TokensUsed int         `json:"tokensUsed"`
	Balance    int         `json:"balance"`
	Session    SessionView `json:"session"`
	Replayed   bool        `json:"replayed,omitempty"` // idempotency key already settled; nothing charged or appended
}

// Service runs metered CV chat turns.
type Service struct {
	sessions SessionStore
	ents     entitlements.Store
	meter    *entitlements.Meter
	chatter  Chatter
	cost     int
	perUnit  int
	logger   *zap.Logger
}

// NewService creates a CV chat service from the metering config.
func NewService(sessions SessionStore, ents entitlements.Store, meter *entitlements.Meter, chatter Chatter,
	cfg config.MeteringConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{sessions: sessions, ents: ents, meter: meter, chatter: chatter,
		cost: cfg.CVChatMessageCost, perUnit: cfg.CVChatTokensPerUnit, logger: logger}
	if s.cost < 1 {
		s.cost = 1
	}
	if s.perUnit < 1 {
		s.perUnit = 1
	}
	return s
}

// Units converts model output tokens into cv chat tokens: ceil(outputTokens/perUnit),
// at least 1 and at most the per-message cost.
func (s *Service) Units(outputTokens int) int {
	n := (outputTokens + s.perUnit - 1) / s.perUnit
	if n < 1 {
		n = 1
	}
	if n > s.cost {
		n = s.cost
	}
	return n
}

// Start opens a new session with a fresh budget.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (*SessionView, error) {
	sess, err := s.sessions.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sess)
}

// Session returns the caller's session and its history.
func (s *Service) Session(ctx context.Context, userID uuid.UUID, id string) (*SessionView, []ai.Message, error) {
	sess, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.view(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	history := sess.History
	if history == nil {
		history = []ai.Message{}
	}
	return v, history, nil
}

// Send runs one chat turn under the cv_chat_tokens meter.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, sessionID, message, idempotencyKey string) (*SendResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	sess, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	var reply *ai.Reply
	op := entitlements.Operation{
		Name:      OperationCVChat,
		UserID:    userID,
		Resource:  entitlements.CVChatTokens,
		Required:  s.cost,
		RequestID: entitlements.RequestID(userID, OperationCVChat, idempotencyKey),
	}
	if strings.TrimSpace(idempotencyKey) != "" {
		prior, err := s.meter.Settled(ctx, op.RequestID)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.replay(ctx, sess, lastReply(sess.History), prior.Charged)
		}
	}
	charge, err := s.meter.Run(ctx, op, func(ctx context.Context) (int, error) {
		r, err := s.chatter.ChatCV(ctx, sess.History, message)
		if err != nil {
			return 0, err
		}
		reply = r
		return s.Units(r.OutputTokens), nil
	})
	if err != nil {
		return nil, err
	}
	if charge.Debit != nil && charge.Debit.Duplicate {
		// a concurrent retry settled first and owns the history entry
		return s.replay(ctx, sess, reply.Text, 0)
	}

	used, err := s.sessions.Append(ctx, sessionID,
		ai.Message{Role: "user", Content: message},
		ai.Message{Role: "assistant", Content: reply.Text})
	if err != nil {
		s.logger.Warn("append chat history failed", zap.String("session_id", sessionID), zap.Error(err))
		used = sess.Used + 1
	}
	sess.Used = used
	v, err := s.view(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &SendResult{Reply: reply.Text, TokensUsed: charge.Consumed, Balance: charge.Balance, Session: *v}, nil
}

func (s *Service) replay(ctx context.Context, sess *Session, reply string, charged int) (*SendResult, error) {
	bal, err := s.ents.Balance(ctx, sess.UserID, entitlements.CVChatTokens)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &SendResult{Reply: reply, TokensUsed: charged, Balance: bal, Session: *v, Replayed: true}, nil
}

// lastReply is the most recent assistant message in history.
func lastReply(history []ai.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			return history[i].Content
		}
	}
	return ""
}

func (s *Service) owned(ctx context.Context, userID uuid.UUID, id string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) view(ctx context.Context, sess *Session) (*SessionView, error) {
	snap, err := s.ents.Snapshot(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: sess, Budget: NewBudget(plans.MustLookup(snap.Plan).SessionChatLimit, sess.Used)}, nil
}
