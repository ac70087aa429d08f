package cvchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kariyerai/backend/internal/ai"
)

// MaxHistory is how many turns are kept and replayed to the model.
const MaxHistory = 40

var ErrSessionNotFound = errors.New("chat session not found or expired")

// Session is one CV-building conversation. Used counts user messages sent in it.
type Session struct {
	ID        string       `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	Used      int          `json:"used"`
	CreatedAt time.Time    `json:"createdAt"`
	History   []ai.Message `json:"-"`
}

// SessionStore keeps chat sessions. Sessions expire after the store's TTL.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	// Append adds msgs to the history, counts one use and returns the new use count.
	Append(ctx context.Context, id string, msgs ...ai.Message) (int, error)
}

// RedisSessions stores sessions as a hash plus a history list, both under the same TTL.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions creates a Redis session store.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessions{client: client, ttl: ttl}
}

func metaKey(id string) string    { return "cvchat:session:" + id }
func historyKey(id string) string { return "cvchat:session:" + id + ":history" }

func (s *RedisSessions) Create(ctx context.Context, userID uuid.UUID) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now().UTC()}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, metaKey(sess.ID), map[string]interface{}{
			"user_id":    userID.String(),
			"created_at": sess.CreatedAt.Format(time.RFC3339Nano),
			"used":       0,
		})
		p.Expire(ctx, metaKey(sess.ID), s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *RedisSessions) Get(ctx context.Context, id string) (*Session, error) {
	meta, err := s.client.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(meta) == 0 {
		return nil, ErrSessionNotFound
	}
	userID, err := uuid.Parse(meta["user_id"])
	if err != nil {
		return nil, ErrSessionNotFound
	}
	sess := &Session{ID: id, UserID: userID}
	sess.Used, _ = strconv.Atoi(meta["used"])
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta["created_at"])

	raw, err := s.client.LRange(ctx, historyKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, item := range raw {
		var m ai.Message
		if json.Unmarshal([]byte(item), &m) == nil {
			sess.History = append(sess.History, m)
		}
	}
	return sess, nil
}

func (s *RedisSessions) Append(ctx context.Context, id string, msgs ...ai.Message) (int, error) {
	items := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return 0, err
		}
		items = append(items, b)
	}
	var used *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(items) > 0 {
			p.RPush(ctx, historyKey(id), items...)
			p.LTrim(ctx, historyKey(id), -MaxHistory, -1)
		}
		used = p.HIncrBy(ctx, metaKey(id), "used", 1)
		p.Expire(ctx, historyKey(id), s.ttl)
		p.Expire(ctx, metaKey(id), s.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append session: %w", err)
	}
	return int(used.Val()), nil
}

// MemorySessions is an in-process SessionStore for tests and local runs. It never expires.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemorySessions creates an empty MemorySessions.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]*Session)}
}

func (m *MemorySessions) Create(_ context.Context, userID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := &Session{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now().UTC()}
	m.sessions[sess.ID] = sess
	cp := *sess
	return &cp, nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	cp.History = append([]ai.Message(nil), sess.History...)
	return &cp, nil
}

func (m *MemorySessions) Append(_ context.Context, id string, msgs ...ai.Message) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	sess.History = append(sess.History, msgs...)
	if n := len(sess.History); n > MaxHistory {
		sess.History = sess.History[n-MaxHistory:]
	}
	sess.Used++
	return sess.Used, nil
}
