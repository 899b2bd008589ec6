package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

var ErrSessionNotFound = errors.New("form session not found")

// Session is a server-side form, rehydrated on every request.
type Session struct {
	ID        string           `json:"id"`
	State     assessment.State `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type Sessions struct {
	kv   kv.Store
	keys Keyspace
	ttl  time.Duration
	now  func() time.Time
}

func NewSessions(s kv.Store, keys Keyspace, ttl time.Duration) *Sessions {
	return &Sessions{kv: s, keys: keys, ttl: ttl, now: time.Now}
}

func (s *Sessions) key(client, id string) string {
	return s.keys.Key(client, keySessionPrefix+id)
}

// Create stores a fresh session for the given form state.
func (s *Sessions) Create(ctx context.Context, client string, st assessment.State) (Session, error) {
	now := s.now().UTC()
	sess := Session{ID: uuid.NewString(), State: st, CreatedAt: now, UpdatedAt: now}
	if err := kv.SetJSON(ctx, s.kv, s.key(client, sess.ID), sess, s.ttl); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Sessions) Load(ctx context.Context, client, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrSessionNotFound
	}
	var sess Session
	if err := kv.GetJSON(ctx, s.kv, s.key(client, id), &sess); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// Save writes the session back, refreshing its TTL. Last write wins.
func (s *Sessions) Save(ctx context.Context, client string, sess Session) error {
	sess.UpdatedAt = s.now().UTC()
	if err := kv.SetJSON(ctx, s.kv, s.key(client, sess.ID), sess, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, client, id string) error {
	return s.kv.Delete(ctx, s.key(client, id))
}
