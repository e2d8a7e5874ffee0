// internal/identity/sessions.go
package identity

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/models"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// EventsChannel carries IdentityEvent payloads for every sign-in and sign-out.
const EventsChannel = "identity:events"

// SessionStore keeps signed-in sessions in Redis and announces changes on EventsChannel.
type SessionStore struct {
	rdb    *redisv8.Client
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

func NewSessionStore(rdb *redisv8.Client, ttl time.Duration, log logger.Logger) *SessionStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SessionStore{
		rdb:    rdb,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "sessions"}),
	}
}

func sessionKey(accountID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", accountID, sessionID)
}

// Create stores a new session for id and publishes a signed-in event.
func (s *SessionStore) Create(ctx context.Context, id models.Identity, accessToken, refreshToken string) (*models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:           uuid.NewString(),
		AccountID:    id.AccountID,
		Email:        id.Email,
		Provider:     id.Provider,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
	}
	if s.ttl > 0 {
		session.ExpiresAt = now.Add(s.ttl)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, errors.NewUpstreamError("sessions", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.AccountID, session.ID), data, s.ttl).Err(); err != nil {
		return nil, errors.NewUpstreamError("sessions", fmt.Errorf("store session: %w", err))
	}

	s.announce(ctx, models.IdentityEvent{
		Type:      models.IdentitySignedIn,
		AccountID: session.AccountID,
		SessionID: session.ID,
		Email:     session.Email,
		At:        now,
	})
	return session, nil
}

// Load returns the referenced session, or nil when it does not exist.
func (s *SessionStore) Load(ctx context.Context, ref models.SessionRef) (*models.Session, error) {
	if ref.AccountID == "" || ref.SessionID == "" {
		return nil, nil
	}

	data, err := s.rdb.Get(ctx, sessionKey(ref.AccountID, ref.SessionID)).Bytes()
	if stderrors.Is(err, redisv8.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewUpstreamError("sessions", fmt.Errorf("load session: %w", err))
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.NewUpstreamError("sessions", fmt.Errorf("decode session: %w", err))
	}
	return &session, nil
}

// Delete removes the referenced session. Deleting a missing session is a no-op.
func (s *SessionStore) Delete(ctx context.Context, ref models.SessionRef) error {
	removed, err := s.rdb.Del(ctx, sessionKey(ref.AccountID, ref.SessionID)).Result()
	if err != nil {
		return errors.NewUpstreamError("sessions", fmt.Errorf("delete session: %w", err))
	}
	if removed == 0 {
		return nil
	}

	s.announce(ctx, models.IdentityEvent{
		Type:      models.IdentitySignedOut,
		AccountID: ref.AccountID,
		SessionID: ref.SessionID,
		At:        s.now().UTC(),
	})
	return nil
}

func (s *SessionStore) announce(ctx context.Context, event models.IdentityEvent) {
	data, err := json.Marshal(event)
	if err == nil {
		err = s.rdb.Publish(ctx, EventsChannel, data).Err()
	}
	if err != nil {
		s.logger.Warn("Failed to publish identity event", map[string]interface{}{
			"type":      event.Type,
			"accountId": event.AccountID,
			"error":     err.Error(),
		})
	}
}

// Watch delivers identity events to fn until ctx is cancelled.
func (s *SessionStore) Watch(ctx context.Context, fn func(models.IdentityEvent)) error {
	sub := s.rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.IdentityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn("Ignoring malformed identity event", map[string]interface{}{"error": err.Error()})
				continue
			}
			fn(event)
		}
	}
}
