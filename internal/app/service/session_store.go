package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionStore keeps the current-user snapshot of every live session in Redis.
// session:{sid} holds the snapshot and user_sessions:{uid} indexes a user's sessions.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sid string) string     { return "session:" + sid }
func userSessionsKey(uid string) string { return "user_sessions:" + uid }

// Open starts a session for user and returns its id.
func (s *SessionStore) Open(ctx context.Context, user *model.User) (string, error) {
	data, err := json.Marshal(user.Snapshot())
	if err != nil {
		return "", fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	sid := uuid.NewString()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(sid), data, s.ttl)
	pipe.SAdd(ctx, userSessionsKey(user.ID), sid)
	pipe.Expire(ctx, userSessionsKey(user.ID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to open session for user %s: %w", user.ID, err)
	}
	return sid, nil
}

// Get returns the snapshot behind sid, or common.ErrUnauthorized once the
// session has expired or been revoked.
func (s *SessionStore) Get(ctx context.Context, sid string) (*model.CurrentUser, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session expired or logged out: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var cu model.CurrentUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return nil, fmt.Errorf("session %s has a malformed snapshot: %w", sid, err)
	}
	return &cu, nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	cu, err := s.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return nil
		}
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(sid))
	pipe.SRem(ctx, userSessionsKey(cu.ID), sid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sid, err)
	}
	return nil
}

// Refresh rewrites every live snapshot of user, keeping each session's remaining TTL.
// Sessions that have already ended stay ended.
func (s *SessionStore) Refresh(ctx context.Context, user *model.User) error {
	sids, err := s.rdb.SMembers(ctx, userSessionsKey(user.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions of user %s: %w", user.ID, err)
	}
	data, err := json.Marshal(user.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	for _, sid := range sids {
		// XX never recreates a session that ended after SMembers.
		err := s.rdb.SetArgs(ctx, sessionKey(sid), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
		if errors.Is(err, redis.Nil) {
			if err := s.rdb.SRem(ctx, userSessionsKey(user.ID), sid).Err(); err != nil {
				return fmt.Errorf("failed to drop ended session %s: %w", sid, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to refresh session %s: %w", sid, err)
		}
	}
	zap.L().Debug("Refreshed sessions", zap.String("user_id", user.ID), zap.Int("sessions", len(sids)))
	return nil
}

// RevokeUser ends every session of the user.
func (s *SessionStore) RevokeUser(ctx context.Context, userID string) error {
	sids, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions of user %s: %w", userID, err)
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, sessionKey(sid))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke sessions of user %s: %w", userID, err)
	}
	return nil
}
