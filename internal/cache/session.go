package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stashd/stashd/internal/model"
)

// Key prefixes for session and password-reset state.
const (
	sessionKeyPrefix    = "session:"
	resetTokenKeyPrefix = "reset:"
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// SetSession stores a session under its token with the given TTL.
func (c *Cache) SetSession(ctx context.Context, session *model.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKeyPrefix + session.Token
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by token.
// Returns ErrCacheMiss if the token is unknown or expired.
func (c *Cache) GetSession(ctx context.Context, token string) (*model.Session, error) {
	data, err := c.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupted entry - treat as miss
		return nil, ErrCacheMiss
	}
	session.Token = token

	return &session, nil
}

// DeleteSession removes a session, signing the holder out.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SetResetToken stores a single-use password reset token for a user.
func (c *Cache) SetResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, resetTokenKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken retrieves and deletes a reset token, returning the
// user it was issued for. Returns ErrCacheMiss for unknown or already
// consumed tokens.
func (c *Cache) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	userID, err := c.client.GetDel(ctx, resetTokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	return userID, nil
}
