package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	userSetPrefix    = "session:user:"
)

// Store keeps session tokens in Redis. Each token maps to a user id and
// expires after the configured TTL; a per-user set indexes a user's tokens.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewStore returns a Store whose sessions live for ttl.
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// TTL is the lifetime of a new session.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func userSetKey(userID uint) string {
	return userSetPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Create starts a session for userID and returns its token.
func (s *Store) Create(ctx context.Context, userID uint) (string, error) {
	token := uuid.NewString()

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(token), userID, s.ttl)
	pipe.SAdd(ctx, userSetKey(userID), token)
	pipe.Expire(ctx, userSetKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Lookup returns the user a token belongs to. Unknown and expired tokens
// report ok == false.
func (s *Store) Lookup(ctx context.Context, token string) (userID uint, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}
	raw, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup session: %w", err)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false, nil
	}
	return uint(id), true, nil
}

// Delete ends one session. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	userID, ok, err := s.Lookup(ctx, token)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	if ok {
		pipe.SRem(ctx, userSetKey(userID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUser ends every session of userID.
func (s *Store) DeleteUser(ctx context.Context, userID uint) error {
	tokens, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
	}
	keys = append(keys, userSetKey(userID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}
