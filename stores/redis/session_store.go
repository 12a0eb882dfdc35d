// Package redis keeps scs session data in Redis so sessions survive restarts
// and are shared between server instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every session token to form its Redis key.
const DefaultPrefix = "session:"

// SessionStore implements scs.CtxStore.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client goredis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, prefix: DefaultPrefix}
}

// WithPrefix returns a copy of the store using prefix for its keys.
func (s *SessionStore) WithPrefix(prefix string) *SessionStore {
	return &SessionStore{client: s.client, prefix: prefix}
}

func (s *SessionStore) key(token string) string {
	return s.prefix + token
}

// FindCtx returns the session data for token.  found is false for missing
// and expired sessions.
func (s *SessionStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: failed to load: %w", err)
	}
	return b, true, nil
}

// CommitCtx stores b under token until expiry.
func (s *SessionStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.DeleteCtx(ctx, token)
	}
	if err := s.client.Set(ctx, s.key(token), b, ttl).Err(); err != nil {
		return fmt.Errorf("session: failed to save: %w", err)
	}
	return nil
}

// DeleteCtx removes the session.  Deleting a missing session is not an error.
func (s *SessionStore) DeleteCtx(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *SessionStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

func (s *SessionStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

func (s *SessionStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
