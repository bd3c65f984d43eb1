package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultRedisPrefix = "reflections:session:"

// RedisBinder issues stores that keep the session record in redis, referenced from the
// browser by an opaque session id cookie.
type RedisBinder struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	opts   CookieOptions
}

// NewRedisBinder creates a redis-backed binder. Records expire after the cookie MaxAge.
func NewRedisBinder(client redis.UniversalClient, opts CookieOptions) *RedisBinder {
	opts = opts.normalize()
	return &RedisBinder{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    opts.MaxAge,
		opts:   opts,
	}
}

// Bind implements Binder.
func (b *RedisBinder) Bind(w http.ResponseWriter, r *http.Request) Store {
	s := &RedisStore{binder: b, w: w}
	if cookie, err := r.Cookie(b.opts.Name); err == nil {
		s.sessionID = cookie.Value
	}
	return s
}

func (b *RedisBinder) key(sessionID string) string {
	return b.prefix + sessionID
}

// RedisStore is a Store bound to one request/response pair.
type RedisStore struct {
	binder *RedisBinder
	w      http.ResponseWriter

	mu        sync.Mutex
	sessionID string
	// known is set once sessionID has been seen to reference a stored record;
	// ids presented by the browser are never adopted for new sessions.
	known bool
}

func (s *RedisStore) Read(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == "" {
		return nil, nil
	}

	val, err := s.binder.client.Get(ctx, s.binder.key(s.sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	rec, err := decodeRecord(val)
	if err != nil {
		log.Debug().Err(err).Msg("discarding corrupt session record")
		if err := s.purge(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to purge session record")
		}
		return nil, nil
	}

	s.known = true
	return rec, nil
}

func (s *RedisStore) Write(ctx context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known {
		id, err := generateSessionID()
		if err != nil {
			return err
		}
		s.sessionID = id
		s.known = true
	}

	if err := s.binder.client.Set(ctx, s.binder.key(s.sessionID), data, s.binder.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	setCookie(s.w, s.binder.opts.cookie(s.sessionID))
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.purge(ctx)
}

// purge deletes the record and the cookie; callers hold mu.
func (s *RedisStore) purge(ctx context.Context) error {
	setCookie(s.w, s.binder.opts.expired())
	if s.sessionID == "" {
		return nil
	}

	id := s.sessionID
	s.sessionID = ""
	s.known = false
	if err := s.binder.client.Del(ctx, s.binder.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// generateSessionID returns 256 bits of randomness, URL-safe encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
