package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

// RedisStore keeps the pair server side in a Redis hash addressed by an
// opaque sid cookie.
type RedisStore struct {
	client redis.UniversalClient
	opts   CookieOptions
	logger *zap.Logger
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts CookieOptions, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, opts: opts, logger: logger}
}

func (s *RedisStore) Load(r *http.Request) (port.SessionPair, error) {
	sid := cookieValue(r, SIDCookie)
	if sid == "" {
		return port.SessionPair{}, nil
	}
	if _, err := uuid.Parse(sid); err != nil {
		return port.SessionPair{}, fmt.Errorf("malformed sid: %w", err)
	}

	fields, err := s.client.HGetAll(r.Context(), keyPrefix+sid).Result()
	if err != nil {
		return port.SessionPair{}, &domain.ErrStoreUnavailable{Store: "redis", Err: err}
	}
	if len(fields) == 0 {
		return port.SessionPair{}, domain.ErrSessionNotFound
	}
	return port.SessionPair{Token: fields["token"], User: []byte(fields["user"])}, nil
}

// Save issues a fresh sid and writes both fields plus the TTL in one
// transaction.
func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, pair port.SessionPair, ttl time.Duration) error {
	if !pair.Complete() {
		return errors.New("session pair must carry both token and user")
	}

	if old := cookieValue(r, SIDCookie); old != "" {
		if err := s.client.Del(r.Context(), keyPrefix+old).Err(); err != nil {
			s.logger.Warn("session: failed to drop previous sid", zap.Error(err))
		}
	}

	sid := uuid.NewString()
	key := keyPrefix + sid
	_, err := s.client.TxPipelined(r.Context(), func(p redis.Pipeliner) error {
		p.HSet(r.Context(), key, "token", pair.Token, "user", string(pair.User))
		p.Expire(r.Context(), key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.opts.set(w, SIDCookie, sid, ttl)
	return nil
}

// Clear deletes the hash and expires the sid cookie. The cookie is expired
// even when Redis fails so the browser never keeps a half session.
func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sid := cookieValue(r, SIDCookie)
	s.opts.expire(w, SIDCookie)
	if sid == "" {
		return nil
	}
	if err := s.client.Del(r.Context(), keyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
