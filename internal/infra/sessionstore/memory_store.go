package sessionstore

import (
	"errors"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"github.com/google/uuid"
)

// MemoryStore keeps pairs in a process-local TTL cache keyed by sid.
// Sessions do not survive a restart and are not shared between replicas.
type MemoryStore struct {
	cache port.Cache[port.SessionPair]
	opts  CookieOptions
}

// NewMemoryStore creates a store over cache.
func NewMemoryStore(cache port.Cache[port.SessionPair], opts CookieOptions) *MemoryStore {
	return &MemoryStore{cache: cache, opts: opts}
}

func (s *MemoryStore) Load(r *http.Request) (port.SessionPair, error) {
	sid := cookieValue(r, SIDCookie)
	if sid == "" {
		return port.SessionPair{}, nil
	}
	pair, ok := s.cache.Get(sid)
	if !ok {
		return port.SessionPair{}, domain.ErrSessionNotFound
	}
	return pair, nil
}

func (s *MemoryStore) Save(w http.ResponseWriter, r *http.Request, pair port.SessionPair, ttl time.Duration) error {
	if !pair.Complete() {
		return errors.New("session pair must carry both token and user")
	}
	if old := cookieValue(r, SIDCookie); old != "" {
		s.cache.Delete(old)
	}

	sid := uuid.NewString()
	s.cache.SetWithTTL(sid, pair, ttl)
	s.opts.set(w, SIDCookie, sid, ttl)
	return nil
}

func (s *MemoryStore) Clear(w http.ResponseWriter, r *http.Request) error {
	if sid := cookieValue(r, SIDCookie); sid != "" {
		s.cache.Delete(sid)
	}
	s.opts.expire(w, SIDCookie)
	return nil
}
