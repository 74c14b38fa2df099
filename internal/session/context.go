package session

import (
	"context"
	"net/http"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/api"
)

type contextKey struct{}

// WithSession stores s in ctx. The backend token travels with it so every
// api call made under ctx is authenticated as the session's user.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	ctx = context.WithValue(ctx, contextKey{}, s)
	return api.WithToken(ctx, s.Token)
}

// FromContext returns the request's session. Before Middleware ran it is
// the pending session.
func FromContext(ctx context.Context) domain.Session {
	s, ok := ctx.Value(contextKey{}).(domain.Session)
	if !ok {
		return domain.PendingSession()
	}
	return s
}

// Middleware initializes the session exactly once per request.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.Initialize(w, r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
