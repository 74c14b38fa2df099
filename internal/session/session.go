// Package session owns the signed-in user's token + user pair: it reads the
// pair once per request, writes it on login and removes it on logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("session")

// DefaultTTL is how long a login lasts.
const DefaultTTL = 8 * time.Hour

// LoginFailedMessage is shown when the backend gave no reason.
const LoginFailedMessage = "Error al iniciar sesión"

// Service manages the session pair through a port.SessionStore.
type Service struct {
	store   port.SessionStore
	auth    port.Authenticator
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewService creates the session service. metrics may be nil.
func NewService(store port.SessionStore, auth port.Authenticator, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, auth: auth, ttl: ttl, metrics: metrics, logger: logger}
}

// Initialize reads the stored pair. A complete pair whose user decodes
// yields a signed-in session; a partial, unverifiable, undecodable or
// unknown pair is cleared. An unreadable store leaves the pair in place and
// the request proceeds anonymously. The result is never Loading.
func (s *Service) Initialize(w http.ResponseWriter, r *http.Request) domain.Session {
	pair, err := s.store.Load(r)
	if err == nil && pair.Empty() {
		return domain.Session{}
	}

	var unavailable *domain.ErrStoreUnavailable
	if errors.As(err, &unavailable) {
		s.logger.Error("session: store unavailable, serving request anonymously", zap.Error(err))
		return domain.Session{}
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.Debug("session: dropping unknown session id")
		s.clear(w, r, "unknown")
		return domain.Session{}
	}

	if err == nil && pair.Complete() {
		if user, ok := decodeUser(pair.User); ok {
			return domain.Session{User: user, Token: pair.Token}
		}
	}

	s.logger.Warn("session: discarding corrupt session",
		zap.Bool("has_token", pair.Token != ""),
		zap.Bool("has_user", len(pair.User) > 0),
		zap.Error(err),
	)
	s.clear(w, r, "corrupt")
	return domain.Session{}
}

// Login exchanges credentials for a token + user pair and stores it.
// On failure nothing is written and the error is a *domain.ErrLogin.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Session.Login")
	defer span.End()

	resp, err := s.auth.Login(ctx, domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.countLogin("failure")
		s.logger.Info("session: login rejected", zap.String("email", email), zap.Error(err))
		return domain.Session{}, &domain.ErrLogin{Message: loginMessage(err)}
	}
	if resp == nil || resp.Token == "" || resp.User == nil {
		s.countLogin("failure")
		s.logger.Warn("session: login response without token or user", zap.String("email", email))
		return domain.Session{}, &domain.ErrLogin{Message: LoginFailedMessage}
	}

	raw, err := json.Marshal(resp.User)
	if err != nil {
		s.countLogin("failure")
		return domain.Session{}, &domain.ErrLogin{Message: LoginFailedMessage}
	}
	if err := s.store.Save(w, r, port.SessionPair{Token: resp.Token, User: raw}, s.ttl); err != nil {
		s.countLogin("failure")
		s.logger.Error("session: failed to store session", zap.Error(err))
		return domain.Session{}, &domain.ErrLogin{Message: LoginFailedMessage}
	}

	s.countLogin("success")
	s.logger.Info("session: login",
		zap.Int64("user_id", resp.User.ID),
		zap.String("role", string(resp.User.Role)),
	)
	return domain.Session{User: resp.User, Token: resp.Token}, nil
}

// Logout removes the pair. Calling it without a session is harmless.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	s.clear(w, r, "logout")
}

// Expire removes the pair after the backend rejected the token.
func (s *Service) Expire(w http.ResponseWriter, r *http.Request) {
	s.clear(w, r, "expired")
}

func (s *Service) clear(w http.ResponseWriter, r *http.Request, reason string) {
	if err := s.store.Clear(w, r); err != nil {
		s.logger.Error("session: failed to clear session", zap.String("reason", reason), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.IncrSessionCleared(reason)
	}
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrLogin(outcome)
	}
}

// decodeUser rejects bodies that are not a user object, including "null".
func decodeUser(raw []byte) (*domain.User, bool) {
	var user *domain.User
	if err := json.Unmarshal(raw, &user); err != nil || user == nil {
		return nil, false
	}
	return user, true
}

// loginMessage picks the backend's own message when it sent one.
func loginMessage(err error) string {
	var apiErr *domain.ErrAPI
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var unauthorized *domain.ErrUnauthorized
	if errors.As(err, &unauthorized) && unauthorized.Message != "" {
		return unauthorized.Message
	}
	var forbidden *domain.ErrForbidden
	if errors.As(err, &forbidden) && forbidden.Message != "" {
		return forbidden.Message
	}
	return LoginFailedMessage
}
