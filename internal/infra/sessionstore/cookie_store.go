package sessionstore

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/port"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "fieldvisit-bfa"

// userClaims wraps the serialized user so the browser cannot edit its role.
type userClaims struct {
	User string `json:"usr"`
	jwt.RegisteredClaims
}

// CookieStore keeps the pair in two cookies: the backend token as-is and
// the user as an HS256-signed JWT.
type CookieStore struct {
	secret []byte
	opts   CookieOptions
}

// NewCookieStore creates a cookie-backed store signing with secret.
func NewCookieStore(secret string, opts CookieOptions) *CookieStore {
	return &CookieStore{secret: []byte(secret), opts: opts}
}

// Load returns whatever slots are present. A user cookie that fails
// verification is reported as an error with the token slot still filled,
// so the caller clears both.
func (s *CookieStore) Load(r *http.Request) (port.SessionPair, error) {
	pair := port.SessionPair{Token: cookieValue(r, TokenCookie)}

	raw := cookieValue(r, UserCookie)
	if raw == "" {
		return pair, nil
	}

	user, err := s.verify(raw)
	if err != nil {
		return pair, fmt.Errorf("user cookie: %w", err)
	}
	pair.User = []byte(user)
	return pair, nil
}

// Save writes both cookies with the same expiry.
func (s *CookieStore) Save(w http.ResponseWriter, _ *http.Request, pair port.SessionPair, ttl time.Duration) error {
	if !pair.Complete() {
		return errors.New("session pair must carry both token and user")
	}

	signed, err := s.sign(string(pair.User), ttl)
	if err != nil {
		return fmt.Errorf("sign user cookie: %w", err)
	}
	s.opts.set(w, TokenCookie, pair.Token, ttl)
	s.opts.set(w, UserCookie, signed, ttl)
	return nil
}

// Clear expires both cookies.
func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	s.opts.expire(w, TokenCookie)
	s.opts.expire(w, UserCookie)
	return nil
}

func (s *CookieStore) sign(user string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := userClaims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *CookieStore) verify(raw string) (string, error) {
	var claims userClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	return claims.User, nil
}
