package sessionstore_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/cache"
	"github.com/skynet/fieldvisit-bfa/internal/infra/sessionstore"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var samplePair = port.SessionPair{
	Token: "backend-token",
	User:  []byte(`{"id":3,"name":"Luis","email":"luis@skynet.gt","role":"TECHNICIAN","supervisor_id":2,"is_active":true}`),
}

// carry copies the Set-Cookie headers of rec onto a new request, dropping
// cookies the response expired.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

func expired(rec *httptest.ResponseRecorder) map[string]bool {
	out := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			out[c.Name] = true
		}
	}
	return out
}

func TestCookieStore_SaveLoadRoundTrip(t *testing.T) {
	s := sessionstore.NewCookieStore("secret", sessionstore.CookieOptions{})

	rec := httptest.NewRecorder()
	if err := s.Save(rec, httptest.NewRequest(http.MethodPost, "/login", nil), samplePair, 8*time.Hour); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
			t.Errorf("cookie %s: expected HttpOnly + SameSite=Lax", c.Name)
		}
		if c.MaxAge != int((8 * time.Hour).Seconds()) {
			t.Errorf("cookie %s: expected 8h max-age, got %d", c.Name, c.MaxAge)
		}
	}

	pair, err := s.Load(carry(rec))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.Token != samplePair.Token || string(pair.User) != string(samplePair.User) {
		t.Errorf("unexpected pair: %+v", pair)
	}
}

func TestCookieStore_ForgedUserCookieRejected(t *testing.T) {
	s := sessionstore.NewCookieStore("secret", sessionstore.CookieOptions{})
	other := sessionstore.NewCookieStore("other-secret", sessionstore.CookieOptions{})

	rec := httptest.NewRecorder()
	_ = other.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), samplePair, time.Hour)

	_, err := s.Load(carry(rec))
	if err == nil {
		t.Fatal("expected error for a user cookie signed with another key")
	}
}

func TestCookieStore_PlainJSONUserCookieRejected(t *testing.T) {
	s := sessionstore.NewCookieStore("secret", sessionstore.CookieOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionstore.TokenCookie, Value: "t"})
	req.AddCookie(&http.Cookie{Name: sessionstore.UserCookie, Value: `{"role":"ADMIN"}`})

	if _, err := s.Load(req); err == nil {
		t.Fatal("expected error for an unsigned user cookie")
	}
}

func TestCookieStore_LoneTokenReported(t *testing.T) {
	s := sessionstore.NewCookieStore("secret", sessionstore.CookieOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionstore.TokenCookie, Value: "t"})

	pair, err := s.Load(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.Complete() || pair.Empty() {
		t.Errorf("expected a half pair, got %+v", pair)
	}
}

func TestCookieStore_ClearExpiresBoth(t *testing.T) {
	s := sessionstore.NewCookieStore("secret", sessionstore.CookieOptions{})

	rec := httptest.NewRecorder()
	_ = s.Clear(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	got := expired(rec)
	if !got[sessionstore.TokenCookie] || !got[sessionstore.UserCookie] {
		t.Errorf("expected both cookies expired, got %v", got)
	}
}

func TestCookieStore_SaveRejectsHalfPair(t *testing.T) {
	s := sessionstore.NewCookieStore("secret", sessionstore.CookieOptions{})

	rec := httptest.NewRecorder()
	err := s.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), port.SessionPair{Token: "t"}, time.Hour)
	if err == nil {
		t.Fatal("expected error saving a pair without user")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookie written")
	}
}

func TestMemoryStore_SaveLoadClear(t *testing.T) {
	c := cache.New[port.SessionPair](time.Hour)
	defer c.Close()
	s := sessionstore.NewMemoryStore(c, sessionstore.CookieOptions{})

	rec := httptest.NewRecorder()
	if err := s.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), samplePair, time.Hour); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	req := carry(rec)
	pair, err := s.Load(req)
	if err != nil || !pair.Complete() {
		t.Fatalf("expected complete pair, got %+v (%v)", pair, err)
	}

	clearRec := httptest.NewRecorder()
	_ = s.Clear(clearRec, req)
	if !expired(clearRec)[sessionstore.SIDCookie] {
		t.Error("expected sid cookie expired")
	}

	pair, _ = s.Load(req)
	if !pair.Empty() {
		t.Errorf("expected empty pair after clear, got %+v", pair)
	}
}

func TestMemoryStore_SaveRotatesSID(t *testing.T) {
	c := cache.New[port.SessionPair](time.Hour)
	defer c.Close()
	s := sessionstore.NewMemoryStore(c, sessionstore.CookieOptions{})

	first := httptest.NewRecorder()
	_ = s.Save(first, httptest.NewRequest(http.MethodPost, "/", nil), samplePair, time.Hour)
	oldReq := carry(first)

	second := httptest.NewRecorder()
	_ = s.Save(second, oldReq, samplePair, time.Hour)

	if pair, _ := s.Load(oldReq); !pair.Empty() {
		t.Error("expected the previous sid to be dropped")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", c.Len())
	}
}

func TestRedisStore_NoSIDSkipsRedis(t *testing.T) {
	// Unreachable address: any command would fail.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := sessionstore.NewRedisStore(client, sessionstore.CookieOptions{}, zap.NewNop())

	pair, err := s.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !pair.Empty() {
		t.Errorf("expected empty pair, got %+v", pair)
	}

	rec := httptest.NewRecorder()
	if err := s.Clear(rec, httptest.NewRequest(http.MethodPost, "/logout", nil)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !expired(rec)[sessionstore.SIDCookie] {
		t.Error("expected sid cookie expired")
	}
}

func TestRedisStore_MalformedSID(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := sessionstore.NewRedisStore(client, sessionstore.CookieOptions{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionstore.SIDCookie, Value: "not-a-uuid"})

	if _, err := s.Load(req); err == nil {
		t.Fatal("expected error for malformed sid")
	}
}

func TestMemoryStore_UnknownSIDReported(t *testing.T) {
	c := cache.New[port.SessionPair](time.Hour)
	defer c.Close()
	s := sessionstore.NewMemoryStore(c, sessionstore.CookieOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionstore.SIDCookie, Value: uuid.NewString()})

	if _, err := s.Load(req); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStore_UnreachableIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer client.Close()
	s := sessionstore.NewRedisStore(client, sessionstore.CookieOptions{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionstore.SIDCookie, Value: uuid.NewString()})

	_, err := s.Load(req)
	var unavailable *domain.ErrStoreUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if unavailable.Store != "redis" {
		t.Errorf("expected store redis, got %q", unavailable.Store)
	}
}
