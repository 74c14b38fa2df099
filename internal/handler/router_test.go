package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/handler"
	"github.com/skynet/fieldvisit-bfa/internal/infra/api"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/infra/resilience"
	"github.com/skynet/fieldvisit-bfa/internal/infra/sessionstore"
	"github.com/skynet/fieldvisit-bfa/internal/port"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"

	"go.uber.org/zap"
)

const testSecret = "test-secret"

// --- Mocks ---

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) NotifyVisitFinished(context.Context, domain.VisitNotification) error {
	n.calls.Add(1)
	return nil
}

type testEnv struct {
	router   http.Handler
	store    *sessionstore.CookieStore
	notifier *countingNotifier
}

func newEnv(t *testing.T, backend http.Handler) *testEnv {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	client := api.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		srv.URL,
		resilience.NewCircuitBreaker("test", logger),
		resilience.NewBulkhead(4),
		metrics,
		logger,
	)
	store := sessionstore.NewCookieStore(testSecret, sessionstore.CookieOptions{Path: "/"})
	notifier := &countingNotifier{}

	svc := handler.Services{
		Session:   session.NewService(store, client, session.DefaultTTL, metrics, logger),
		Users:     service.NewUserService(client, logger),
		Clients:   service.NewClientService(client, logger),
		Visits:    service.NewVisitService(client, client, client, logger),
		Lifecycle: service.NewLifecycleService(client, notifier, time.Second, metrics, logger),
		Reports:   service.NewReportService(client, client, logger),
		Dashboard: service.NewDashboardService(client, client, logger),
	}
	opts := handler.Options{MapsAPIKey: "maps-key", GeoTimeout: 10 * time.Second}

	return &testEnv{
		router:   handler.NewRouter(svc, opts, metrics, logger),
		store:    store,
		notifier: notifier,
	}
}

// signIn returns the cookies of a stored session for user.
func (e *testEnv) signIn(t *testing.T, user domain.User) []*http.Cookie {
	t.Helper()
	raw, _ := json.Marshal(user)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := e.store.Save(rec, req, port.SessionPair{Token: "tok", User: raw}, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return rec.Result().Cookies()
}

func (e *testEnv) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

var (
	admin = domain.User{ID: 1, Name: "Ana", Email: "ana@skynet.gt", Role: domain.RoleAdmin, IsActive: true}
	tech  = domain.User{ID: 7, Name: "Carlos", Email: "carlos@skynet.gt", Role: domain.RoleTechnician, IsActive: true}
)

// --- Operational endpoints ---

func TestHealthz(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestGateMetricsSnapshot(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())
	env.do(httptest.NewRequest(http.MethodGet, "/clients", nil), nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/metrics/gate", nil), nil)

	var snap observability.GateSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Decisions["clients"]["redirect_login"] != 1 {
		t.Errorf("expected one redirect_login for clients, got %+v", snap.Decisions["clients"])
	}
}

// --- Gate ---

func TestAnonymousRedirectsToLogin(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil), nil)

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected 302 to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestTechnicianOnAdminPageRedirectsToRoot(t *testing.T) {
	var usersCalled atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		usersCalled.Store(true)
		w.Write([]byte(`[]`))
	})
	env := newEnv(t, mux)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/users", nil), env.signIn(t, tech))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("expected 302 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if usersCalled.Load() {
		t.Error("expected the protected handler not to run")
	}
	if strings.Contains(rec.Body.String(), "Usuarios") {
		t.Error("expected no protected content in the response")
	}
}

func TestSessionAPI(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	anon := env.do(httptest.NewRequest(http.MethodGet, "/api/session", nil), nil)
	if anon.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous, got %d", anon.Code)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/session", nil), env.signIn(t, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Authenticated bool            `json:"authenticated"`
		Capabilities  map[string]bool `json:"capabilities"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if !body.Authenticated || !body.Capabilities["users"] || body.Capabilities["tech_today"] {
		t.Errorf("unexpected session body %+v", body)
	}
}

// --- Login ---

func TestLoginSuccessSetsPairAndRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.LoginResponse{Token: "tok-1", User: &admin})
	})
	env := newEnv(t, mux)

	rec := env.do(postForm("/login", url.Values{"email": {"ana@skynet.gt"}, "password": {"x"}}), nil)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge > 0 {
			names[c.Name] = true
		}
	}
	if !names[sessionstore.TokenCookie] || !names[sessionstore.UserCookie] {
		t.Errorf("expected token and user cookies, got %v", names)
	}
}

func TestLoginFailureShowsMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Credenciales inválidas"}`))
	})
	env := newEnv(t, mux)

	rec := env.do(postForm("/login", url.Values{"email": {"ana@skynet.gt"}, "password": {"bad"}}), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the login page, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Credenciales inválidas") {
		t.Error("expected the backend message on the page")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookies written on failure")
	}
}

func TestLogoutClearsPair(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	rec := env.do(postForm("/logout", nil), env.signIn(t, admin))

	if rec.Header().Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %q", rec.Header().Get("Location"))
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("expected cookie %s expired", c.Name)
		}
	}
}

// --- Pages ---

func TestDashboardRendersRoleVariant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected the session token, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"userCount":12,"clientCount":30,"pendingVisitsGlobal":4}`))
	})
	env := newEnv(t, mux)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil), env.signIn(t, admin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Visitas pendientes") {
		t.Error("expected the admin dashboard")
	}
}

func TestBackendRejectsTokenEndsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	env := newEnv(t, mux)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/clients", nil), env.signIn(t, admin))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected 302 to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestDashboardForbiddenShowsAlertInsteadOfRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"usuario inactivo"}`))
	})
	env := newEnv(t, mux)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil), env.signIn(t, tech))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (Location %q)", rec.Code, rec.Header().Get("Location"))
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("expected no redirect, got Location %q", loc)
	}
	if !strings.Contains(rec.Body.String(), "usuario inactivo") {
		t.Error("expected the backend reason in the alert")
	}
}

func TestForbiddenOnOtherPageRedirectsToRoot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	env := newEnv(t, mux)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/clients", nil), env.signIn(t, admin))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("expected 302 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPageLoadFailureShowsAlert(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Filtro inválido"}`))
	})
	env := newEnv(t, mux)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/clients", nil), env.signIn(t, admin))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Filtro inválido") {
		t.Errorf("expected the page with an alert, got %d", rec.Code)
	}
}

// --- Lifecycle ---

func TestCheckOutWithoutClientEmail(t *testing.T) {
	var persisted atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/visits", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Visit{{ID: 42, Status: domain.StatusInProgress, ClientName: "Ferretería Central"}})
	})
	mux.HandleFunc("/visits/42/checkout", func(w http.ResponseWriter, r *http.Request) {
		var p domain.CheckoutPayload
		json.NewDecoder(r.Body).Decode(&p)
		if p.Summary != "Cambio de router" || p.MinutesSpent != 45 || p.Lat != 14.6 {
			t.Errorf("unexpected payload %+v", p)
		}
		persisted.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	env := newEnv(t, mux)

	form := url.Values{
		"summary":       {"Cambio de router"},
		"minutes_spent": {"45"},
		"lat":           {"14.6"},
		"lng":           {"-90.5"},
	}
	rec := env.do(postForm("/visits/42/checkout", form), env.signIn(t, tech))

	if persisted.Load() != 1 {
		t.Fatalf("expected the report persisted once, got %d", persisted.Load())
	}
	if env.notifier.calls.Load() != 0 {
		t.Error("expected no notification")
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if loc.Path != "/tech/today" || !strings.Contains(loc.Query().Get("msg"), "No se envió notificación") {
		t.Errorf("unexpected redirect %q", rec.Header().Get("Location"))
	}
}

func TestCheckInWithoutLocation(t *testing.T) {
	var called atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/visits/42/checkin", func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	})
	env := newEnv(t, mux)

	rec := env.do(postForm("/visits/42/checkin", url.Values{"geo_error": {"unsupported"}}), env.signIn(t, tech))

	if called.Load() {
		t.Error("expected no backend call without a location")
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	if !strings.Contains(loc.Query().Get("err"), "no está soportada") {
		t.Errorf("unexpected redirect %q", rec.Header().Get("Location"))
	}
}

func TestAdminCannotCheckIn(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	rec := env.do(postForm("/visits/42/checkin", url.Values{}), env.signIn(t, admin))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("expected 302 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCheckInWithoutLocationAsJSON(t *testing.T) {
	env := newEnv(t, http.NotFoundHandler())

	req := postForm("/visits/42/checkin", url.Values{"geo_error": {"denied"}})
	req.Header.Set("Accept", "application/json")
	rec := env.do(req, env.signIn(t, tech))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON body, got %q", ct)
	}
}
