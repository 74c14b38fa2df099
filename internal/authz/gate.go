package authz

import (
	"net/http"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/session"

	"go.uber.org/zap"
)

// Decision is the outcome of the gate for one request.
type Decision int

const (
	Wait Decision = iota
	RedirectLogin
	RedirectRoot
	Render
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect_login"
	case RedirectRoot:
		return "redirect_root"
	case Render:
		return "render"
	}
	return "unknown"
}

// Decide is the gate: wait while the session is unsettled, send anonymous
// users to /login, send users without an allowed role to /, render
// otherwise. An empty role never passes a non-empty allow-list.
func Decide(s domain.Session, allow []domain.Role) Decision {
	switch {
	case s.Loading:
		return Wait
	case s.User == nil:
		return RedirectLogin
	case !roleAllowed(s.User.Role, allow):
		return RedirectRoot
	}
	return Render
}

// Gate turns decisions into HTTP responses.
type Gate struct {
	waiting http.Handler
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGate creates the gate. waiting renders the neutral page shown while
// the session is unsettled; metrics may be nil.
func NewGate(waiting http.Handler, metrics *observability.Metrics, logger *zap.Logger) *Gate {
	if waiting == nil {
		waiting = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte("Cargando..."))
		})
	}
	return &Gate{waiting: waiting, metrics: metrics, logger: logger}
}

// Require protects next with page's allow-list. The protected handler only
// runs on Render, so nothing of it is written for anyone else.
func (g *Gate) Require(page Page) func(http.Handler) http.Handler {
	c, ok := Lookup(page)
	if !ok {
		panic("authz: unknown page " + string(page))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			d := Decide(s, c.Allow)
			if g.metrics != nil {
				g.metrics.IncrGateDecision(string(page), d.String())
			}

			switch d {
			case Render:
				next.ServeHTTP(w, r)
			case Wait:
				w.Header().Set("Refresh", "1")
				w.Header().Set("Cache-Control", "no-store")
				g.waiting.ServeHTTP(w, r)
			case RedirectLogin:
				g.logger.Debug("gate: anonymous request", zap.String("page", string(page)), zap.String("path", r.URL.Path))
				if WantsJSON(r) {
					writeDenied(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				http.Redirect(w, r, "/login", http.StatusFound)
			case RedirectRoot:
				g.logger.Warn("gate: role not allowed",
					zap.String("page", string(page)),
					zap.String("path", r.URL.Path),
					zap.String("role", string(s.Role())),
				)
				if WantsJSON(r) {
					writeDenied(w, http.StatusForbidden, "forbidden")
					return
				}
				http.Redirect(w, r, "/", http.StatusFound)
			}
		})
	}
}

// WantsJSON is true for script clients: /api paths or an Accept header that
// asks for JSON and not HTML.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

func writeDenied(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
