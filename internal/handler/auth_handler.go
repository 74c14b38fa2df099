package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/authz"
	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/session"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.uber.org/zap"
)

// ============================================================
// 1. Sesión
// ============================================================

type loginView struct {
	Email string
}

func loginPageHandler(rd *renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		rd.render(w, r, http.StatusOK, "login", "Iniciar sesión", loginView{}, flashFrom(r))
	}
}

func loginSubmitHandler(sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")

		if _, err := sessions.Login(ctx, w, r, email, password); err != nil {
			msg := session.LoginFailedMessage
			var loginErr *domain.ErrLogin
			if errors.As(err, &loginErr) {
				msg = loginErr.Message
			}
			rd.render(w, r, http.StatusOK, "login", "Iniciar sesión", loginView{Email: email}, flash{Error: msg})
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func logoutHandler(sessions *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Logout(w, r)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

type sessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *domain.User        `json:"user"`
	RoleLabel     string              `json:"roleLabel"`
	Nav           []view.NavItem      `json:"nav"`
	Capabilities  map[authz.Page]bool `json:"capabilities"`
}

func sessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		caps := make(map[authz.Page]bool)
		for _, c := range authz.Capabilities() {
			caps[c.Page] = authz.Allows(c.Page, s.Role())
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			Authenticated: s.IsAuthenticated(),
			User:          s.User,
			RoleLabel:     s.Role().Label(),
			Nav:           view.Nav(s.Role()),
			Capabilities:  caps,
		})
	}
}

// ============================================================
// Backend failures on pages
// ============================================================

// authFailure handles a backend 401/403 the way the gate would: a rejected
// token ends the session and goes to /login, a refused action goes to /.
// A 403 on / itself is left to the caller, which shows it as an alert.
func authFailure(w http.ResponseWriter, r *http.Request, sessions *session.Service, err error) bool {
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden
	switch {
	case errors.As(err, &unauthorized):
		sessions.Expire(w, r)
		http.Redirect(w, r, "/login", http.StatusFound)
		return true
	case errors.As(err, &forbidden) && r.URL.Path != "/":
		http.Redirect(w, r, "/", http.StatusFound)
		return true
	}
	return false
}

// actionFailed finishes a failed form post: auth errors redirect through
// the gate paths, anything else goes back with an alert. Script clients
// get the error as JSON instead.
func actionFailed(w http.ResponseWriter, r *http.Request, sessions *session.Service, err error, back string, logger *zap.Logger) {
	if authz.WantsJSON(r) {
		var unauthorized *domain.ErrUnauthorized
		if errors.As(err, &unauthorized) {
			sessions.Expire(w, r)
		}
		handleServiceError(w, err, logger)
		return
	}
	if authFailure(w, r, sessions, err) {
		return
	}
	logger.Warn("action failed", zap.String("path", r.URL.Path), zap.Error(err))
	redirectWith(w, r, back, "err", alertFor(err))
}
