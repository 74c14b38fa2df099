package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.uber.org/zap"
)

// ============================================================
// 3. Usuarios
// ============================================================

const usersPath = "/admin/users"

type usersView struct {
	Users       []domain.User
	Supervisors []domain.User
	Roles       []domain.Role
	Form        view.UserFormView
	Role        domain.Role

	// Editing is the user loaded into the form, nil when creating.
	Editing            *domain.User
	// SelectedSupervisor is the preselected supervisor id, 0 for none.
	SelectedSupervisor int64
}

func usersPageHandler(svc *service.UserService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /admin/users")
		defer span.End()

		f := flashFrom(r)
		users, err := svc.List(ctx)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("users load failed", zap.Error(err))
			f.Error = alertFor(err)
		}

		content := usersView{
			Users:       users,
			Supervisors: svc.Supervisors(users),
			Roles:       domain.Roles,
		}

		mode := view.ModeCreate
		content.Role = domain.Role(r.URL.Query().Get("role"))
		if id, err := strconv.ParseInt(r.URL.Query().Get("edit"), 10, 64); err == nil {
			for i := range users {
				if users[i].ID == id {
					content.Editing = &users[i]
					mode = view.ModeEdit
					if content.Role == "" {
						content.Role = users[i].Role
					}
					if users[i].SupervisorID != nil {
						content.SelectedSupervisor = *users[i].SupervisorID
					}
				}
			}
		}
		if !content.Role.Valid() {
			content.Role = domain.RoleTechnician
		}
		content.Form = view.UserForm(mode, content.Role)

		rd.render(w, r, http.StatusOK, "users", "Usuarios", content, f)
	}
}

func saveUserHandler(svc *service.UserService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/users")
		defer span.End()

		var id *int64
		if v, ok := pathID(r, "id"); ok {
			id = &v
		}

		in := domain.UserInput{
			Name:         r.PostFormValue("name"),
			Email:        r.PostFormValue("email"),
			Password:     r.PostFormValue("password"),
			Role:         domain.Role(strings.TrimSpace(r.PostFormValue("role"))),
			SupervisorID: formID(r, "supervisor_id"),
			IsActive:     id == nil || r.PostFormValue("is_active") != "",
		}

		if err := svc.Save(ctx, id, in); err != nil {
			back := usersPath
			if id != nil {
				back += "?edit=" + strconv.FormatInt(*id, 10)
			}
			actionFailed(w, r, sessions, err, back, logger)
			return
		}

		msg := "Usuario creado."
		if id != nil {
			msg = "Usuario actualizado."
		}
		redirectWith(w, r, usersPath, "msg", msg)
	}
}

func deleteUserHandler(svc *service.UserService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/users/{id}/delete")
		defer span.End()

		id, ok := pathID(r, "id")
		if !ok {
			redirectWith(w, r, usersPath, "err", "Usuario inválido.")
			return
		}
		if err := svc.Delete(ctx, id); err != nil {
			actionFailed(w, r, sessions, err, usersPath, logger)
			return
		}
		redirectWith(w, r, usersPath, "msg", "Usuario eliminado.")
	}
}
