package handler

import (
	"net/http"
	"strconv"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"

	"go.uber.org/zap"
)

// ============================================================
// 4. Clientes
// ============================================================

const clientsPath = "/clients"

type clientsView struct {
	Clients []domain.Client
	// Editing is the client loaded into the form, nil when creating.
	Editing *domain.Client
}

func clientsPageHandler(svc *service.ClientService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /clients")
		defer span.End()

		f := flashFrom(r)
		clients, err := svc.List(ctx)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("clients load failed", zap.Error(err))
			f.Error = alertFor(err)
		}

		content := clientsView{Clients: clients}
		if id, err := strconv.ParseInt(r.URL.Query().Get("edit"), 10, 64); err == nil {
			for i := range clients {
				if clients[i].ID == id {
					content.Editing = &clients[i]
				}
			}
		}

		rd.render(w, r, http.StatusOK, "clients", "Clientes", content, f)
	}
}

func saveClientHandler(svc *service.ClientService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /clients")
		defer span.End()

		var id *int64
		if v, ok := pathID(r, "id"); ok {
			id = &v
		}

		c := domain.Client{
			Name:        r.PostFormValue("name"),
			Email:       r.PostFormValue("email"),
			Address:     r.PostFormValue("address"),
			ContactName: r.PostFormValue("contact_name"),
			Phone:       r.PostFormValue("phone"),
			Lat:         formFloat(r, "lat"),
			Lng:         formFloat(r, "lng"),
		}

		if err := svc.Save(ctx, id, c); err != nil {
			back := clientsPath
			if id != nil {
				back += "?edit=" + strconv.FormatInt(*id, 10)
			}
			actionFailed(w, r, sessions, err, back, logger)
			return
		}

		msg := "Cliente creado."
		if id != nil {
			msg = "Cliente actualizado."
		}
		redirectWith(w, r, clientsPath, "msg", msg)
	}
}

func deleteClientHandler(svc *service.ClientService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /clients/{id}/delete")
		defer span.End()

		id, ok := pathID(r, "id")
		if !ok {
			redirectWith(w, r, clientsPath, "err", "Cliente inválido.")
			return
		}
		if err := svc.Delete(ctx, id); err != nil {
			actionFailed(w, r, sessions, err, clientsPath, logger)
			return
		}
		redirectWith(w, r, clientsPath, "msg", "Cliente eliminado.")
	}
}
