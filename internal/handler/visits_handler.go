package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/geo"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 5. Visitas
// ============================================================

const (
	visitsListPath = "/visits/list"
	visitsNewPath  = "/visits/new"
	techTodayPath  = "/tech/today"
)

type visitsListView struct {
	Layout  view.Layout
	Bar     view.FilterBarView
	Filters domain.Filters
	Visits  []domain.Visit
	service.Roster
	Return string
}

func visitsListHandler(svc *service.VisitService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /visits/list")
		defer span.End()

		role := session.FromContext(ctx).Role()
		filters := domain.FiltersFromQuery(r.URL.Query())
		content := visitsListView{
			Layout:  view.VisitLayout(role),
			Bar:     view.FilterBar(role),
			Filters: filters,
			Return:  visitsListPath,
		}

		f := flashFrom(r)
		page, err := svc.Page(ctx, role, filters)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("visits load failed", zap.Error(err))
			f.Error = alertFor(err)
		} else {
			content.Visits = page.Visits
			content.Roster = page.Roster
		}

		rd.render(w, r, http.StatusOK, "visits_list", "Visitas", content, f)
	}
}

type planVisitView struct {
	Form view.VisitFormView
	service.PlanningData
}

func planVisitPageHandler(svc *service.VisitService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /visits/new")
		defer span.End()

		content := planVisitView{Form: view.VisitForm(session.FromContext(ctx).Role())}
		f := flashFrom(r)

		data, err := svc.PlanningData(ctx)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("planning data load failed", zap.Error(err))
			f.Error = alertFor(err)
		} else {
			content.PlanningData = *data
		}

		rd.render(w, r, http.StatusOK, "visit_new", "Planificar Visita", content, f)
	}
}

func planVisitHandler(svc *service.VisitService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /visits/new")
		defer span.End()

		in := domain.VisitInput{
			SupervisorID: formID(r, "supervisor_id"),
			PlannedAt:    r.PostFormValue("planned_at"),
		}
		if id := formID(r, "client_id"); id != nil {
			in.ClientID = *id
		}
		if id := formID(r, "technician_id"); id != nil {
			in.TechnicianID = *id
		}

		if err := svc.Plan(ctx, session.FromContext(ctx).Role(), in); err != nil {
			actionFailed(w, r, sessions, err, visitsNewPath, logger)
			return
		}
		redirectWith(w, r, visitsListPath, "msg", "Visita planificada.")
	}
}

// returnPath sends lifecycle actions back to the page they came from.
func returnPath(r *http.Request) string {
	if r.PostFormValue("return") == visitsListPath {
		return visitsListPath
	}
	return techTodayPath
}

func checkInHandler(svc *service.LifecycleService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /visits/{id}/checkin")
		defer span.End()

		back := returnPath(r)
		id, ok := pathID(r, "id")
		if !ok {
			redirectWith(w, r, back, "err", "Visita inválida.")
			return
		}
		span.SetAttributes(attribute.Int64("visit.id", id))

		if err := svc.CheckIn(ctx, id, geo.FromRequest(r)); err != nil {
			actionFailed(w, r, sessions, err, back, logger)
			return
		}
		redirectWith(w, r, back, "msg", "Check-in realizado.")
	}
}

func checkOutHandler(visits *service.VisitService, svc *service.LifecycleService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /visits/{id}/checkout")
		defer span.End()

		back := returnPath(r)
		id, ok := pathID(r, "id")
		if !ok {
			redirectWith(w, r, back, "err", "Visita inválida.")
			return
		}
		span.SetAttributes(attribute.Int64("visit.id", id))

		visit, err := visits.Find(ctx, id)
		if err != nil {
			actionFailed(w, r, sessions, err, back, logger)
			return
		}

		minutes, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("minutes_spent")))
		if err != nil {
			redirectWith(w, r, back, "err", "Indica los minutos invertidos.")
			return
		}
		report := domain.CheckoutInput{
			Summary:      r.PostFormValue("summary"),
			MinutesSpent: minutes,
		}

		technician := domain.User{}
		if u := session.FromContext(ctx).User; u != nil {
			technician = *u
		}

		result, err := svc.CheckOut(ctx, *visit, report, technician, geo.FromRequest(r))
		var notifyErr *domain.ErrNotification
		if err != nil && !errors.As(err, &notifyErr) {
			actionFailed(w, r, sessions, err, back, logger)
			return
		}
		redirectWith(w, r, back, "msg", result.Message())
	}
}

type techTodayView struct {
	Visits []domain.Visit
	Return string
}

func techTodayHandler(svc *service.VisitService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /tech/today")
		defer span.End()

		content := techTodayView{Return: techTodayPath}
		f := flashFrom(r)

		visits, err := svc.Today(ctx)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("today visits load failed", zap.Error(err))
			f.Error = alertFor(err)
		}
		content.Visits = visits

		rd.render(w, r, http.StatusOK, "tech_today", "Mis Visitas de Hoy", content, f)
	}
}

func routeSheetHandler(svc *service.DashboardService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /tech/today/sheet.pdf")
		defer span.End()

		technician := domain.User{}
		if u := session.FromContext(ctx).User; u != nil {
			technician = *u
		}

		d, err := svc.RouteSheet(ctx, technician)
		if err != nil {
			actionFailed(w, r, sessions, err, techTodayPath, logger)
			return
		}
		writeDownload(w, d)
	}
}
