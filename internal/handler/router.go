package handler

import (
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/authz"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services are the application services the pages call.
type Services struct {
	Session   *session.Service
	Users     *service.UserService
	Clients   *service.ClientService
	Visits    *service.VisitService
	Lifecycle *service.LifecycleService
	Reports   *service.ReportService
	Dashboard *service.DashboardService
}

// Options are the router settings that come from configuration.
type Options struct {
	MapsAPIKey         string
	GeoTimeout         time.Duration
	CORSAllowedOrigins []string
	HealthChecks       []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	rd := newRenderer(opts.MapsAPIKey, opts.GeoTimeout, logger)
	gate := authz.NewGate(rd.waiting(), metrics, logger)

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(SecurityHeaders)

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.HealthChecks, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/v1/metrics/gate", gateMetricsHandler(metrics))

	// --- Session-aware routes ---
	r.Group(func(r chi.Router) {
		r.Use(svc.Session.Middleware)

		// =============================================
		// 1. Sesión
		// =============================================
		r.Get("/login", loginPageHandler(rd))
		r.Post("/login", loginSubmitHandler(svc.Session, rd, logger))
		r.Post("/logout", logoutHandler(svc.Session))

		r.Route("/api", func(r chi.Router) {
			r.Use(NewCORS(opts.CORSAllowedOrigins))
			r.With(gate.Require(authz.PageSessionAPI)).Get("/session", sessionAPIHandler())
		})

		// =============================================
		// 2. Dashboard
		// =============================================
		r.With(gate.Require(authz.PageDashboard)).Get("/", dashboardHandler(svc.Dashboard, svc.Session, rd, logger))

		// =============================================
		// 3. Usuarios (ADMIN)
		// =============================================
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(gate.Require(authz.PageUsers))
			r.Get("/", usersPageHandler(svc.Users, svc.Session, rd, logger))
			r.Post("/", saveUserHandler(svc.Users, svc.Session, logger))
			r.Post("/{id}", saveUserHandler(svc.Users, svc.Session, logger))
			r.Post("/{id}/delete", deleteUserHandler(svc.Users, svc.Session, logger))
		})

		// =============================================
		// 4. Clientes (ADMIN, SUPERVISOR)
		// =============================================
		r.Route("/clients", func(r chi.Router) {
			r.Use(gate.Require(authz.PageClients))
			r.Get("/", clientsPageHandler(svc.Clients, svc.Session, rd, logger))
			r.Post("/", saveClientHandler(svc.Clients, svc.Session, logger))
			r.Post("/{id}", saveClientHandler(svc.Clients, svc.Session, logger))
			r.Post("/{id}/delete", deleteClientHandler(svc.Clients, svc.Session, logger))
		})

		// =============================================
		// 5. Visitas
		// =============================================
		r.Route("/visits", func(r chi.Router) {
			r.With(gate.Require(authz.PageVisitsList)).Get("/list", visitsListHandler(svc.Visits, svc.Session, rd, logger))

			r.Group(func(r chi.Router) {
				r.Use(gate.Require(authz.PageVisitsNew))
				r.Get("/new", planVisitPageHandler(svc.Visits, svc.Session, rd, logger))
				r.Post("/new", planVisitHandler(svc.Visits, svc.Session, logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(gate.Require(authz.PageVisitActions))
				r.Post("/{id}/checkin", checkInHandler(svc.Lifecycle, svc.Session, logger))
				r.Post("/{id}/checkout", checkOutHandler(svc.Visits, svc.Lifecycle, svc.Session, logger))
			})
		})

		r.Route("/tech/today", func(r chi.Router) {
			r.Use(gate.Require(authz.PageTechToday))
			r.Get("/", techTodayHandler(svc.Visits, svc.Session, rd, logger))
			r.Get("/sheet.pdf", routeSheetHandler(svc.Dashboard, svc.Session, logger))
		})

		// =============================================
		// 6. Reportes (ADMIN, SUPERVISOR)
		// =============================================
		r.Route("/reports", func(r chi.Router) {
			r.Use(gate.Require(authz.PageReports))
			r.Get("/", reportsPageHandler(svc.Reports, svc.Session, rd, logger))
			r.Get("/{visitId}/pdf", reportPDFHandler(svc.Reports, svc.Session, logger))
			r.Get("/export/csv", reportCSVHandler(svc.Reports, svc.Session, logger))
			r.Get("/export/xlsx", reportXLSXHandler(svc.Reports, svc.Session, logger))
		})
	})

	return r
}
