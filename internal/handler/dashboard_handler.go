package handler

import (
	"net/http"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.uber.org/zap"
)

// ============================================================
// 2. Dashboard
// ============================================================

type dashboardView struct {
	Variant view.Variant
	Data    *domain.Dashboard
}

func dashboardHandler(svc *service.DashboardService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /")
		defer span.End()

		s := session.FromContext(ctx)
		content := dashboardView{Variant: view.DashboardVariant(s.Role())}
		f := flashFrom(r)

		d, err := svc.Get(ctx)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("dashboard load failed", zap.Error(err))
			f.Error = alertFor(err)
		}
		content.Data = d

		rd.render(w, r, http.StatusOK, "dashboard", "Dashboard", content, f)
	}
}
