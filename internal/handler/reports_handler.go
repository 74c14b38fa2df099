package handler

import (
	"html/template"
	"net/http"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/service"
	"github.com/skynet/fieldvisit-bfa/internal/session"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 6. Reportes
// ============================================================

const reportsPath = "/reports"

type reportsView struct {
	Bar     view.FilterBarView
	Filters domain.Filters
	Reports []domain.Report
	service.Roster
	// CSVURL and XLSXURL export the active filter set.
	CSVURL  template.URL
	XLSXURL template.URL
}

func reportsPageHandler(svc *service.ReportService, sessions *session.Service, rd *renderer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports")
		defer span.End()

		role := session.FromContext(ctx).Role()
		filters := service.ReportFilters(r.URL.Query())
		q := filters.Query()
		if filters.Status == "" {
			q.Set("status", "")
		}
		content := reportsView{
			Bar:     view.FilterBar(role),
			Filters: filters,
			CSVURL:  template.URL("/reports/export/csv?" + q.Encode()),
			XLSXURL: template.URL("/reports/export/xlsx?" + q.Encode()),
		}

		f := flashFrom(r)
		page, err := svc.Page(ctx, role, filters)
		if err != nil {
			if authFailure(w, r, sessions, err) {
				return
			}
			logger.Error("reports load failed", zap.Error(err))
			f.Error = alertFor(err)
		} else {
			content.Reports = page.Reports
			content.Roster = page.Roster
		}

		rd.render(w, r, http.StatusOK, "reports", "Reportes", content, f)
	}
}

func reportPDFHandler(svc *service.ReportService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports/{visitId}/pdf")
		defer span.End()

		id, ok := pathID(r, "visitId")
		if !ok {
			redirectWith(w, r, reportsPath, "err", "Visita inválida.")
			return
		}
		span.SetAttributes(attribute.Int64("visit.id", id))

		d, err := svc.PDF(ctx, id)
		if err != nil {
			actionFailed(w, r, sessions, err, reportsPath, logger)
			return
		}
		writeDownload(w, d)
	}
}

func reportCSVHandler(svc *service.ReportService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports/export/csv")
		defer span.End()

		d, err := svc.CSV(ctx, service.ReportFilters(r.URL.Query()))
		if err != nil {
			actionFailed(w, r, sessions, err, reportsPath, logger)
			return
		}
		writeDownload(w, d)
	}
}

func reportXLSXHandler(svc *service.ReportService, sessions *session.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /reports/export/xlsx")
		defer span.End()

		d, err := svc.XLSX(ctx, service.ReportFilters(r.URL.Query()))
		if err != nil {
			actionFailed(w, r, sessions, err, reportsPath, logger)
			return
		}
		writeDownload(w, d)
	}
}
