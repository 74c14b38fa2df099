package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"github.com/jung-kurt/gofpdf/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService serves the role dashboard and the technician route sheet.
type DashboardService struct {
	dashboard port.DashboardAPI
	visits    port.VisitAPI
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(dashboard port.DashboardAPI, visits port.VisitAPI, logger *zap.Logger) *DashboardService {
	return &DashboardService{dashboard: dashboard, visits: visits, logger: logger, now: time.Now}
}

// Get returns the caller's dashboard payload.
func (s *DashboardService) Get(ctx context.Context) (*domain.Dashboard, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Get")
	defer span.End()

	d, err := s.dashboard.Dashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}

// RouteSheet renders the technician's visits of the day as a printable PDF.
func (s *DashboardService) RouteSheet(ctx context.Context, technician domain.User) (*domain.Download, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.RouteSheet")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", technician.ID))

	visits, err := s.visits.TodayVisits(ctx)
	if err != nil {
		return nil, fmt.Errorf("today visits: %w", err)
	}

	today := s.now()
	body, err := renderRouteSheet(technician, visits, today)
	if err != nil {
		return nil, fmt.Errorf("render route sheet: %w", err)
	}
	s.logger.Info("route sheet generated",
		zap.Int64("user_id", technician.ID),
		zap.Int("visits", len(visits)),
	)

	return &domain.Download{
		Filename:    fmt.Sprintf("hoja-de-ruta-%s.pdf", today.Format("2006-01-02")),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

func renderRouteSheet(technician domain.User, visits []domain.Visit, day time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr("SkyNet - Hoja de Ruta"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, tr(fmt.Sprintf("Técnico: %s", technician.Name)), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Fecha: %s", day.Format("02/01/2006")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(15, 7, "Hora", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Cliente", "1", 0, "C", true, 0, "")
	pdf.CellFormat(95, 7, tr("Dirección"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Estado", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	if len(visits) == 0 {
		pdf.CellFormat(190, 7, "No hay visitas asignadas para hoy.", "1", 1, "C", false, 0, "")
	}
	for _, v := range visits {
		pdf.CellFormat(15, 6, v.PlannedAt.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, tr(truncate(v.ClientName, 28)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 6, tr(truncate(v.Address, 55)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, tr(v.Status.Label()), "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
