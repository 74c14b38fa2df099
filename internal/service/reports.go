package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var reportTracer = otel.Tracer("service/reports")

const (
	csvFilename  = "reporte_general_skynet.csv"
	xlsxFilename = "reporte_general_skynet.xlsx"
	xlsxSheet    = "Reportes"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var xlsxHeader = []any{"Cliente", "Técnico", "Supervisor", "Fecha Finalización", "Minutos", "Resumen"}

// ReportFilters reads the filter bar for the reports page. Without an
// explicit status the page shows finished visits; an explicit empty
// status ("Todos") lifts the default.
func ReportFilters(q url.Values) domain.Filters {
	f := domain.FiltersFromQuery(q)
	if !q.Has("status") {
		f.Status = string(domain.StatusFinished)
	}
	return f
}

// ReportPage is what the reports page renders.
type ReportPage struct {
	Reports []domain.Report
	Roster
}

// ReportService reads and exports visit reports.
type ReportService struct {
	reports port.ReportAPI
	users   port.UserAPI
	logger  *zap.Logger
}

// NewReportService creates the report service.
func NewReportService(reports port.ReportAPI, users port.UserAPI, logger *zap.Logger) *ReportService {
	return &ReportService{reports: reports, users: users, logger: logger}
}

// Page fetches the filtered reports and the roster in parallel.
func (s *ReportService) Page(ctx context.Context, role domain.Role, f domain.Filters) (*ReportPage, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Page")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(role)))

	var (
		reports []domain.Report
		users   []domain.User
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = s.reports.ListReports(gCtx, f)
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		return nil
	})
	if view.NeedsRoster(role) {
		g.Go(func() error {
			var err error
			users, err = s.users.ListUsers(gCtx)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ReportPage{Reports: reports, Roster: rosterOf(users)}, nil
}

// PDF downloads the backend-generated report of one visit.
func (s *ReportService) PDF(ctx context.Context, visitID int64) (*domain.Download, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.PDF")
	defer span.End()
	span.SetAttributes(attribute.Int64("visit.id", visitID))

	d, err := s.reports.ReportPDF(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("report pdf %d: %w", visitID, err)
	}
	d.Filename = fmt.Sprintf("reporte-visita-%d.pdf", visitID)
	if d.ContentType == "" {
		d.ContentType = "application/pdf"
	}
	return d, nil
}

// CSV downloads the backend-generated export of the filtered reports.
func (s *ReportService) CSV(ctx context.Context, f domain.Filters) (*domain.Download, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.CSV")
	defer span.End()

	d, err := s.reports.ExportReportsCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	d.Filename = csvFilename
	if d.ContentType == "" {
		d.ContentType = "text/csv"
	}
	return d, nil
}

// XLSX builds a workbook of the filtered reports.
func (s *ReportService) XLSX(ctx context.Context, f domain.Filters) (*domain.Download, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.XLSX")
	defer span.End()

	reports, err := s.reports.ListReports(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	body, err := buildWorkbook(reports)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	span.SetAttributes(attribute.Int("reports.count", len(reports)))
	s.logger.Info("reports exported to xlsx", zap.Int("rows", len(reports)))

	return &domain.Download{Filename: xlsxFilename, ContentType: ContentTypeXLSX, Body: body}, nil
}

func buildWorkbook(reports []domain.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &xlsxHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", "F1", bold); err != nil {
		return nil, err
	}

	for i, r := range reports {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			r.ClientName,
			r.TechnicianName,
			r.SupervisorName,
			r.CreatedAt.Format("02/01/2006 15:04"),
			r.MinutesSpent,
			r.Summary,
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(xlsxSheet, "A", "D", 22); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(xlsxSheet, "F", "F", 60); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
