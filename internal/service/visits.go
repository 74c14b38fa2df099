package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"
	"github.com/skynet/fieldvisit-bfa/internal/view"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var visitTracer = otel.Tracer("service/visits")

// Roster is the user list split for the filter and form selects.
type Roster struct {
	Technicians []domain.User
	Supervisors []domain.User
}

func rosterOf(users []domain.User) Roster {
	return Roster{
		Technicians: domain.FilterByRole(users, domain.RoleTechnician),
		Supervisors: domain.FilterByRole(users, domain.RoleSupervisor),
	}
}

// VisitPage is what the visit list renders.
type VisitPage struct {
	Visits []domain.Visit
	Roster
}

// PlanningData is what the planning form needs.
type PlanningData struct {
	Clients []domain.Client
	Roster
}

// VisitService reads and plans visits.
type VisitService struct {
	visits  port.VisitAPI
	users   port.UserAPI
	clients port.ClientAPI
	logger  *zap.Logger
}

// NewVisitService creates the visit service.
func NewVisitService(visits port.VisitAPI, users port.UserAPI, clients port.ClientAPI, logger *zap.Logger) *VisitService {
	return &VisitService{visits: visits, users: users, clients: clients, logger: logger}
}

// Page fetches the filtered visits and, for roles whose filter bar needs
// it, the user roster in parallel. Either failure fails the page.
func (s *VisitService) Page(ctx context.Context, role domain.Role, f domain.Filters) (*VisitPage, error) {
	ctx, span := visitTracer.Start(ctx, "VisitService.Page")
	defer span.End()
	span.SetAttributes(attribute.String("role", string(role)))

	var (
		visits []domain.Visit
		users  []domain.User
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		visits, err = s.visits.ListVisits(gCtx, f)
		if err != nil {
			return fmt.Errorf("list visits: %w", err)
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

	return &VisitPage{Visits: visits, Roster: rosterOf(users)}, nil
}

// Today returns the caller's visits of the day.
func (s *VisitService) Today(ctx context.Context) ([]domain.Visit, error) {
	ctx, span := visitTracer.Start(ctx, "VisitService.Today")
	defer span.End()

	visits, err := s.visits.TodayVisits(ctx)
	if err != nil {
		return nil, fmt.Errorf("today visits: %w", err)
	}
	return visits, nil
}

// Find returns the visit with id out of the caller's visible visits.
func (s *VisitService) Find(ctx context.Context, id int64) (*domain.Visit, error) {
	ctx, span := visitTracer.Start(ctx, "VisitService.Find")
	defer span.End()
	span.SetAttributes(attribute.Int64("visit.id", id))

	visits, err := s.visits.ListVisits(ctx, domain.Filters{})
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	for i := range visits {
		if visits[i].ID == id {
			return &visits[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "visit", ID: fmt.Sprint(id)}
}

// PlanningData loads clients and users in parallel for the planning form.
func (s *VisitService) PlanningData(ctx context.Context) (*PlanningData, error) {
	ctx, span := visitTracer.Start(ctx, "VisitService.PlanningData")
	defer span.End()

	var (
		clients []domain.Client
		users   []domain.User
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.clients.ListClients(gCtx)
		if err != nil {
			return fmt.Errorf("list clients: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.users.ListUsers(gCtx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PlanningData{Clients: clients, Roster: rosterOf(users)}, nil
}

// Plan creates a visit. Only administrators choose the supervisor; for
// everyone else the field is dropped and the backend assigns it.
func (s *VisitService) Plan(ctx context.Context, role domain.Role, in domain.VisitInput) error {
	ctx, span := visitTracer.Start(ctx, "VisitService.Plan")
	defer span.End()

	if role != domain.RoleAdmin {
		in.SupervisorID = nil
	}
	in.PlannedAt = strings.TrimSpace(in.PlannedAt)

	switch {
	case in.ClientID <= 0:
		return &domain.ErrValidation{Field: "client_id", Message: "selecciona un cliente"}
	case in.TechnicianID <= 0:
		return &domain.ErrValidation{Field: "technician_id", Message: "selecciona un técnico"}
	case in.PlannedAt == "":
		return &domain.ErrValidation{Field: "planned_at", Message: "indica la fecha planificada"}
	}

	if err := s.visits.CreateVisit(ctx, in); err != nil {
		return fmt.Errorf("create visit: %w", err)
	}
	s.logger.Info("visit planned",
		zap.Int64("client_id", in.ClientID),
		zap.Int64("technician_id", in.TechnicianID),
		zap.String("planned_at", in.PlannedAt),
	)
	return nil
}
