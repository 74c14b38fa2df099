package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/geo"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var lifecycleTracer = otel.Tracer("service/lifecycle")

// notifyTimeout bounds the email send once it no longer follows the request.
const notifyTimeout = 15 * time.Second

// actionTimeout bounds a collapsed check-in or check-out. The shared call
// serves every concurrent submitter, so no single request may cancel it.
const actionTimeout = 30 * time.Second

// LifecycleService performs check-in and check-out for technicians.
type LifecycleService struct {
	visits     port.VisitAPI
	notifier   port.Notifier
	geoTimeout time.Duration
	inflight   singleflight.Group
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewLifecycleService creates the lifecycle service. metrics may be nil.
func NewLifecycleService(visits port.VisitAPI, notifier port.Notifier, geoTimeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		visits:     visits,
		notifier:   notifier,
		geoTimeout: geoTimeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// CheckIn locates the device and starts the visit. Nothing is changed
// locally; the caller reloads the list.
func (s *LifecycleService) CheckIn(ctx context.Context, visitID int64, locator port.Locator) error {
	ctx, span := lifecycleTracer.Start(ctx, "Lifecycle.CheckIn")
	defer span.End()
	span.SetAttributes(attribute.Int64("visit.id", visitID))

	_, err, shared := s.inflight.Do(fmt.Sprintf("checkin:%d", visitID), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), actionTimeout)
		defer cancel()

		at, err := geo.WithTimeout(locator, s.geoTimeout).Locate(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.visits.CheckIn(ctx, visitID, at); err != nil {
			return nil, fmt.Errorf("check-in visit %d: %w", visitID, err)
		}
		s.logger.Info("visit checked in",
			zap.Int64("visit_id", visitID),
			zap.Float64("lat", at.Lat),
			zap.Float64("lng", at.Lng),
		)
		return nil, nil
	})
	if shared {
		s.logger.Debug("check-in collapsed with a concurrent submission", zap.Int64("visit_id", visitID))
	}
	return err
}

// CheckOut locates the device, persists the report and only then, if the
// client has an email, notifies them. A failed notification is returned as
// *domain.ErrNotification together with a persisted result; it never undoes
// the check-out.
func (s *LifecycleService) CheckOut(ctx context.Context, visit domain.Visit, report domain.CheckoutInput, technician domain.User, locator port.Locator) (domain.CheckoutResult, error) {
	ctx, span := lifecycleTracer.Start(ctx, "Lifecycle.CheckOut")
	defer span.End()
	span.SetAttributes(attribute.Int64("visit.id", visit.ID))

	report.Summary = strings.TrimSpace(report.Summary)
	if report.Summary == "" {
		return domain.CheckoutResult{}, &domain.ErrValidation{Field: "summary", Message: "el resumen es obligatorio"}
	}
	if report.MinutesSpent < 0 {
		return domain.CheckoutResult{}, &domain.ErrValidation{Field: "minutes_spent", Message: "los minutos no pueden ser negativos"}
	}

	type outcome struct {
		result domain.CheckoutResult
		err    error
	}
	v, err, shared := s.inflight.Do(fmt.Sprintf("checkout:%d", visit.ID), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), actionTimeout)
		defer cancel()

		res, err := s.checkOut(ctx, visit, report, technician, locator)
		return outcome{res, err}, nil
	})
	if shared {
		s.logger.Debug("check-out collapsed with a concurrent submission", zap.Int64("visit_id", visit.ID))
	}
	if err != nil {
		return domain.CheckoutResult{}, err
	}
	o := v.(outcome)
	return o.result, o.err
}

func (s *LifecycleService) checkOut(ctx context.Context, visit domain.Visit, report domain.CheckoutInput, technician domain.User, locator port.Locator) (domain.CheckoutResult, error) {
	at, err := geo.WithTimeout(locator, s.geoTimeout).Locate(ctx)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	payload := domain.CheckoutPayload{
		Summary:      report.Summary,
		MinutesSpent: report.MinutesSpent,
		Lat:          at.Lat,
		Lng:          at.Lng,
	}
	if err := s.visits.CheckOut(ctx, visit.ID, payload); err != nil {
		return domain.CheckoutResult{}, fmt.Errorf("check-out visit %d: %w", visit.ID, err)
	}
	result := domain.CheckoutResult{Persisted: true}
	s.logger.Info("visit checked out",
		zap.Int64("visit_id", visit.ID),
		zap.Int("minutes_spent", report.MinutesSpent),
	)

	if strings.TrimSpace(visit.ClientEmail) == "" {
		result.NotificationSkipped = true
		s.countNotification("skipped")
		s.logger.Info("client has no email, notification skipped", zap.Int64("visit_id", visit.ID))
		return result, nil
	}

	// The report is saved; a browser disconnect must not lose the email.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err = s.notifier.NotifyVisitFinished(nctx, domain.VisitNotification{
		ClientName:     visit.ClientName,
		ClientEmail:    visit.ClientEmail,
		TechnicianName: technician.Name,
		VisitDate:      visit.PlannedAt,
		MinutesSpent:   report.MinutesSpent,
		Summary:        report.Summary,
	})
	if err != nil {
		s.countNotification("failed")
		s.logger.Error("visit notification failed",
			zap.Int64("visit_id", visit.ID),
			zap.String("client_email", visit.ClientEmail),
			zap.Error(err),
		)
		return result, &domain.ErrNotification{Err: err}
	}

	result.Notified = true
	s.countNotification("sent")
	return result, nil
}

func (s *LifecycleService) countNotification(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrNotification(outcome)
	}
}
