package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/authz"
	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"

	"go.uber.org/zap"
)

// ============================================================
// Métricas & Health
// ============================================================

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

const healthCheckTimeout = 3 * time.Second

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa", Status: "healthy", LastChecked: now},
		}

		for _, hc := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			start := time.Now()
			err := hc.Check(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("health check failed", zap.String("dependency", hc.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name:        hc.Name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func gateMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetGateSnapshot(authz.Pages()))
	}
}
