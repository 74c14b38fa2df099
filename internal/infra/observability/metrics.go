package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Gate decision labels, in the order the snapshot reports them.
var gateDecisions = []string{"wait", "redirect_login", "redirect_root", "render"}

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	gate            *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	sessionsCleared *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests call it freely.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_logins_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		gate: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_gate_decisions_total",
				Help: "Authorization gate decisions by page.",
			},
			[]string{"page", "decision"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_notifications_total",
				Help: "Check-out client notifications by outcome.",
			},
			[]string{"outcome"},
		),
		sessionsCleared: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_sessions_cleared_total",
				Help: "Session cookie pairs removed, by reason.",
			},
			[]string{"reason"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.backendErrors.WithLabelValues(service).Inc()
}

// IncrLogin counts a login attempt ("success" or "failure").
func (m *Metrics) IncrLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// IncrGateDecision counts one authorization decision for page.
func (m *Metrics) IncrGateDecision(page, decision string) {
	m.gate.WithLabelValues(page, decision).Inc()
}

// IncrNotification counts a notification outcome ("sent", "skipped", "failed").
func (m *Metrics) IncrNotification(outcome string) {
	m.notifications.WithLabelValues(outcome).Inc()
}

// IncrSessionCleared counts a cleared session ("logout", "corrupt", "expired").
func (m *Metrics) IncrSessionCleared(reason string) {
	m.sessionsCleared.WithLabelValues(reason).Inc()
}

// GateSnapshot is the JSON body of GET /v1/metrics/gate.
type GateSnapshot struct {
	Decisions     map[string]map[string]int64 `json:"decisions"`
	Totals        map[string]int64            `json:"totals"`
	LoginSuccess  int64                       `json:"login_success"`
	LoginFailure  int64                       `json:"login_failure"`
	DenialRate    float64                     `json:"denial_rate"`
	Notifications map[string]int64            `json:"notifications"`
}

// GetGateSnapshot gathers the gate, login and notification counters for the
// pages passed in.
func (m *Metrics) GetGateSnapshot(pages []string) *GateSnapshot {
	snap := &GateSnapshot{
		Decisions:     make(map[string]map[string]int64, len(pages)),
		Totals:        make(map[string]int64, len(gateDecisions)),
		Notifications: make(map[string]int64, 3),
	}

	var all, denied float64
	for _, page := range pages {
		perPage := make(map[string]int64, len(gateDecisions))
		for _, d := range gateDecisions {
			v := getCounterValue(m.gate, page, d)
			perPage[d] = int64(v)
			snap.Totals[d] += int64(v)
			all += v
			if d == "redirect_login" || d == "redirect_root" {
				denied += v
			}
		}
		snap.Decisions[page] = perPage
	}
	if all > 0 {
		snap.DenialRate = denied / all
	}

	snap.LoginSuccess = int64(getCounterValue(m.logins, "success"))
	snap.LoginFailure = int64(getCounterValue(m.logins, "failure"))
	for _, o := range []string{"sent", "skipped", "failed"} {
		snap.Notifications[o] = int64(getCounterValue(m.notifications, o))
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for
// the given label values.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
