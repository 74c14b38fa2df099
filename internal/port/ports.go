// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"net/http"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
)

// ============================================================
// REST backend
// ============================================================

// Authenticator exchanges credentials for a token + user pair.
type Authenticator interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
}

// UserAPI is the /users resource.
type UserAPI interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, in domain.UserInput) error
	UpdateUser(ctx context.Context, id int64, in domain.UserInput) error
	DeleteUser(ctx context.Context, id int64) error
}

// ClientAPI is the /clients resource.
type ClientAPI interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	CreateClient(ctx context.Context, c domain.Client) error
	UpdateClient(ctx context.Context, id int64, c domain.Client) error
	DeleteClient(ctx context.Context, id int64) error
}

// VisitAPI is the /visits resource and its lifecycle actions.
type VisitAPI interface {
	ListVisits(ctx context.Context, f domain.Filters) ([]domain.Visit, error)
	TodayVisits(ctx context.Context) ([]domain.Visit, error)
	CreateVisit(ctx context.Context, in domain.VisitInput) error
	CheckIn(ctx context.Context, visitID int64, at domain.Coordinates) error
	CheckOut(ctx context.Context, visitID int64, p domain.CheckoutPayload) error
}

// ReportAPI is the /reports resource.
type ReportAPI interface {
	ListReports(ctx context.Context, f domain.Filters) ([]domain.Report, error)
	ReportPDF(ctx context.Context, visitID int64) (*domain.Download, error)
	ExportReportsCSV(ctx context.Context, f domain.Filters) (*domain.Download, error)
}

// DashboardAPI is GET /dashboard.
type DashboardAPI interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
}

// ============================================================
// Session persistence
// ============================================================

// SessionPair is the raw token + serialized user as held by a store.
// Either both fields are set or neither is.
type SessionPair struct {
	Token string
	User  []byte
}

// Empty reports whether neither slot is present.
func (p SessionPair) Empty() bool {
	return p.Token == "" && len(p.User) == 0
}

// Complete reports whether both slots are present.
func (p SessionPair) Complete() bool {
	return p.Token != "" && len(p.User) > 0
}

// SessionStore persists the session pair between requests. Save and Clear
// always touch both slots together.
type SessionStore interface {
	Load(r *http.Request) (SessionPair, error)
	Save(w http.ResponseWriter, r *http.Request, pair SessionPair, ttl time.Duration) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// ============================================================
// Device and notification
// ============================================================

// Locator resolves the acting device's current position.
type Locator interface {
	Locate(ctx context.Context) (domain.Coordinates, error)
}

// Notifier sends the visit-finished email to the client.
type Notifier interface {
	NotifyVisitFinished(ctx context.Context, n domain.VisitNotification) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	SetWithTTL(key string, value T, ttl time.Duration)
	Delete(key string)
}
