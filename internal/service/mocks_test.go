package service_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
)

// --- Mocks ---

// mockBackend implements every REST port. Calls are recorded under mu so
// the errgroup joins can hit it concurrently.
type mockBackend struct {
	mu sync.Mutex

	users   []domain.User
	clients []domain.Client
	visits  []domain.Visit
	reports []domain.Report

	usersErr   error
	clientsErr error
	visitsErr  error
	reportsErr error
	writeErr   error

	createdUsers  []domain.UserInput
	updatedUsers  []domain.UserInput
	createdVisits []domain.VisitInput
	checkIns      []domain.Coordinates
	checkOuts     []domain.CheckoutPayload
	lastFilters   domain.Filters

	// release, when set, blocks check-out until closed.
	release     chan struct{}
	checkoutHit atomic.Int32
	// checkoutCtxErr is the context error seen once check-out was released.
	checkoutCtxErr error
}

func (m *mockBackend) ListUsers(context.Context) ([]domain.User, error) {
	return m.users, m.usersErr
}

func (m *mockBackend) CreateUser(_ context.Context, in domain.UserInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdUsers = append(m.createdUsers, in)
	return m.writeErr
}

func (m *mockBackend) UpdateUser(_ context.Context, _ int64, in domain.UserInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedUsers = append(m.updatedUsers, in)
	return m.writeErr
}

func (m *mockBackend) DeleteUser(context.Context, int64) error { return m.writeErr }

func (m *mockBackend) ListClients(context.Context) ([]domain.Client, error) {
	return m.clients, m.clientsErr
}

func (m *mockBackend) CreateClient(context.Context, domain.Client) error { return m.writeErr }

func (m *mockBackend) UpdateClient(context.Context, int64, domain.Client) error { return m.writeErr }

func (m *mockBackend) DeleteClient(context.Context, int64) error { return m.writeErr }

func (m *mockBackend) ListVisits(_ context.Context, f domain.Filters) ([]domain.Visit, error) {
	m.mu.Lock()
	m.lastFilters = f
	m.mu.Unlock()
	return m.visits, m.visitsErr
}

func (m *mockBackend) TodayVisits(context.Context) ([]domain.Visit, error) {
	return m.visits, m.visitsErr
}

func (m *mockBackend) CreateVisit(_ context.Context, in domain.VisitInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdVisits = append(m.createdVisits, in)
	return m.writeErr
}

func (m *mockBackend) CheckIn(_ context.Context, _ int64, at domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkIns = append(m.checkIns, at)
	return m.writeErr
}

func (m *mockBackend) CheckOut(ctx context.Context, _ int64, p domain.CheckoutPayload) error {
	m.checkoutHit.Add(1)
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkoutCtxErr = ctx.Err()
	m.checkOuts = append(m.checkOuts, p)
	return m.writeErr
}

func (m *mockBackend) ListReports(_ context.Context, f domain.Filters) ([]domain.Report, error) {
	m.mu.Lock()
	m.lastFilters = f
	m.mu.Unlock()
	return m.reports, m.reportsErr
}

func (m *mockBackend) ReportPDF(context.Context, int64) (*domain.Download, error) {
	return &domain.Download{Filename: "whatever.pdf", Body: []byte("%PDF")}, m.reportsErr
}

func (m *mockBackend) ExportReportsCSV(context.Context, domain.Filters) (*domain.Download, error) {
	return &domain.Download{Body: []byte("a,b\n")}, m.reportsErr
}

func (m *mockBackend) Dashboard(context.Context) (*domain.Dashboard, error) {
	return &domain.Dashboard{UserCount: 3}, nil
}

type mockLocator struct {
	at  domain.Coordinates
	err error
}

func (m mockLocator) Locate(context.Context) (domain.Coordinates, error) { return m.at, m.err }

type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.VisitNotification
	err  error
}

func (m *mockNotifier) NotifyVisitFinished(_ context.Context, n domain.VisitNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

func int64Ptr(v int64) *int64 { return &v }
