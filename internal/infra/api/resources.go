package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
)

// ============================================================
// Auth
// ============================================================

// Login calls POST /auth/login. It runs without a bearer token.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	if err := c.doJSON(WithToken(ctx, ""), http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================
// Users
// ============================================================

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in domain.UserInput) error {
	return c.doJSON(ctx, http.MethodPost, "/users", nil, in, nil)
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in domain.UserInput) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), nil, in, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil, nil)
}

// ============================================================
// Clients
// ============================================================

func (c *Client) ListClients(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	if err := c.doJSON(ctx, http.MethodGet, "/clients", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateClient(ctx context.Context, cl domain.Client) error {
	return c.doJSON(ctx, http.MethodPost, "/clients", nil, cl, nil)
}

func (c *Client) UpdateClient(ctx context.Context, id int64, cl domain.Client) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/clients/%d", id), nil, cl, nil)
}

func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/clients/%d", id), nil, nil, nil)
}

// ============================================================
// Visits
// ============================================================

// ListVisits calls GET /visits with the filter bar's query parameters.
func (c *Client) ListVisits(ctx context.Context, f domain.Filters) ([]domain.Visit, error) {
	var out []domain.Visit
	if err := c.doJSON(ctx, http.MethodGet, "/visits", f.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TodayVisits calls GET /visits/today; the backend scopes it to the caller.
func (c *Client) TodayVisits(ctx context.Context) ([]domain.Visit, error) {
	var out []domain.Visit
	if err := c.doJSON(ctx, http.MethodGet, "/visits/today", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateVisit(ctx context.Context, in domain.VisitInput) error {
	return c.doJSON(ctx, http.MethodPost, "/visits", nil, in, nil)
}

func (c *Client) CheckIn(ctx context.Context, visitID int64, at domain.Coordinates) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/visits/%d/checkin", visitID), nil, at, nil)
}

func (c *Client) CheckOut(ctx context.Context, visitID int64, p domain.CheckoutPayload) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/visits/%d/checkout", visitID), nil, p, nil)
}

// ============================================================
// Reports
// ============================================================

func (c *Client) ListReports(ctx context.Context, f domain.Filters) ([]domain.Report, error) {
	var out []domain.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports", f.Query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReportPDF downloads the backend-generated PDF of one visit's report.
func (c *Client) ReportPDF(ctx context.Context, visitID int64) (*domain.Download, error) {
	return c.doBinary(ctx, fmt.Sprintf("/reports/%d/pdf", visitID), nil,
		fmt.Sprintf("reporte-visita-%d.pdf", visitID))
}

// ExportReportsCSV downloads the backend-generated CSV of the filtered reports.
func (c *Client) ExportReportsCSV(ctx context.Context, f domain.Filters) (*domain.Download, error) {
	return c.doBinary(ctx, "/reports/export/csv", f.Query(), "reporte_general_skynet.csv")
}

// ============================================================
// Dashboard
// ============================================================

func (c *Client) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	var out domain.Dashboard
	if err := c.doJSON(ctx, http.MethodGet, "/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping reports whether the backend answers at all. It calls /dashboard
// without a token; any HTTP reply below 500, including 401, is reachable.
func (c *Client) Ping(ctx context.Context) error {
	err := c.doJSON(WithToken(ctx, ""), http.MethodGet, "/dashboard", nil, nil, nil)
	if err == nil {
		return nil
	}
	var (
		unauthorized *domain.ErrUnauthorized
		forbidden    *domain.ErrForbidden
		apiErr       *domain.ErrAPI
	)
	switch {
	case errors.As(err, &unauthorized), errors.As(err, &forbidden):
		return nil
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		return nil
	}
	return err
}
