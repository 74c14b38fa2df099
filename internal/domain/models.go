package domain

import (
	"net/url"
	"time"
)

// ============================================================
// Roles
// ============================================================

// Role is one of the three static roles the backend assigns to a user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleTechnician Role = "TECHNICIAN"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleTechnician}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleTechnician:
		return true
	}
	return false
}

// Label is the Spanish display name used in forms.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleSupervisor:
		return "Supervisor"
	case RoleTechnician:
		return "Técnico"
	}
	return string(r)
}

// ============================================================
// Users
// ============================================================

// User is the backend user record. SupervisorID only carries meaning for
// technicians.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	SupervisorID *int64 `json:"supervisor_id"`
	IsActive     bool   `json:"is_active"`
}

// UserInput is the body of POST /users and PUT /users/:id.
type UserInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password,omitempty"`
	Role         Role   `json:"role"`
	SupervisorID *int64 `json:"supervisor_id"`
	IsActive     bool   `json:"is_active"`
}

// FilterByRole returns the users holding role, preserving order.
func FilterByRole(users []User, role Role) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

// ============================================================
// Clients
// ============================================================

// Client is a customer site. Lat/Lng are set from the map picker only.
type Client struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Address     string   `json:"address"`
	ContactName string   `json:"contact_name"`
	Phone       string   `json:"phone"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// Coordinates is a device or map-picked position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ============================================================
// Visits
// ============================================================

// VisitStatus moves forward only: PENDING -> IN_PROGRESS -> FINISHED.
// CANCELLED is terminal and set by the backend.
type VisitStatus string

const (
	StatusPending    VisitStatus = "PENDING"
	StatusInProgress VisitStatus = "IN_PROGRESS"
	StatusFinished   VisitStatus = "FINISHED"
	StatusCancelled  VisitStatus = "CANCELLED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []VisitStatus{StatusPending, StatusInProgress, StatusFinished, StatusCancelled}

// Label is the Spanish display name used in the filter bar.
func (s VisitStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pendiente"
	case StatusInProgress:
		return "En Progreso"
	case StatusFinished:
		return "Finalizada"
	case StatusCancelled:
		return "Cancelada"
	}
	return string(s)
}

// Visit is the backend visit record, including the denormalized names the
// list endpoints join in.
type Visit struct {
	ID             int64       `json:"id"`
	ClientID       int64       `json:"client_id"`
	TechnicianID   int64       `json:"technician_id"`
	SupervisorID   *int64      `json:"supervisor_id"`
	PlannedAt      time.Time   `json:"planned_at"`
	Status         VisitStatus `json:"status"`
	Lat            float64     `json:"lat"`
	Lng            float64     `json:"lng"`
	ClientName     string      `json:"client_name"`
	ClientEmail    string      `json:"client_email"`
	Address        string      `json:"address"`
	TechnicianName string      `json:"technician_name"`
	SupervisorName string      `json:"supervisor_name"`
}

// VisitInput is the body of POST /visits. SupervisorID is omitted unless
// the acting user is an administrator.
type VisitInput struct {
	ClientID     int64  `json:"client_id"`
	TechnicianID int64  `json:"technician_id"`
	SupervisorID *int64 `json:"supervisor_id,omitempty"`
	PlannedAt    string `json:"planned_at"`
}

// CheckoutInput is the report part of a check-out, before geolocation is
// merged in.
type CheckoutInput struct {
	Summary      string `json:"summary"`
	MinutesSpent int    `json:"minutes_spent"`
}

// CheckoutPayload is the body of POST /visits/:id/checkout.
type CheckoutPayload struct {
	Summary      string  `json:"summary"`
	MinutesSpent int     `json:"minutes_spent"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// ============================================================
// Reports
// ============================================================

// Report is created once per visit at check-out and never changes.
type Report struct {
	ReportID       int64     `json:"report_id"`
	VisitID        int64     `json:"visit_id"`
	Summary        string    `json:"summary"`
	MinutesSpent   int       `json:"minutes_spent"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	CreatedAt      time.Time `json:"created_at"`
	ClientName     string    `json:"client_name"`
	TechnicianName string    `json:"technician_name"`
	SupervisorName string    `json:"supervisor_name"`
}

// Download is a binary body returned by the backend (PDF, CSV) or built
// locally (XLSX, route sheet).
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ============================================================
// Filters
// ============================================================

// Filters are the list filters shared by visits and reports.
type Filters struct {
	Status       string
	SupervisorID string
	TechnicianID string
	StartDate    string
	EndDate      string
}

// FiltersFromQuery reads the filter bar fields from a query string.
func FiltersFromQuery(q url.Values) Filters {
	return Filters{
		Status:       q.Get("status"),
		SupervisorID: q.Get("supervisorId"),
		TechnicianID: q.Get("technicianId"),
		StartDate:    q.Get("startDate"),
		EndDate:      q.Get("endDate"),
	}
}

// Query encodes the non-empty filters with the backend's parameter names.
func (f Filters) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", f.Status)
	set("supervisorId", f.SupervisorID)
	set("technicianId", f.TechnicianID)
	set("startDate", f.StartDate)
	set("endDate", f.EndDate)
	return q
}

// ============================================================
// Dashboard
// ============================================================

// StatusCount is one slice of a status breakdown chart.
type StatusCount struct {
	Status VisitStatus `json:"status"`
	Count  int         `json:"count"`
}

// PerformancePoint is one bar or point of a performance chart. Supervisor
// charts carry Name, time series carry Date.
type PerformancePoint struct {
	Name           string `json:"name,omitempty"`
	Date           string `json:"date,omitempty"`
	CompletedCount int    `json:"completed_count,omitempty"`
	Count          int    `json:"count,omitempty"`
}

// Label returns the axis label of the point.
func (p PerformancePoint) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Date
}

// Value returns whichever count field the backend filled.
func (p PerformancePoint) Value() int {
	if p.CompletedCount != 0 {
		return p.CompletedCount
	}
	return p.Count
}

// DashboardCharts groups every chart series any role can receive.
type DashboardCharts struct {
	VisitsBySupervisor []PerformancePoint `json:"visitsBySupervisor,omitempty"`
	GlobalStatus       []StatusCount      `json:"globalStatus,omitempty"`
	TeamPerformance    []PerformancePoint `json:"teamPerformance,omitempty"`
	TeamStatus         []StatusCount      `json:"teamStatus,omitempty"`
	WeeklyPerformance  []PerformancePoint `json:"weeklyPerformance,omitempty"`
	MyStatus           []StatusCount      `json:"myStatus,omitempty"`
}

// TeamVisits is the supervisor's visits-of-the-day counter.
type TeamVisits struct {
	Total    int `json:"total"`
	Finished int `json:"finished"`
}

// Progress returns the finished share in percent, 0 when there are none.
func (t TeamVisits) Progress() int {
	if t.Total <= 0 {
		return 0
	}
	return int(float64(t.Finished)/float64(t.Total)*100 + 0.5)
}

// MyVisits is the technician's visits-of-the-day counter.
type MyVisits struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

// Dashboard is the GET /dashboard payload. The backend fills only the
// fields of the caller's role.
type Dashboard struct {
	UserCount           int             `json:"userCount"`
	ClientCount         int             `json:"clientCount"`
	PendingVisitsGlobal int             `json:"pendingVisitsGlobal"`
	TeamVisitsToday     TeamVisits      `json:"teamVisitsToday"`
	MyVisits            MyVisits        `json:"myVisits"`
	NextVisit           *Visit          `json:"nextVisit,omitempty"`
	Charts              DashboardCharts `json:"charts"`
}
