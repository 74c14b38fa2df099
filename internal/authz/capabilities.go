// Package authz decides who may see which page. The capability table here
// is the only place page access is declared; the gate and the navigation
// both read it.
package authz

import "github.com/skynet/fieldvisit-bfa/internal/domain"

// Page identifies a gated page or action group.
type Page string

const (
	PageDashboard    Page = "dashboard"
	PageVisitsList   Page = "visits_list"
	PageClients      Page = "clients"
	PageReports      Page = "reports"
	PageVisitsNew    Page = "visits_new"
	PageUsers        Page = "users"
	PageTechToday    Page = "tech_today"
	PageVisitActions Page = "visit_actions"
	PageSessionAPI   Page = "session_api"
)

// Capability describes one page: where it lives, who may open it and how
// it appears in the navigation bar. An empty Allow means any signed-in user.
type Capability struct {
	Page  Page
	Path  string
	Label string
	Allow []domain.Role
	InNav bool
}

var (
	managers    = []domain.Role{domain.RoleAdmin, domain.RoleSupervisor}
	adminOnly   = []domain.Role{domain.RoleAdmin}
	techOnly    = []domain.Role{domain.RoleTechnician}
	anySignedIn []domain.Role
)

// capabilities is in navigation order.
var capabilities = []Capability{
	{Page: PageDashboard, Path: "/", Label: "Dashboard", Allow: anySignedIn},
	{Page: PageVisitsList, Path: "/visits/list", Label: "Visitas", Allow: anySignedIn, InNav: true},
	{Page: PageClients, Path: "/clients", Label: "Clientes", Allow: managers, InNav: true},
	{Page: PageReports, Path: "/reports", Label: "Reportes", Allow: managers, InNav: true},
	{Page: PageVisitsNew, Path: "/visits/new", Label: "Planificar Visita", Allow: managers, InNav: true},
	{Page: PageUsers, Path: "/admin/users", Label: "Usuarios", Allow: adminOnly, InNav: true},
	{Page: PageTechToday, Path: "/tech/today", Label: "Mis Visitas de Hoy", Allow: techOnly, InNav: true},
	{Page: PageVisitActions, Path: "/visits/{id}", Label: "Check-in / Check-out", Allow: techOnly},
	{Page: PageSessionAPI, Path: "/api/session", Label: "Sesión", Allow: anySignedIn},
}

var byPage = func() map[Page]Capability {
	m := make(map[Page]Capability, len(capabilities))
	for _, c := range capabilities {
		m[c.Page] = c
	}
	return m
}()

// Capabilities returns the table in navigation order.
func Capabilities() []Capability {
	out := make([]Capability, len(capabilities))
	copy(out, capabilities)
	return out
}

// Lookup returns the capability of page.
func Lookup(page Page) (Capability, bool) {
	c, ok := byPage[page]
	return c, ok
}

// Pages lists every page name, for metric snapshots.
func Pages() []string {
	out := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		out = append(out, string(c.Page))
	}
	return out
}

// Allows reports whether role may open page. Unknown pages and empty roles
// are refused unless the page is open to any signed-in user.
func Allows(page Page, role domain.Role) bool {
	c, ok := byPage[page]
	if !ok {
		return false
	}
	return roleAllowed(role, c.Allow)
}

func roleAllowed(role domain.Role, allow []domain.Role) bool {
	if len(allow) == 0 {
		return true
	}
	if role == "" {
		return false
	}
	for _, r := range allow {
		if r == role {
			return true
		}
	}
	return false
}
