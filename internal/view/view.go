// Package view decides which parts of a page a role sees. Every function is
// a pure function of the role and the page state; templates only read the
// results.
package view

import (
	"fmt"
	"net/url"

	"github.com/skynet/fieldvisit-bfa/internal/authz"
	"github.com/skynet/fieldvisit-bfa/internal/domain"
)

// ============================================================
// Navigation
// ============================================================

// NavItem is one link of the top bar.
type NavItem struct {
	Label string
	Path  string
}

// Nav lists the links role may follow, in the capability table's order.
func Nav(role domain.Role) []NavItem {
	var items []NavItem
	for _, c := range authz.Capabilities() {
		if c.InNav && authz.Allows(c.Page, role) {
			items = append(items, NavItem{Label: c.Label, Path: c.Path})
		}
	}
	return items
}

// ============================================================
// Forms
// ============================================================

// FormMode tells create forms from edit forms.
type FormMode int

const (
	ModeCreate FormMode = iota
	ModeEdit
)

// UserFormView is the field visibility of the user form.
type UserFormView struct {
	ShowPassword   bool
	ShowActive     bool
	ShowSupervisor bool
}

// UserForm shows the password only when creating, the active switch only
// when editing and the supervisor select only for technicians.
func UserForm(mode FormMode, selectedRole domain.Role) UserFormView {
	return UserFormView{
		ShowPassword:   mode == ModeCreate,
		ShowActive:     mode == ModeEdit,
		ShowSupervisor: selectedRole == domain.RoleTechnician,
	}
}

// VisitFormView is the field visibility of the visit planning form.
type VisitFormView struct {
	ShowSupervisor bool
}

// VisitForm lets only administrators pick the supervisor; for supervisors
// the backend assigns themselves.
func VisitForm(role domain.Role) VisitFormView {
	return VisitFormView{ShowSupervisor: role == domain.RoleAdmin}
}

// ============================================================
// Filter bar
// ============================================================

// Option is one entry of a select.
type Option struct {
	Value string
	Label string
}

// FilterBarView is the field visibility of the list filter bar.
type FilterBarView struct {
	Statuses       []Option
	ShowSupervisor bool
	ShowTechnician bool
}

// FilterBar always shows status and dates. Supervisors filter by their own
// technicians; administrators by supervisor as well.
func FilterBar(role domain.Role) FilterBarView {
	statuses := []Option{{Value: "", Label: "Todos"}}
	for _, s := range domain.Statuses {
		statuses = append(statuses, Option{Value: string(s), Label: s.Label()})
	}
	return FilterBarView{
		Statuses:       statuses,
		ShowSupervisor: role == domain.RoleAdmin,
		ShowTechnician: role == domain.RoleAdmin || role == domain.RoleSupervisor,
	}
}

// NeedsRoster reports whether the role's pages need the user list to fill
// the filter selects.
func NeedsRoster(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleSupervisor
}

// ============================================================
// Visits
// ============================================================

// Layout is how the visit list is drawn.
type Layout string

const (
	LayoutTable Layout = "table"
	LayoutCards Layout = "cards"
)

// VisitLayout gives technicians actionable cards and everyone else a table.
func VisitLayout(role domain.Role) Layout {
	if role == domain.RoleTechnician {
		return LayoutCards
	}
	return LayoutTable
}

// Actions is the enabled state of the lifecycle buttons of a visit.
type Actions struct {
	CanCheckIn  bool
	CanCheckOut bool
}

// VisitActions follows the forward-only lifecycle: check-in while pending,
// check-out while in progress, nothing afterwards.
func VisitActions(status domain.VisitStatus) Actions {
	return Actions{
		CanCheckIn:  status == domain.StatusPending,
		CanCheckOut: status == domain.StatusInProgress,
	}
}

// Badge is a status pill.
type Badge struct {
	Variant string
	Label   string
}

// StatusBadge colours a visit status.
func StatusBadge(status domain.VisitStatus) Badge {
	variant := "dark"
	switch status {
	case domain.StatusPending:
		variant = "warning"
	case domain.StatusInProgress:
		variant = "primary"
	case domain.StatusFinished:
		variant = "success"
	case domain.StatusCancelled:
		variant = "secondary"
	}
	return Badge{Variant: variant, Label: string(status)}
}

// DirectionsURL is the "Cómo Llegar" link for a visit site.
func DirectionsURL(lat, lng float64) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", fmt.Sprintf("%g,%g", lat, lng))
	return "https://www.google.com/maps/dir/?" + q.Encode()
}

// ============================================================
// Dashboard
// ============================================================

// Variant selects the dashboard body.
type Variant string

const (
	VariantAdmin      Variant = "admin"
	VariantSupervisor Variant = "supervisor"
	VariantTechnician Variant = "technician"
	VariantNone       Variant = ""
)

// DashboardVariant picks the dashboard body for role.
func DashboardVariant(role domain.Role) Variant {
	switch role {
	case domain.RoleAdmin:
		return VariantAdmin
	case domain.RoleSupervisor:
		return VariantSupervisor
	case domain.RoleTechnician:
		return VariantTechnician
	}
	return VariantNone
}
