package domain

import (
	"strconv"
	"time"
)

// VisitNotification is the data the visit-finished email template renders.
type VisitNotification struct {
	ClientName     string
	ClientEmail    string
	TechnicianName string
	VisitDate      time.Time
	MinutesSpent   int
	Summary        string
}

// TemplateParams returns the notification as the email template variables.
func (n VisitNotification) TemplateParams() map[string]string {
	return map[string]string{
		"client_name":     n.ClientName,
		"client_email":    n.ClientEmail,
		"technician_name": n.TechnicianName,
		"visit_date":      n.VisitDate.Format("02/01/2006"),
		"minutes_spent":   strconv.Itoa(n.MinutesSpent),
		"summary":         n.Summary,
	}
}

// CheckoutResult reports how far a check-out got.
type CheckoutResult struct {
	Persisted           bool
	Notified            bool
	NotificationSkipped bool
}

// Message is the confirmation shown to the technician.
func (r CheckoutResult) Message() string {
	switch {
	case r.Notified:
		return "¡Visita finalizada! El reporte se guardó y se notificó al cliente."
	case r.NotificationSkipped:
		return "¡Visita finalizada! El reporte se guardó. (No se envió notificación porque el cliente no tiene un email registrado)."
	case r.Persisted:
		return "¡Visita finalizada! El reporte se guardó, pero no se pudo notificar al cliente."
	}
	return ""
}
