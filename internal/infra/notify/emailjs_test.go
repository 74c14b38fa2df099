package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/notify"
	"github.com/skynet/fieldvisit-bfa/internal/infra/resilience"

	"go.uber.org/zap"
)

func TestEmailJS_SendsTemplateParams(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	n := notify.NewEmailJS(srv.Client(), notify.EmailJSConfig{
		URL:        srv.URL,
		ServiceID:  "svc",
		TemplateID: "tpl",
		PublicKey:  "pub",
	}, resilience.NewCircuitBreaker("emailjs", zap.NewNop()), zap.NewNop())

	err := n.NotifyVisitFinished(context.Background(), domain.VisitNotification{
		ClientName:     "Ferretería El Martillo",
		ClientEmail:    "compras@martillo.gt",
		TechnicianName: "Luis",
		VisitDate:      time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC),
		MinutesSpent:   45,
		Summary:        "Cambio de router",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got["service_id"] != "svc" || got["template_id"] != "tpl" || got["user_id"] != "pub" {
		t.Errorf("unexpected envelope: %v", got)
	}
	if _, ok := got["accessToken"]; ok {
		t.Error("expected accessToken omitted without a private key")
	}
	params, _ := got["template_params"].(map[string]any)
	want := map[string]string{
		"client_name":     "Ferretería El Martillo",
		"client_email":    "compras@martillo.gt",
		"technician_name": "Luis",
		"visit_date":      "03/05/2024",
		"minutes_spent":   "45",
		"summary":         "Cambio de router",
	}
	for k, v := range want {
		if params[k] != v {
			t.Errorf("template_params[%s]: expected %q, got %v", k, v, params[k])
		}
	}
}

func TestEmailJS_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("The template ID is invalid"))
	}))
	defer srv.Close()

	n := notify.NewEmailJS(srv.Client(), notify.EmailJSConfig{URL: srv.URL},
		resilience.NewCircuitBreaker("emailjs", zap.NewNop()), zap.NewNop())

	err := n.NotifyVisitFinished(context.Background(), domain.VisitNotification{ClientEmail: "a@b.c"})
	var apiErr *domain.ErrAPI
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", apiErr.Status)
	}
}
