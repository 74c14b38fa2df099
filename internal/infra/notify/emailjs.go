// Package notify sends the visit-finished email through EmailJS.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("notify")

// DefaultURL is the EmailJS send endpoint.
const DefaultURL = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSConfig identifies the EmailJS account and template.
type EmailJSConfig struct {
	URL        string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
}

// EmailJS posts template sends to the EmailJS REST API.
type EmailJS struct {
	httpClient *http.Client
	cfg        EmailJSConfig
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewEmailJS creates the EmailJS notifier.
func NewEmailJS(httpClient *http.Client, cfg EmailJSConfig, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *EmailJS {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	return &EmailJS{httpClient: httpClient, cfg: cfg, cb: cb, logger: logger}
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// NotifyVisitFinished sends one email to the visit's client.
func (e *EmailJS) NotifyVisitFinished(ctx context.Context, n domain.VisitNotification) error {
	ctx, span := tracer.Start(ctx, "EmailJS.NotifyVisitFinished")
	defer span.End()
	span.SetAttributes(attribute.String("template.id", e.cfg.TemplateID))

	body, err := json.Marshal(sendRequest{
		ServiceID:      e.cfg.ServiceID,
		TemplateID:     e.cfg.TemplateID,
		UserID:         e.cfg.PublicKey,
		AccessToken:    e.cfg.PrivateKey,
		TemplateParams: n.TemplateParams(),
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	_, err = e.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return nil, &domain.ErrNetwork{Service: "emailjs", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			e.logger.Warn("emailjs: non-2xx response",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(msg)),
			)
			return nil, &domain.ErrAPI{Status: resp.StatusCode, Message: string(msg)}
		}
		return nil, nil
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return &domain.ErrCircuitOpen{Service: "emailjs"}
		}
		return err
	}

	e.logger.Info("emailjs: visit notification sent",
		zap.String("client_email", n.ClientEmail),
	)
	return nil
}
