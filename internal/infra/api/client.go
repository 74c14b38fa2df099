// Package api is the preconfigured client for the field-service REST backend.
// Every request carries the signed-in user's bearer token, taken from the
// request context at the moment the request is built.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/observability"
	"github.com/skynet/fieldvisit-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("api")

const serviceName = "backend"

type tokenKey struct{}

// WithToken returns a context whose backend calls authenticate with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token stored by WithToken, or "".
func TokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey{}).(string)
	return v
}

// Client wraps HTTP calls to the REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a backend client. metrics may be nil.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		bulkhead:   bulkhead,
		metrics:    metrics,
		logger:     logger,
	}
}

// backendError is the error body shape the backend uses.
type backendError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// response is what survives the breaker: status, headers and body.
type response struct {
	header http.Header
	body   []byte
}

// doJSON sends body (if non-nil) as JSON and decodes the reply into out
// (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	resp, err := c.do(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		c.logger.Error("api: failed to decode response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// doBinary fetches a file body, keeping its content type and the filename
// from Content-Disposition when the backend sends one.
func (c *Client) doBinary(ctx context.Context, path string, query url.Values, fallbackName string) (*domain.Download, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	d := &domain.Download{
		Filename:    fallbackName,
		ContentType: resp.header.Get("Content-Type"),
		Body:        resp.body,
	}
	if cd := resp.header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			d.Filename = params["filename"]
		}
	}
	if d.ContentType == "" {
		d.ContentType = "application/octet-stream"
	}
	return d, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (*response, error) {
	ctx, span := tracer.Start(ctx, method+" "+path)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, c.contextError(method, path, err)
	}
	defer c.bulkhead.Release()

	result, err := c.cb.Execute(func() (any, error) {
		return c.roundTrip(ctx, method, path, query, payload)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if resilience.IsOpen(err) {
			c.logger.Warn("api: circuit open, call skipped",
				zap.String("method", method),
				zap.String("path", path),
			)
			return nil, &domain.ErrCircuitOpen{Service: serviceName}
		}
		return nil, err
	}
	return result.(*response), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		c.logger.Error("api: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextError(method, path, ctx.Err())
		}
		c.logger.Error("api: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		c.countError()
		return nil, &domain.ErrNetwork{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countError()
		return nil, &domain.ErrNetwork{Service: serviceName, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("api: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(raw, 512)),
		)
		if resp.StatusCode >= 500 {
			c.countError()
		}
		return nil, statusError(resp.StatusCode, raw)
	}

	c.logger.Debug("api: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return &response{header: resp.Header, body: raw}, nil
}

// statusError maps a non-2xx reply to a typed error carrying the backend's
// own message when present.
func statusError(status int, raw []byte) error {
	var be backendError
	_ = json.Unmarshal(raw, &be)
	msg := be.Message
	if msg == "" {
		msg = be.Error
	}

	switch status {
	case http.StatusUnauthorized:
		return &domain.ErrUnauthorized{Message: msg}
	case http.StatusForbidden:
		return &domain.ErrForbidden{Message: msg}
	}
	return &domain.ErrAPI{Status: status, Message: msg}
}

func (c *Client) contextError(method, path string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		c.countError()
		return &domain.ErrTimeout{Operation: method + " " + path}
	}
	return err
}

func (c *Client) countError() {
	if c.metrics != nil {
		c.metrics.IncrExternalError(serviceName)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
