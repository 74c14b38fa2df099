package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/infra/geo"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var clientTracer = otel.Tracer("service/clients")

// ClientService manages customer sites.
type ClientService struct {
	api    port.ClientAPI
	logger *zap.Logger
}

// NewClientService creates the client service.
func NewClientService(api port.ClientAPI, logger *zap.Logger) *ClientService {
	return &ClientService{api: api, logger: logger}
}

// List returns every client.
func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	ctx, span := clientTracer.Start(ctx, "ClientService.List")
	defer span.End()

	clients, err := s.api.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// Save creates the client when id is nil and updates it otherwise.
// Coordinates travel as a pair or not at all.
func (s *ClientService) Save(ctx context.Context, id *int64, c domain.Client) error {
	ctx, span := clientTracer.Start(ctx, "ClientService.Save")
	defer span.End()

	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if err := validateClient(c); err != nil {
		return err
	}
	c.ID = 0

	if id == nil {
		if err := s.api.CreateClient(ctx, c); err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		s.logger.Info("client created", zap.String("name", c.Name))
		return nil
	}

	span.SetAttributes(attribute.Int64("client.id", *id))
	if err := s.api.UpdateClient(ctx, *id, c); err != nil {
		return fmt.Errorf("update client %d: %w", *id, err)
	}
	s.logger.Info("client updated", zap.Int64("client_id", *id))
	return nil
}

// Delete removes a client.
func (s *ClientService) Delete(ctx context.Context, id int64) error {
	ctx, span := clientTracer.Start(ctx, "ClientService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("client.id", id))

	if err := s.api.DeleteClient(ctx, id); err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	s.logger.Info("client deleted", zap.Int64("client_id", id))
	return nil
}

func validateClient(c domain.Client) error {
	if c.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	}
	if (c.Lat == nil) != (c.Lng == nil) {
		return &domain.ErrValidation{Field: "lat/lng", Message: "selecciona la ubicación en el mapa"}
	}
	if c.Lat != nil && !geo.Valid(domain.Coordinates{Lat: *c.Lat, Lng: *c.Lng}) {
		return &domain.ErrValidation{Field: "lat/lng", Message: "coordenadas fuera de rango"}
	}
	return nil
}
