package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"
	"github.com/skynet/fieldvisit-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var userTracer = otel.Tracer("service/users")

// UserService manages the user roster (administrators only).
type UserService struct {
	api    port.UserAPI
	logger *zap.Logger
}

// NewUserService creates the user service.
func NewUserService(api port.UserAPI, logger *zap.Logger) *UserService {
	return &UserService{api: api, logger: logger}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	ctx, span := userTracer.Start(ctx, "UserService.List")
	defer span.End()

	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Supervisors picks the supervisors out of users, for the form select.
func (s *UserService) Supervisors(users []domain.User) []domain.User {
	return domain.FilterByRole(users, domain.RoleSupervisor)
}

// Save creates the user when id is nil and updates it otherwise.
func (s *UserService) Save(ctx context.Context, id *int64, in domain.UserInput) error {
	ctx, span := userTracer.Start(ctx, "UserService.Save")
	defer span.End()

	in = NormalizeUser(in, id == nil)
	if err := validateUser(in, id == nil); err != nil {
		return err
	}

	if id == nil {
		if err := s.api.CreateUser(ctx, in); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("user created", zap.String("email", in.Email), zap.String("role", string(in.Role)))
		return nil
	}

	span.SetAttributes(attribute.Int64("user.id", *id))
	if err := s.api.UpdateUser(ctx, *id, in); err != nil {
		return fmt.Errorf("update user %d: %w", *id, err)
	}
	s.logger.Info("user updated", zap.Int64("user_id", *id), zap.String("role", string(in.Role)))
	return nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	ctx, span := userTracer.Start(ctx, "UserService.Delete")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", id))

	if err := s.api.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

// NormalizeUser trims the text fields, nulls the supervisor for every role
// but technician and drops the password outside of creation.
func NormalizeUser(in domain.UserInput, creating bool) domain.UserInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role != domain.RoleTechnician {
		in.SupervisorID = nil
	}
	if !creating {
		in.Password = ""
	}
	return in
}

func validateUser(in domain.UserInput, creating bool) error {
	switch {
	case in.Name == "":
		return &domain.ErrValidation{Field: "name", Message: "el nombre es obligatorio"}
	case in.Email == "":
		return &domain.ErrValidation{Field: "email", Message: "el email es obligatorio"}
	case !in.Role.Valid():
		return &domain.ErrValidation{Field: "role", Message: "rol inválido"}
	case creating && in.Password == "":
		return &domain.ErrValidation{Field: "password", Message: "la contraseña es obligatoria"}
	}
	return nil
}
