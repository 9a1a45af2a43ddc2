// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/vidshelf/internal/access"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/model"
)

var tracer = otel.Tracer("github.com/carterperez-dev/vidshelf/internal/user")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListUsers(
	ctx context.Context,
	actor *model.Account,
	params ListUsersParams,
) ([]model.Account, int, error) {
	if err := access.Check(access.UserList, actor, access.Target{}); err != nil {
		return nil, 0, err
	}

	params.Normalize()
	return s.repo.List(ctx, params)
}

// GetUser lets an account read itself; anyone else needs admin.
func (s *Service) GetUser(
	ctx context.Context,
	actor *model.Account,
	id string,
) (*model.Account, error) {
	if actor == nil || actor.ID != id {
		if err := access.Check(access.UserList, actor, access.Target{AccountID: id}); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	actor *model.Account,
	id, role string,
) (u *model.Account, err error) {
	ctx, span := s.start(ctx, "user.UpdateRole", id)
	defer func() { s.finish(span, "user.role", err) }()

	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if err = access.Check(access.UserRole, actor, access.Target{AccountID: id}); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, func(a *model.Account) error {
		a.Role = role
		return nil
	})
}

func (s *Service) DeleteUser(
	ctx context.Context,
	actor *model.Account,
	id string,
) (err error) {
	ctx, span := s.start(ctx, "user.Delete", id)
	defer func() { s.finish(span, "user.delete", err) }()

	if err = access.Check(access.UserDelete, actor, access.Target{AccountID: id}); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

// UpdateProfile sets the display name; an empty name clears it.
func (s *Service) UpdateProfile(
	ctx context.Context,
	actor *model.Account,
	id string,
	req UpdateProfileRequest,
) (u *model.Account, err error) {
	ctx, span := s.start(ctx, "user.UpdateProfile", id)
	defer func() { s.finish(span, "user.profile", err) }()

	if err = access.Check(access.ProfileUpdate, actor, access.Target{AccountID: id}); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, func(a *model.Account) error {
		if req.DisplayName != nil {
			a.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		return nil
	})
}

func (s *Service) start(ctx context.Context, name, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user.id", id)))
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	core.EndSpan(span, err)
	metrics.RecordOperation(operation, err)
}
