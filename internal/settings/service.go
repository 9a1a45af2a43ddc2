// AngelaMos | 2026
// service.go

package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/carterperez-dev/vidshelf/internal/access"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

var tracer = otel.Tracer("github.com/carterperez-dev/vidshelf/internal/settings")

// Patch carries the fields an admin wants to change. Nil means keep.
type Patch struct {
	RequireSSOAuthentication *bool
	LogoutRedirectURL        *string
	AppTitle                 *string
	MaxUploadSizeMB          *int
	DefaultCategory          *string
}

type Service struct {
	repo   store.Repository
	logger *slog.Logger
}

func NewService(repo store.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context) (model.Settings, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return *doc.Settings, nil
}

func (s *Service) GetForActor(
	ctx context.Context,
	actor *model.Account,
) (model.Settings, error) {
	if err := access.Check(access.SettingsRead, actor, access.Target{}); err != nil {
		return model.Settings{}, err
	}
	return s.Get(ctx)
}

func (s *Service) Update(
	ctx context.Context,
	actor *model.Account,
	p Patch,
) (result model.Settings, err error) {
	ctx, span := tracer.Start(ctx, "settings.Update")
	defer func() {
		core.EndSpan(span, err)
		metrics.RecordOperation(string(access.SettingsUpdate), err)
	}()

	if err = access.Check(access.SettingsUpdate, actor, access.Target{}); err != nil {
		return model.Settings{}, err
	}

	if p.MaxUploadSizeMB != nil && *p.MaxUploadSizeMB <= 0 {
		return model.Settings{}, fmt.Errorf(
			"update settings: maxUploadSizeMB must be positive: %w",
			core.ErrInvalidInput,
		)
	}
	if p.DefaultCategory != nil && strings.TrimSpace(*p.DefaultCategory) == "" {
		return model.Settings{}, fmt.Errorf(
			"update settings: defaultCategory must not be blank: %w",
			core.ErrInvalidInput,
		)
	}

	err = s.repo.Update(ctx, func(doc *model.Document) error {
		cur := doc.Settings
		if p.RequireSSOAuthentication != nil {
			cur.RequireSSOAuthentication = *p.RequireSSOAuthentication
		}
		if p.LogoutRedirectURL != nil {
			cur.LogoutRedirectURL = strings.TrimSpace(*p.LogoutRedirectURL)
		}
		if p.AppTitle != nil {
			cur.AppTitle = strings.TrimSpace(*p.AppTitle)
		}
		if p.MaxUploadSizeMB != nil {
			cur.MaxUploadSizeMB = *p.MaxUploadSizeMB
		}
		if p.DefaultCategory != nil {
			cur.DefaultCategory = strings.TrimSpace(*p.DefaultCategory)
		}
		cur.Normalize()
		result = *cur
		return nil
	})
	if err != nil {
		return model.Settings{}, err
	}

	s.logger.InfoContext(ctx, "settings updated",
		"by", actor.Username,
		"require_sso", result.RequireSSOAuthentication,
		"max_upload_mb", result.MaxUploadSizeMB,
	)

	return result, nil
}

// MaxUploadBytes reports the current upload cap. A failed load falls
// back to the built-in default rather than lifting the limit.
func (s *Service) MaxUploadBytes(ctx context.Context) int64 {
	current, err := s.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "upload limit lookup failed", "error", err)
		return int64(model.DefaultMaxUploadSizeMB) << 20
	}
	return current.MaxUploadBytes()
}

