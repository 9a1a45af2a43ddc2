// AngelaMos | 2026
// resolver.go

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

const (
	DevAccountID   = "dev"
	devAccountName = "Dev User"
)

type Options struct {
	// DevFallback allows a synthetic admin when no assertion is present.
	// Settings requireSsoAuthentication still overrides it at runtime.
	DevFallback      bool
	DevFallbackEmail string
	Logger           *slog.Logger
}

// Resolver turns assertions into accounts, provisioning unseen emails.
// The first account ever provisioned becomes the admin.
type Resolver struct {
	repo      store.Repository
	extractor *Extractor
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func NewResolver(repo store.Repository, extractor *Extractor, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DevFallbackEmail == "" {
		opts.DevFallbackEmail = "dev@example.com"
	}

	return &Resolver{
		repo:      repo,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Resolver) ResolveRequest(req *http.Request) (*model.Account, error) {
	return r.Resolve(req.Context(), r.extractor.Extract(req))
}

func (r *Resolver) Resolve(ctx context.Context, a Assertion) (*model.Account, error) {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if email == "" {
		return r.fallback(ctx)
	}

	doc, err := r.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if existing := doc.FindAccountByEmail(email); existing != nil {
		if a.Name == "" || existing.Name == a.Name {
			return existing, nil
		}
	}

	var account model.Account
	created := false

	err = r.repo.Update(ctx, func(doc *model.Document) error {
		if existing := doc.FindAccountByEmail(email); existing != nil {
			if a.Name != "" && existing.Name != a.Name {
				existing.Name = a.Name
			}
			account = *existing
			return nil
		}

		role := model.RoleUser
		if len(doc.Users) == 0 {
			role = model.RoleAdmin
		}

		account = model.Account{
			ID:        uuid.New().String(),
			Email:     email,
			Username:  uniqueUsername(doc, localPart(email)),
			Name:      a.Name,
			Role:      role,
			CreatedAt: r.now().UTC(),
		}
		doc.Users = append(doc.Users, account)
		created = true
		return nil
	})
	metrics.RecordOperation("account.resolve", err)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	if created {
		r.logger.Info("account provisioned",
			"user_id", account.ID,
			"username", account.Username,
			"role", account.Role,
		)
	}

	return &account, nil
}

func (r *Resolver) fallback(ctx context.Context) (*model.Account, error) {
	if !r.opts.DevFallback {
		return nil, fmt.Errorf("no identity assertion: %w", core.ErrUnauthorized)
	}

	doc, err := r.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if doc.Settings.RequireSSOAuthentication {
		return nil, fmt.Errorf("no identity assertion: %w", core.ErrUnauthorized)
	}

	return &model.Account{
		ID:       DevAccountID,
		Email:    r.opts.DevFallbackEmail,
		Username: localPart(r.opts.DevFallbackEmail),
		Name:     devAccountName,
		Role:     model.RoleAdmin,
	}, nil
}

func localPart(email string) string {
	if at := strings.LastIndex(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// uniqueUsername appends -2, -3, ... when base is already taken by an
// account with a different email domain.
func uniqueUsername(doc *model.Document, base string) string {
	if !doc.HasUsername(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !doc.HasUsername(candidate) {
			return candidate
		}
	}
}
