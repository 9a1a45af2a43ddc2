// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

// Repository reads and writes the account records of the catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context, params ListUsersParams) ([]model.Account, int, error)
	Update(ctx context.Context, id string, fn func(a *model.Account) error) (*model.Account, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	store store.Repository
}

func NewRepository(s store.Repository) Repository {
	return &repository{store: s}
}

func (r *repository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	a := doc.FindAccount(id)
	if a == nil {
		return nil, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]model.Account, int, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(params.Search))
	matched := make([]model.Account, 0, len(doc.Users))
	for _, a := range doc.Users {
		if params.Role != "" && a.Role != params.Role {
			continue
		}
		if search != "" && !matchesSearch(&a, search) {
			continue
		}
		matched = append(matched, a)
	}

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)

	return matched[start:end], total, nil
}

func (r *repository) Update(
	ctx context.Context,
	id string,
	fn func(a *model.Account) error,
) (*model.Account, error) {
	var updated model.Account

	err := r.store.Update(ctx, func(doc *model.Document) error {
		a := doc.FindAccount(id)
		if a == nil {
			return fmt.Errorf("user %s: %w", id, core.ErrNotFound)
		}
		if err := fn(a); err != nil {
			return err
		}
		updated = *a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.store.Update(ctx, func(doc *model.Document) error {
		idx := doc.AccountIndex(id)
		if idx == -1 {
			return fmt.Errorf("user %s: %w", id, core.ErrNotFound)
		}
		doc.Users = append(doc.Users[:idx], doc.Users[idx+1:]...)
		return nil
	})
}

func matchesSearch(a *model.Account, search string) bool {
	for _, field := range []string{a.Email, a.Username, a.Name, a.DisplayName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
