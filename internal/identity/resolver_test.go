// AngelaMos | 2026
// resolver_test.go

package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/vidshelf/internal/config"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{
		EmailHeader: "Cf-Access-Authenticated-User-Email",
		TokenCookie: "CF_Authorization",
		TokenHeader: "Cf-Access-Jwt-Assertion",
	}
}

func newResolver(repo store.Repository, devFallback bool) *Resolver {
	extractor := NewExtractor(testIdentityConfig(), nil, quietLogger())
	return NewResolver(repo, extractor, Options{
		DevFallback: devFallback,
		Logger:      quietLogger(),
	})
}

func TestFirstAccountIsAdmin(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory(nil)
	r := newResolver(repo, false)

	first, err := r.Resolve(ctx, Assertion{Email: "owner@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, first.Role)
	assert.Equal(t, "owner", first.Username)

	second, err := r.Resolve(ctx, Assertion{Email: "guest@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, second.Role)

	again, err := r.Resolve(ctx, Assertion{Email: "OWNER@example.com "})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Users, 2)
}

func TestNameHintSync(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory(nil)
	r := newResolver(repo, false)

	a, err := r.Resolve(ctx, Assertion{Email: "jo@example.com", Name: "Jo"})
	require.NoError(t, err)
	assert.Equal(t, "Jo", a.Name)

	a, err = r.Resolve(ctx, Assertion{Email: "jo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Jo", a.Name, "a missing hint keeps the stored name")

	a, err = r.Resolve(ctx, Assertion{Email: "jo@example.com", Name: "Joanna"})
	require.NoError(t, err)
	assert.Equal(t, "Joanna", a.Name)

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Joanna", doc.FindAccountByEmail("jo@example.com").Name)
}

func TestUsernameCollision(t *testing.T) {
	ctx := context.Background()
	r := newResolver(store.NewMemory(nil), false)

	a, err := r.Resolve(ctx, Assertion{Email: "sam@one.example"})
	require.NoError(t, err)
	b, err := r.Resolve(ctx, Assertion{Email: "sam@two.example"})
	require.NoError(t, err)
	c, err := r.Resolve(ctx, Assertion{Email: "sam@three.example"})
	require.NoError(t, err)

	assert.Equal(t, "sam", a.Username)
	assert.Equal(t, "sam-2", b.Username)
	assert.Equal(t, "sam-3", c.Username)
}

func TestMissingAssertion(t *testing.T) {
	ctx := context.Background()

	_, err := newResolver(store.NewMemory(nil), false).Resolve(ctx, Assertion{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	repo := store.NewMemory(nil)
	dev, err := newResolver(repo, true).Resolve(ctx, Assertion{})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, dev.Role)
	assert.Equal(t, "dev@example.com", dev.Email)

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Users, "the development account is never stored")

	require.NoError(t, repo.Update(ctx, func(doc *model.Document) error {
		doc.Settings.RequireSSOAuthentication = true
		return nil
	}))
	_, err = newResolver(repo, true).Resolve(ctx, Assertion{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestResolveRequestFromHeader(t *testing.T) {
	repo := store.NewMemory(nil)
	r := newResolver(repo, false)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Cf-Access-Authenticated-User-Email", "owner@example.com")

	account, err := r.ResolveRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", account.Email)
}
