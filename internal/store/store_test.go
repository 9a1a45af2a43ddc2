// AngelaMos | 2026
// store_test.go

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/vidshelf/internal/model"
)

func TestMemoryUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(nil)

	boom := errors.New("boom")
	err := repo.Update(ctx, func(doc *model.Document) error {
		doc.Categories = append(doc.Categories, "Vlogs")
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Categories)
}

func TestMemoryLoadReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(nil)

	require.NoError(t, repo.Update(ctx, func(doc *model.Document) error {
		doc.Videos = append(doc.Videos, model.Video{ID: "v1", Tags: []string{"a"}})
		return nil
	}))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	snap.Videos[0].Tags[0] = "mutated"
	snap.Categories = append(snap.Categories, "leak")

	fresh, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fresh.Videos[0].Tags)
	assert.Empty(t, fresh.Categories)
}

func TestMemoryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Update(ctx, func(doc *model.Document) error {
				doc.Tags = append(doc.Tags, "t")
				return nil
			}))
		}()
	}
	wg.Wait()

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Tags, 50)
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "db.json")

	repo, err := NewFile(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Update(ctx, func(doc *model.Document) error {
		doc.Users = append(doc.Users, model.Account{
			ID: "u1", Email: "a@example.com", Username: "a",
			Role: model.RoleAdmin, CreatedAt: created,
		})
		doc.Videos = append(doc.Videos, model.Video{
			ID: "v1", Title: "Clip", Category: "Vlogs",
			Tags: []string{"x"}, UploadedBy: "a", CreatedAt: created,
		})
		doc.Categories = append(doc.Categories, "Vlogs")
		return nil
	}))

	reopened, err := NewFile(path)
	require.NoError(t, err)

	doc, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "a@example.com", doc.Users[0].Email)
	assert.True(t, doc.Users[0].CreatedAt.Equal(created))
	require.Len(t, doc.Videos, 1)
	assert.Equal(t, []string{"x"}, doc.Videos[0].Tags)
	assert.Nil(t, doc.Videos[0].Thumbnail)
	assert.Equal(t, []string{"Vlogs"}, doc.Categories)
	assert.NoError(t, reopened.Ping(ctx))
}

func TestFileToleratesMissingCollections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"videos": [{"id": "v1", "title": "old", "deleted": true}],
		"settings": {"enableDevMock": false, "logoutUrl": "https://sso/logout"}
	}`), 0o600))

	repo, err := NewFile(path)
	require.NoError(t, err)

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doc.Users)
	assert.NotNil(t, doc.Categories)
	assert.NotNil(t, doc.Tags)
	require.Len(t, doc.Videos, 1)
	assert.NotNil(t, doc.Videos[0].Tags)
	assert.NotNil(t, doc.Videos[0].DeletedAt, "trashed videos always carry a deletion time")

	assert.True(t, doc.Settings.RequireSSOAuthentication)
	assert.Equal(t, "https://sso/logout", doc.Settings.LogoutRedirectURL)
	assert.Equal(t, model.DefaultMaxUploadSizeMB, doc.Settings.MaxUploadSizeMB)
}

func TestFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestFileFailedWriteKeepsCommittedState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	repo, err := NewFile(path)
	require.NoError(t, err)

	repo.persist = func(context.Context, *model.Document) error {
		return errors.New("disk full")
	}

	err = repo.Update(ctx, func(doc *model.Document) error {
		doc.Tags = append(doc.Tags, "lost")
		return nil
	})
	require.Error(t, err)

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Tags)
}
