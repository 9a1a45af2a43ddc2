// AngelaMos | 2026
// service_test.go

package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/media"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/storage"
	"github.com/carterperez-dev/vidshelf/internal/store"
	"github.com/carterperez-dev/vidshelf/internal/taxonomy"
)

var (
	admin = &model.Account{ID: "a1", Username: "root", Role: model.RoleAdmin}
	alice = &model.Account{ID: "u1", Username: "alice", Role: model.RoleUser}
	bob   = &model.Account{ID: "u2", Username: "bob", Role: model.RoleUser}
)

// fakeThumbs hands back a result channel per video that the test fills.
type fakeThumbs struct {
	mu      sync.Mutex
	results map[string]chan media.Result
	auto    *media.Result
}

func newFakeThumbs() *fakeThumbs {
	return &fakeThumbs{results: make(map[string]chan media.Result)}
}

func (f *fakeThumbs) Submit(videoID, _ string) <-chan media.Result {
	ch := make(chan media.Result, 1)
	f.mu.Lock()
	f.results[videoID] = ch
	auto := f.auto
	f.mu.Unlock()

	if auto != nil {
		res := *auto
		if res.Err == nil {
			res.Key = storage.ThumbnailKey(videoID)
			res.URL = "/uploads/" + res.Key
		}
		ch <- res
	}
	return ch
}

func (f *fakeThumbs) complete(videoID string, res media.Result) {
	f.mu.Lock()
	ch := f.results[videoID]
	f.mu.Unlock()
	ch <- res
}

type fixture struct {
	svc      *Service
	repo     store.Repository
	taxonomy *taxonomy.Service
	local    *storage.Local
	root     string
	thumbs   *fakeThumbs
}

func newFixture(t *testing.T, wait time.Duration) *fixture {
	t.Helper()

	root := t.TempDir()
	local, err := storage.NewLocal(root, "/uploads")
	require.NoError(t, err)

	repo := store.NewMemory(nil)
	tax := taxonomy.NewService(repo)
	thumbs := newFakeThumbs()

	svc := NewService(repo, tax, local, Options{
		Thumbnailer:   thumbs,
		ThumbnailWait: wait,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &fixture{svc: svc, repo: repo, taxonomy: tax, local: local, root: root, thumbs: thumbs}
}

func (f *fixture) upload(t *testing.T, actor *model.Account, category string, tags ...string) *model.Video {
	t.Helper()

	v, err := f.svc.Upload(context.Background(), actor, UploadInput{
		OriginalName: "clip.mp4",
		ContentType:  "video/mp4",
		Size:         5,
		Body:         strings.NewReader("video"),
		Category:     category,
		Tags:         tags,
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) exists(key string) bool {
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(key)))
	return err == nil
}

func TestUploadCreatesCategoryAndTags(t *testing.T) {
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("no ffmpeg")}

	v := f.upload(t, alice, "Vlogs", "travel", " travel", "", "food")

	assert.Equal(t, "Vlogs", v.Category)
	assert.Equal(t, "clip.mp4", v.Title)
	assert.Equal(t, "alice", v.UploadedBy)
	assert.Equal(t, []string{"travel", "food"}, v.Tags)
	assert.Nil(t, v.Thumbnail, "failed thumbnail leaves it absent")
	assert.False(t, v.IsTrashed())
	assert.True(t, f.exists(v.Filename))

	categories, err := f.taxonomy.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Vlogs"}, categories)

	tags, err := f.taxonomy.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "food"}, tags)
}

func TestUploadDefaultsCategory(t *testing.T) {
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("no ffmpeg")}

	v := f.upload(t, alice, "   ")
	assert.Equal(t, model.DefaultCategory, v.Category)
}

func TestUploadRequiresActor(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.svc.Upload(context.Background(), nil, UploadInput{
		OriginalName: "clip.mp4",
		Body:         strings.NewReader("video"),
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestUploadWithThumbnailInWindow(t *testing.T) {
	f := newFixture(t, time.Second)
	f.thumbs.auto = &media.Result{}

	v := f.upload(t, alice, "")
	require.NotNil(t, v.Thumbnail)
	assert.Equal(t, "/uploads/thumbnails/thumb-"+v.ID+".png", *v.Thumbnail)

	stored, err := f.svc.Get(context.Background(), alice, v.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ThumbnailFile)
	assert.Equal(t, storage.ThumbnailKey(v.ID), *stored.ThumbnailFile)
}

func TestDeferredThumbnail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10*time.Millisecond)

	v := f.upload(t, alice, "")
	assert.Nil(t, v.Thumbnail, "upload returns before the thumbnail is ready")

	key := storage.ThumbnailKey(v.ID)
	f.thumbs.complete(v.ID, media.Result{Key: key, URL: "/uploads/" + key})
	f.svc.Wait()

	stored, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Thumbnail)
	assert.Equal(t, "/uploads/"+key, *stored.Thumbnail)
}

func TestThumbnailAfterPurgeIsDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10*time.Millisecond)

	v := f.upload(t, alice, "")
	require.NoError(t, f.svc.Purge(ctx, admin, v.ID))

	key := storage.ThumbnailKey(v.ID)
	_, err := f.local.Put(ctx, key, strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	require.True(t, f.exists(key))

	f.thumbs.complete(v.ID, media.Result{Key: key, URL: "/uploads/" + key})
	f.svc.Wait()

	assert.False(t, f.exists(key), "orphaned thumbnail must be removed")

	doc, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Videos)
}

type failingRepo struct {
	store.Repository
}

func (failingRepo) Update(context.Context, func(*model.Document) error) error {
	return errors.New("disk full")
}

func TestUploadRemovesBinaryWhenRecordFails(t *testing.T) {
	root := t.TempDir()
	local, err := storage.NewLocal(root, "/uploads")
	require.NoError(t, err)

	repo := failingRepo{Repository: store.NewMemory(nil)}
	svc := NewService(repo, taxonomy.NewService(repo), local, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err = svc.Upload(context.Background(), alice, UploadInput{
		OriginalName: "clip.mp4",
		Body:         strings.NewReader("video"),
	})
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEditPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	v := f.upload(t, alice, "Vlogs")
	title := "Renamed"

	_, err := f.svc.Edit(ctx, bob, v.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, core.ErrForbidden)

	stored, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", stored.Title)

	edited, err := f.svc.Edit(ctx, alice, v.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", edited.Title)
	assert.Equal(t, "Vlogs", edited.Category, "unsupplied fields stay")

	category := "Music"
	edited, err = f.svc.Edit(ctx, admin, v.ID, Patch{Category: &category, Tags: []string{"live"}})
	require.NoError(t, err)
	assert.Equal(t, "Music", edited.Category)
	assert.Equal(t, []string{"live"}, edited.Tags)

	doc, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vlogs", "Music"}, doc.Categories)
	assert.Contains(t, doc.Tags, "live")

	_, err = f.svc.Edit(ctx, admin, "missing", Patch{Title: &title})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEditTrashedVideo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	v := f.upload(t, alice, "")
	require.NoError(t, f.svc.SoftDelete(ctx, admin, v.ID))

	title := "Still editable"
	edited, err := f.svc.Edit(ctx, admin, v.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, edited.Title)
	assert.True(t, edited.IsTrashed())
}

func TestTrashAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	v := f.upload(t, alice, "Vlogs", "a")
	before, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SoftDelete(ctx, alice, v.ID), core.ErrForbidden)

	require.NoError(t, f.svc.SoftDelete(ctx, admin, v.ID))
	trashed, err := f.svc.Get(ctx, admin, v.ID)
	require.NoError(t, err)
	assert.True(t, trashed.Deleted)
	require.NotNil(t, trashed.DeletedAt)
	firstDeletedAt := *trashed.DeletedAt

	require.NoError(t, f.svc.SoftDelete(ctx, admin, v.ID), "trashing twice is a no-op")
	trashed, err = f.svc.Get(ctx, admin, v.ID)
	require.NoError(t, err)
	assert.Equal(t, firstDeletedAt, *trashed.DeletedAt)

	_, err = f.svc.Get(ctx, alice, v.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "trash is hidden from non-admins")

	restored, err := f.svc.Restore(ctx, admin, v.ID)
	require.NoError(t, err)
	assert.Equal(t, before, restored)

	_, err = f.svc.Restore(ctx, admin, v.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	_, err = f.svc.Restore(ctx, admin, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Second)
	f.thumbs.auto = &media.Result{}

	v := f.upload(t, alice, "")
	thumbKey := storage.ThumbnailKey(v.ID)
	_, err := f.local.Put(ctx, thumbKey, strings.NewReader("png"), "image/png")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Purge(ctx, alice, v.ID), core.ErrForbidden)

	require.NoError(t, f.svc.Purge(ctx, admin, v.ID), "active videos can be purged")
	assert.False(t, f.exists(v.Filename))
	assert.False(t, f.exists(thumbKey))

	for _, state := range []State{StateActive, StateTrashed} {
		videos, err := f.svc.List(ctx, admin, Filter{State: state})
		require.NoError(t, err)
		assert.Empty(t, videos)
	}

	assert.ErrorIs(t, f.svc.Purge(ctx, admin, v.ID), core.ErrNotFound)
}

func TestPurgeSurvivesMissingBinary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	v := f.upload(t, alice, "")
	require.NoError(t, f.local.Delete(ctx, v.Filename))
	require.NoError(t, f.svc.SoftDelete(ctx, admin, v.ID))

	assert.NoError(t, f.svc.Purge(ctx, admin, v.ID))
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	v1 := f.upload(t, alice, "Vlogs", "a", "b")
	v2 := f.upload(t, bob, "Vlogs", "b")
	v3 := f.upload(t, bob, "Music")
	require.NoError(t, f.svc.SoftDelete(ctx, admin, v3.ID))

	ids := func(videos []model.Video) []string {
		out := make([]string, 0, len(videos))
		for _, v := range videos {
			out = append(out, v.ID)
		}
		return out
	}

	active, err := f.svc.List(ctx, nil, Filter{State: StateActive})
	require.NoError(t, err)
	assert.Equal(t, []string{v1.ID, v2.ID}, ids(active))

	byTag, err := f.svc.List(ctx, nil, Filter{State: StateActive, Tag: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{v1.ID}, ids(byTag))

	byUploader, err := f.svc.List(ctx, nil, Filter{State: StateActive, Uploader: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{v2.ID}, ids(byUploader))

	byCategory, err := f.svc.List(ctx, nil, Filter{State: StateActive, Category: "Music"})
	require.NoError(t, err)
	assert.Empty(t, byCategory)

	trash, err := f.svc.List(ctx, admin, Filter{State: StateTrashed})
	require.NoError(t, err)
	assert.Equal(t, []string{v3.ID}, ids(trash))

	_, err = f.svc.List(ctx, alice, Filter{State: StateTrashed})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRenameScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	v := f.upload(t, alice, "Vlogs")

	categories, err := f.taxonomy.RenameCategory(ctx, admin, "Vlogs", "Vlog")
	require.NoError(t, err)
	assert.NotContains(t, categories, "Vlogs")

	stored, err := f.svc.Get(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vlog", stored.Category)
}

func TestConcurrentUploadsDuringRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.thumbs.auto = &media.Result{Err: errors.New("skip")}

	_, err := f.taxonomy.AddCategory(ctx, admin, "Vlogs")
	require.NoError(t, err)

	const uploads = 20
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Upload(ctx, alice, UploadInput{
				OriginalName: fmt.Sprintf("clip-%d.mp4", i),
				Body:         strings.NewReader("video"),
				Category:     "Vlogs",
			})
			assert.NoError(t, err)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.taxonomy.RenameCategory(ctx, admin, "Vlogs", "Vlog")
		assert.NoError(t, err)
	}()
	wg.Wait()

	doc, err := f.repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Videos, uploads)

	for _, v := range doc.Videos {
		assert.Contains(t, doc.Categories, v.Category,
			"every video category must be in the taxonomy")
	}
}
