// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/vidshelf/internal/media"
	"github.com/carterperez-dev/vidshelf/internal/middleware"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

func catalog() store.Repository {
	thumb := "/uploads/thumbnails/thumb-v1.png"
	doc := model.NewDocument()
	doc.Users = []model.Account{
		{ID: "a1", Username: "root", Role: model.RoleAdmin},
		{ID: "u1", Username: "alice", Role: model.RoleUser},
	}
	doc.Categories = []string{"Vlogs"}
	doc.Tags = []string{"beach", "summer"}
	doc.Videos = []model.Video{
		{ID: "v1", Category: "Vlogs", UploadedBy: "alice", Size: 100, Thumbnail: &thumb, CreatedAt: time.Now()},
		{ID: "v2", Category: "Vlogs", UploadedBy: "root", Size: 50, CreatedAt: time.Now()},
		{ID: "v3", Category: "Vlogs", UploadedBy: "alice", Size: 70, CreatedAt: time.Now()},
	}
	doc.Videos[2].Trash(time.Now())
	return store.NewMemory(doc)
}

func serve(h *Handler, actor *model.Account, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actor != nil {
				req = req.WithContext(middleware.WithAccount(req.Context(), actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSystemStats(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Catalog:    catalog(),
		Thumbnails: func() media.QueueStats { return media.QueueStats{Workers: 2, Queued: 1, Capacity: 8} },
		RedisPing:  func(context.Context) error { return errors.New("down") },
	})

	rec := serve(h, &model.Account{ID: "a1", Role: model.RoleAdmin}, "/admin/stats")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	c := env.Data.Catalog
	assert.Equal(t, 2, c.Users)
	assert.Equal(t, 1, c.Admins)
	assert.Equal(t, 2, c.ActiveVideos)
	assert.Equal(t, 1, c.TrashedVideos)
	assert.Equal(t, 1, c.MissingThumbnails)
	assert.Equal(t, int64(150), c.StoredBytes)
	assert.Equal(t, 2, c.Tags)
	assert.Equal(t, map[string]int{"Vlogs": 2}, c.ByCategory)
	assert.Equal(t, map[string]int{"alice": 1, "root": 1}, c.ByUploader)

	require.NotNil(t, env.Data.Thumbnails)
	assert.Equal(t, 1, env.Data.Thumbnails.Queued)

	assert.Nil(t, env.Data.Database)
	require.NotNil(t, env.Data.Redis)
	assert.False(t, env.Data.Redis.Healthy)
	assert.Nil(t, env.Data.Redis.Pool)
	assert.NotEmpty(t, env.Data.Runtime.GoVersion)
}

func TestStatsRequireAdmin(t *testing.T) {
	h := NewHandler(HandlerConfig{Catalog: catalog()})

	rec := serve(h, nil, "/admin/stats")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, &model.Account{ID: "u1", Role: model.RoleUser}, "/admin/stats/catalog")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
