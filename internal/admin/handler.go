// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/vidshelf/internal/access"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/media"
	"github.com/carterperez-dev/vidshelf/internal/middleware"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

// HandlerConfig wires the backing services. Everything except Catalog is
// optional and left out of the report when nil.
type HandlerConfig struct {
	Catalog    store.Repository
	Thumbnails func() media.QueueStats
	DBStats    func() sql.DBStats
	DBPing     func(ctx context.Context) error
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
}

type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(requireStats)

		r.Get("/", h.Overview)
		r.Get("/catalog", h.Catalog)
		r.Get("/db", h.Database)
		r.Get("/redis", h.Redis)
		r.Get("/runtime", h.Runtime)
	})
}

func requireStats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.GetAccount(r.Context())
		if err := access.Check(access.StatsRead, actor, access.Target{}); err != nil {
			core.HandleError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Overview reports the catalog together with every configured backend.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalog, err := collectCatalog(ctx, h.cfg.Catalog)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	resp := SystemStatsResponse{
		Catalog: catalog,
		Runtime: collectRuntime(),
	}
	if h.cfg.Thumbnails != nil {
		q := h.cfg.Thumbnails()
		resp.Thumbnails = &q
	}
	if h.cfg.DBPing != nil {
		resp.Database = &BackendStatus[DBPoolStats]{
			Healthy: h.cfg.DBPing(ctx) == nil,
			Pool:    h.dbPool(),
		}
	}
	if h.cfg.RedisPing != nil {
		resp.Redis = &BackendStatus[RedisPoolStats]{
			Healthy: h.cfg.RedisPing(ctx) == nil,
			Pool:    h.redisPool(),
		}
	}

	core.OK(w, resp)
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := collectCatalog(r.Context(), h.cfg.Catalog)
	if err != nil {
		core.HandleError(w, err)
		return
	}
	core.OK(w, catalog)
}

func (h *Handler) Database(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.dbPool())
}

func (h *Handler) Redis(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.redisPool())
}

func (h *Handler) Runtime(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, collectRuntime())
}

func (h *Handler) dbPool() *DBPoolStats {
	if h.cfg.DBStats == nil {
		return nil
	}
	return newDBPoolStats(h.cfg.DBStats())
}

func (h *Handler) redisPool() *RedisPoolStats {
	if h.cfg.RedisStats == nil {
		return nil
	}
	return newRedisPoolStats(h.cfg.RedisStats())
}
