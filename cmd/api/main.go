// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	redis_rate "github.com/go-redis/redis_rate/v10"
	goredis "github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/vidshelf/internal/admin"
	"github.com/carterperez-dev/vidshelf/internal/config"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/health"
	"github.com/carterperez-dev/vidshelf/internal/identity"
	"github.com/carterperez-dev/vidshelf/internal/media"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/middleware"
	"github.com/carterperez-dev/vidshelf/internal/server"
	"github.com/carterperez-dev/vidshelf/internal/settings"
	"github.com/carterperez-dev/vidshelf/internal/storage"
	"github.com/carterperez-dev/vidshelf/internal/store"
	"github.com/carterperez-dev/vidshelf/internal/taxonomy"
	"github.com/carterperez-dev/vidshelf/internal/user"
	"github.com/carterperez-dev/vidshelf/internal/video"
)

const (
	drainDelay = 5 * time.Second
	uploadPath = "/api/upload"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		telemetry, err = core.NewTelemetry(ctx, cfg)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			logger.Info("exporting traces",
				"endpoint", cfg.Otel.Endpoint,
				"sample_rate", cfg.Otel.SampleRate,
			)
		}
	}

	catalog, db, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("catalog store ready", "driver", cfg.Store.Driver)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logger.Warn("redis unavailable, rate limiting per instance",
			"error", err,
		)
	case redis != nil:
		logger.Info("redis connected",
			"addr", redis.Addr(),
			"pool_size", cfg.Redis.PoolSize,
		)
	}
	redisClient := redis.Limiter()

	provider, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("binary storage ready", "driver", cfg.Storage.Driver)

	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()

	thumbnails := media.NewPool(
		cfg.Media,
		media.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath),
		provider,
		logger,
	)
	thumbnails.Start(poolCtx)

	taxonomySvc := taxonomy.NewService(catalog)
	taxonomyHandler := taxonomy.NewHandler(taxonomySvc)

	videoSvc := video.NewService(catalog, taxonomySvc, provider, video.Options{
		Thumbnailer:   thumbnails,
		ThumbnailWait: cfg.Media.ThumbnailWait,
		Logger:        logger,
	})
	videoHandler := video.NewHandler(videoSvc)

	var decoder identity.TokenDecoder
	if cfg.Identity.VerifyToken {
		decoder = identity.NewVerifier(
			identity.NewRemoteKeys(cfg.Identity.JWKSURL, cfg.Identity.JWKSRefresh),
			cfg.Identity.Audience,
		)
		logger.Info("identity token verification enabled",
			"jwks_url", cfg.Identity.JWKSURL,
		)
	}

	resolver := identity.NewResolver(
		catalog,
		identity.NewExtractor(cfg.Identity, decoder, logger),
		identity.Options{
			DevFallback:      cfg.DevFallbackEnabled(),
			DevFallbackEmail: cfg.Identity.DevFallbackEmail,
			Logger:           logger,
		},
	)
	if cfg.DevFallbackEnabled() {
		logger.Warn("development identity fallback enabled",
			"email", cfg.Identity.DevFallbackEmail,
		)
	}
	identityHandler := identity.NewHandler(
		catalog,
		cfg.Identity.TokenCookie,
		cfg.IsProduction(),
	)

	userSvc := user.NewService(user.NewRepository(catalog))
	userHandler := user.NewHandler(userSvc)

	settingsSvc := settings.NewService(catalog, logger)
	settingsHandler := settings.NewHandler(settingsSvc)

	healthDeps := []health.Dependency{{Name: "catalog", Checker: catalog}}
	adminCfg := admin.HandlerConfig{
		Catalog:    catalog,
		Thumbnails: thumbnails.Stats,
	}
	if db != nil {
		healthDeps = append(healthDeps, health.Dependency{Name: "database", Checker: db})
		adminCfg.DBStats = db.Stats
		adminCfg.DBPing = db.Ping
	}
	if redis != nil {
		healthDeps = append(healthDeps, health.Dependency{
			Name:     "redis",
			Checker:  redis,
			Optional: true,
		})
		adminCfg.RedisStats = redis.PoolStats
		adminCfg.RedisPing = redis.Ping
	}
	if s3, ok := provider.(*storage.S3); ok {
		healthDeps = append(healthDeps, health.Dependency{Name: "storage", Checker: s3})
	}

	healthHandler := health.NewHandler(healthDeps...)
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(
		middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Limit: redis_rate.Limit{
				Rate:   cfg.RateLimit.Requests,
				Burst:  cfg.RateLimit.Burst,
				Period: cfg.RateLimit.Window,
			},
			FailOpen: true,
			Bypass: func(r *http.Request) bool {
				return strings.HasPrefix(r.URL.Path, "/uploads/")
			},
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())

	if local, ok := provider.(*storage.Local); ok {
		prefix := "/" + strings.Trim(cfg.Storage.PublicPath, "/")
		router.Handle(prefix+"/*", http.StripPrefix(
			prefix,
			http.FileServer(http.Dir(local.Root())),
		))
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.BodyLimitExcept(cfg.Server.MaxBodyBytes, uploadPath))

		settingsHandler.RegisterPublicRoutes(r)
		identityHandler.RegisterRoutes(r, middleware.Authenticator(resolver))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(resolver))

			videoHandler.RegisterRoutes(r, uploadGuard(
				redisClient,
				cfg.RateLimit,
				middleware.DynamicBodyLimit(settingsSvc.MaxUploadBytes),
			))
			taxonomyHandler.RegisterRoutes(r)
			userHandler.RegisterRoutes(r)
			settingsHandler.RegisterRoutes(r)
			adminHandler.RegisterRoutes(r)
		})
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	videoSvc.Wait()
	thumbnails.Stop()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := catalog.Close(); err != nil {
		logger.Error("catalog close error", "error", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

// uploadGuard applies the per-account upload cap ahead of the body limit.
func uploadGuard(
	rdb *goredis.Client,
	cfg config.RateLimitConfig,
	bodyLimit func(http.Handler) http.Handler,
) func(http.Handler) http.Handler {
	if cfg.UploadsPerHour <= 0 {
		return bodyLimit
	}

	limiter := middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
		Name:     "uploads",
		Limit:    middleware.PerHour(cfg.UploadsPerHour, cfg.UploadsPerHour),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: true,
	})

	return func(next http.Handler) http.Handler {
		return limiter.Handler(bodyLimit(next))
	}
}

// openCatalog builds the configured catalog backend. The database handle
// is returned only for the postgres driver.
func openCatalog(
	ctx context.Context,
	cfg *config.Config,
) (store.Repository, *core.Database, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(nil), nil, nil
	case "file":
		repo, err := store.NewFile(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case "postgres":
		db, err := core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo, err := store.NewPostgres(ctx, db.DB)
		if err != nil {
			return nil, nil, errors.Join(err, db.Close())
		}
		return repo, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
