// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Storage   StorageConfig   `koanf:"storage"`
	Media     MediaConfig     `koanf:"media"`
	Identity  IdentityConfig  `koanf:"identity"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// StoreConfig selects the catalog backend: memory, file or postgres.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// StorageConfig selects where uploaded binaries live: local or s3.
type StorageConfig struct {
	Driver     string   `koanf:"driver"`
	UploadsDir string   `koanf:"uploads_dir"`
	PublicPath string   `koanf:"public_path"`
	S3         S3Config `koanf:"s3"`
}

type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	PublicBaseURL   string `koanf:"public_base_url"`
	ForcePathStyle  bool   `koanf:"force_path_style"`
}

type MediaConfig struct {
	FFmpegPath    string        `koanf:"ffmpeg_path"`
	FFprobePath   string        `koanf:"ffprobe_path"`
	Workers       int           `koanf:"workers"`
	QueueSize     int           `koanf:"queue_size"`
	JobTimeout    time.Duration `koanf:"job_timeout"`
	ThumbnailWait time.Duration `koanf:"thumbnail_wait"`
	Width         int           `koanf:"width"`
	Height        int           `koanf:"height"`
	Position      float64       `koanf:"position"`
}

// IdentityConfig describes the upstream access proxy. The proxy is
// trusted to have validated the identity token unless VerifyToken is set.
type IdentityConfig struct {
	EmailHeader      string        `koanf:"email_header"`
	TokenCookie      string        `koanf:"token_cookie"`
	TokenHeader      string        `koanf:"token_header"`
	VerifyToken      bool          `koanf:"verify_token"`
	JWKSURL          string        `koanf:"jwks_url"`
	JWKSRefresh      time.Duration `koanf:"jwks_refresh"`
	Audience         string        `koanf:"audience"`
	DevFallback      bool          `koanf:"dev_fallback"`
	DevFallbackEmail string        `koanf:"dev_fallback_email"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
	// UploadsPerHour caps uploads per account; 0 disables the cap.
	UploadsPerHour int `koanf:"uploads_per_hour"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" && fileExists(configPath) {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "vidshelf",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             5000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "10m",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.max_body_bytes":   1 << 20,

		"store.driver": "file",
		"store.path":   "./db.json",

		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.connect_timeout":    "1m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"storage.driver":      "local",
		"storage.uploads_dir": "./uploads",
		"storage.public_path": "/uploads",
		"storage.s3.region":   "us-east-1",

		"media.ffmpeg_path":    "ffmpeg",
		"media.ffprobe_path":   "ffprobe",
		"media.workers":        2,
		"media.queue_size":     32,
		"media.job_timeout":    "2m",
		"media.thumbnail_wait": "15s",
		"media.width":          320,
		"media.height":         180,
		"media.position":       0.2,

		"identity.email_header":       "Cf-Access-Authenticated-User-Email",
		"identity.token_cookie":       "CF_Authorization",
		"identity.token_header":       "Cf-Access-Jwt-Assertion",
		"identity.verify_token":       false,
		"identity.jwks_refresh":       "1h",
		"identity.dev_fallback":       true,
		"identity.dev_fallback_email": "dev@example.com",

		"rate_limit.requests": 300,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    50,

		"rate_limit.uploads_per_hour": 60,

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "vidshelf",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"ENVIRONMENT":                 "app.environment",
	"NODE_ENV":                    "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"STORE_DRIVER":                "store.driver",
	"DB_PATH":                     "store.path",
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"STORAGE_DRIVER":              "storage.driver",
	"UPLOADS_DIR":                 "storage.uploads_dir",
	"S3_BUCKET":                   "storage.s3.bucket",
	"S3_REGION":                   "storage.s3.region",
	"S3_ENDPOINT":                 "storage.s3.endpoint",
	"S3_ACCESS_KEY_ID":            "storage.s3.access_key_id",
	"S3_SECRET_ACCESS_KEY":        "storage.s3.secret_access_key",
	"S3_PUBLIC_BASE_URL":          "storage.s3.public_base_url",
	"FFMPEG_PATH":                 "media.ffmpeg_path",
	"FFPROBE_PATH":                "media.ffprobe_path",
	"CF_VERIFY_TOKEN":             "identity.verify_token",
	"CF_JWKS_URL":                 "identity.jwks_url",
	"CF_AUDIENCE":                 "identity.audience",
	"DEV_FALLBACK":                "identity.dev_fallback",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_UPLOADS":          "rate_limit.uploads_per_hour",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	switch c.Store.Driver {
	case "memory":
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file store")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.UploadsDir == "" {
			return fmt.Errorf("UPLOADS_DIR is required for local storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Identity.EmailHeader == "" {
		return fmt.Errorf("identity.email_header is required")
	}

	if c.Identity.VerifyToken {
		if c.Identity.JWKSURL == "" {
			return fmt.Errorf("CF_JWKS_URL is required when token verification is on")
		}
		if c.Identity.Audience == "" {
			return fmt.Errorf("CF_AUDIENCE is required when token verification is on")
		}
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.IsProduction() {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
	}

	if c.Media.Workers < 1 {
		return fmt.Errorf("media.workers must be at least 1")
	}

	if c.Media.Position <= 0 || c.Media.Position >= 1 {
		return fmt.Errorf("media.position must be between 0 and 1")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// DevFallbackEnabled reports whether requests without an identity
// assertion may fall back to the local development account. Runtime
// settings can still switch it off.
func (c *Config) DevFallbackEnabled() bool {
	return c.Identity.DevFallback && !c.IsProduction()
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
