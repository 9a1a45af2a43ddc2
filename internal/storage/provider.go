// AngelaMos | 2026
// provider.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/carterperez-dev/vidshelf/internal/config"
)

var ErrInvalidKey = errors.New("invalid storage key")

// Provider stores opaque binaries by key. Put returns the public URL the
// client uses to fetch the object.
type Provider interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

func New(cfg config.StorageConfig) (Provider, error) {
	switch cfg.Driver {
	case "local":
		return NewLocal(cfg.UploadsDir, cfg.PublicPath)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// VideoKey builds a unique key for an uploaded file, keeping a sanitized
// form of the original name for readability. The video id prefix keeps
// same-name uploads within one millisecond apart.
func VideoKey(videoID, originalName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "video"
	}
	if len(base) > 120 {
		base = base[len(base)-120:]
	}
	short := videoID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), short, base)
}

func ThumbnailKey(videoID string) string {
	return "thumbnails/thumb-" + videoID + ".png"
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key, nil
}
