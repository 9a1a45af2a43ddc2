// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, c.Server.Port)
	assert.Equal(t, "file", c.Store.Driver)
	assert.Equal(t, "./db.json", c.Store.Path)
	assert.Equal(t, "local", c.Storage.Driver)
	assert.Equal(t, 15*time.Second, c.Media.ThumbnailWait)
	assert.Equal(t, "Cf-Access-Authenticated-User-Email", c.Identity.EmailHeader)
	assert.True(t, c.DevFallbackEnabled())
	assert.Equal(t, "0.0.0.0:5000", c.Server.Address())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("UPLOADS_DIR", "/srv/videos")
	t.Setenv("NODE_ENV", "production")

	c, err := load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "memory", c.Store.Driver)
	assert.Equal(t, "/srv/videos", c.Storage.UploadsDir)
	assert.True(t, c.IsProduction())
	assert.False(t, c.DevFallbackEnabled(), "no dev fallback in production")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
media:
  workers: 4
  thumbnail_wait: 2s
`), 0o600))

	c, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Store.Driver)
	assert.Equal(t, 4, c.Media.Workers)
	assert.Equal(t, 2*time.Second, c.Media.ThumbnailWait)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file", c.Store.Driver)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"s3 without bucket", map[string]string{"STORAGE_DRIVER": "s3"}},
		{"verify without jwks", map[string]string{"CF_VERIFY_TOKEN": "true"}},
		{"zero rate window", map[string]string{"RATE_LIMIT_WINDOW": "0s"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := load("")
			assert.Error(t, err)
		})
	}
}
