// AngelaMos | 2026
// stats.go

package admin

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/vidshelf/internal/media"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

type SystemStatsResponse struct {
	Catalog    CatalogStats                   `json:"catalog"`
	Thumbnails *media.QueueStats              `json:"thumbnails,omitempty"`
	Database   *BackendStatus[DBPoolStats]    `json:"database,omitempty"`
	Redis      *BackendStatus[RedisPoolStats] `json:"redis,omitempty"`
	Runtime    RuntimeStats                   `json:"runtime"`
}

type BackendStatus[P any] struct {
	Healthy bool `json:"healthy"`
	Pool    *P   `json:"pool,omitempty"`
}

// CatalogStats counts trashed videos separately; the per-category and
// per-uploader breakdowns and StoredBytes cover active videos only.
type CatalogStats struct {
	Users             int            `json:"users"`
	Admins            int            `json:"admins"`
	ActiveVideos      int            `json:"activeVideos"`
	TrashedVideos     int            `json:"trashedVideos"`
	MissingThumbnails int            `json:"missingThumbnails"`
	StoredBytes       int64          `json:"storedBytes"`
	Categories        int            `json:"categories"`
	Tags              int            `json:"tags"`
	ByCategory        map[string]int `json:"byCategory"`
	ByUploader        map[string]int `json:"byUploader"`
}

func collectCatalog(ctx context.Context, repo store.Repository) (CatalogStats, error) {
	doc, err := repo.Load(ctx)
	if err != nil {
		return CatalogStats{}, fmt.Errorf("load catalog for stats: %w", err)
	}

	stats := CatalogStats{
		Users:      len(doc.Users),
		Categories: len(doc.Categories),
		Tags:       len(doc.Tags),
		ByCategory: make(map[string]int, len(doc.Categories)),
		ByUploader: make(map[string]int),
	}

	for i := range doc.Users {
		if doc.Users[i].Role == model.RoleAdmin {
			stats.Admins++
		}
	}

	for i := range doc.Videos {
		v := &doc.Videos[i]
		if v.IsTrashed() {
			stats.TrashedVideos++
			continue
		}

		stats.ActiveVideos++
		stats.StoredBytes += v.Size
		stats.ByCategory[v.Category]++
		stats.ByUploader[v.UploadedBy]++
		if v.Thumbnail == nil {
			stats.MissingThumbnails++
		}
	}

	return stats, nil
}

type RuntimeStats struct {
	GoVersion  string `json:"goVersion"`
	Goroutines int    `json:"goroutines"`
	CPUs       int    `json:"cpus"`
	HeapBytes  uint64 `json:"heapBytes"`
	SysBytes   uint64 `json:"sysBytes"`
	GCCycles   uint32 `json:"gcCycles"`
}

func collectRuntime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		CPUs:       runtime.NumCPU(),
		HeapBytes:  m.HeapAlloc,
		SysBytes:   m.Sys,
		GCCycles:   m.NumGC,
	}
}

type DBPoolStats struct {
	MaxOpen      int    `json:"maxOpen"`
	Open         int    `json:"open"`
	InUse        int    `json:"inUse"`
	Idle         int    `json:"idle"`
	Waits        int64  `json:"waits"`
	WaitDuration string `json:"waitDuration"`
	Closed       int64  `json:"closed"`
}

func newDBPoolStats(s sql.DBStats) *DBPoolStats {
	return &DBPoolStats{
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		Waits:        s.WaitCount,
		WaitDuration: s.WaitDuration.String(),
		Closed:       s.MaxIdleClosed + s.MaxIdleTimeClosed + s.MaxLifetimeClosed,
	}
}

type RedisPoolStats struct {
	Hits     uint32 `json:"hits"`
	Misses   uint32 `json:"misses"`
	Timeouts uint32 `json:"timeouts"`
	Total    uint32 `json:"total"`
	Idle     uint32 `json:"idle"`
	Stale    uint32 `json:"stale"`
}

func newRedisPoolStats(s *redis.PoolStats) *RedisPoolStats {
	if s == nil {
		return nil
	}
	return &RedisPoolStats{
		Hits:     s.Hits,
		Misses:   s.Misses,
		Timeouts: s.Timeouts,
		Total:    s.TotalConns,
		Idle:     s.IdleConns,
		Stale:    s.StaleConns,
	}
}
