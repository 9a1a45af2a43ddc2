// AngelaMos | 2026
// pool.go

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/carterperez-dev/vidshelf/internal/config"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/storage"
)

var (
	ErrQueueFull = errors.New("thumbnail queue full")
	ErrStopped   = errors.New("thumbnail pool stopped")
)

// Result is delivered exactly once per submitted job.
type Result struct {
	Key string
	URL string
	Err error
}

type job struct {
	videoID   string
	sourceKey string
	result    chan Result
}

// Pool renders thumbnails on a fixed number of workers. Jobs that do not
// fit in the queue are rejected rather than blocking the uploader.
type Pool struct {
	cfg     config.MediaConfig
	runner  Runner
	storage storage.Provider
	logger  *slog.Logger

	jobs   chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(
	cfg config.MediaConfig,
	runner Runner,
	provider storage.Provider,
	logger *slog.Logger,
) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.Position <= 0 || cfg.Position >= 1 {
		cfg.Position = 0.2
	}

	return &Pool{
		cfg:     cfg,
		runner:  runner,
		storage: provider,
		logger:  logger,
		jobs:    make(chan job, cfg.QueueSize),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}
	p.logger.Info("thumbnail workers started",
		"workers", p.cfg.Workers,
		"queue", p.cfg.QueueSize,
	)
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

type QueueStats struct {
	Workers  int `json:"workers"`
	Queued   int `json:"queued"`
	Capacity int `json:"capacity"`
}

func (p *Pool) Stats() QueueStats {
	return QueueStats{
		Workers:  p.cfg.Workers,
		Queued:   len(p.jobs),
		Capacity: cap(p.jobs),
	}
}

func (p *Pool) Submit(videoID, sourceKey string) <-chan Result {
	result := make(chan Result, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		result <- Result{Err: ErrStopped}
		return result
	}

	select {
	case p.jobs <- job{videoID: videoID, sourceKey: sourceKey, result: result}:
	default:
		metrics.Thumbnails.WithLabelValues("dropped").Inc()
		result <- Result{Err: ErrQueueFull}
	}

	return result
}

func (p *Pool) work(ctx context.Context) {
	defer p.wg.Done()

	for j := range p.jobs {
		res := p.run(ctx, j)
		if res.Err != nil {
			metrics.Thumbnails.WithLabelValues("failed").Inc()
			p.logger.Warn("thumbnail generation failed",
				"video_id", j.videoID,
				"error", res.Err,
			)
		} else {
			metrics.Thumbnails.WithLabelValues("ok").Inc()
		}
		j.result <- res
	}
}

func (p *Pool) run(ctx context.Context, j job) Result {
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "vidshelf-thumb-")
	if err != nil {
		return Result{Err: fmt.Errorf("create work dir: %w", err)}
	}
	defer func() { _ = os.RemoveAll(dir) }()

	input := filepath.Join(dir, "source")
	if err := p.fetch(ctx, j.sourceKey, input); err != nil {
		return Result{Err: err}
	}

	duration, err := p.runner.Probe(ctx, input)
	if err != nil {
		return Result{Err: err}
	}

	output := filepath.Join(dir, "thumb.png")
	at := time.Duration(float64(duration) * p.cfg.Position)
	if err := p.runner.Snapshot(ctx, input, output, at, p.cfg.Width, p.cfg.Height); err != nil {
		return Result{Err: err}
	}

	f, err := os.Open(output)
	if err != nil {
		return Result{Err: fmt.Errorf("open thumbnail: %w", err)}
	}
	defer func() { _ = f.Close() }()

	key := storage.ThumbnailKey(j.videoID)
	url, err := p.storage.Put(ctx, key, f, "image/png")
	if err != nil {
		return Result{Err: fmt.Errorf("store thumbnail: %w", err)}
	}

	return Result{Key: key, URL: url}
}

func (p *Pool) fetch(ctx context.Context, key, dst string) error {
	src, err := p.storage.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create source copy: %w", err)
	}

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy source: %w", err)
	}
	return f.Close()
}
