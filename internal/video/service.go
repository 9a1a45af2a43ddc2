// AngelaMos | 2026
// service.go

package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/vidshelf/internal/access"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/media"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/storage"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

var tracer = otel.Tracer("github.com/carterperez-dev/vidshelf/internal/video")

// errUnchanged aborts a store update that has nothing to write.
var errUnchanged = errors.New("unchanged")

// Taxonomy is the part of the taxonomy store the catalog writes through.
// Both calls run on the document of the surrounding store update.
type Taxonomy interface {
	EnsureCategory(doc *model.Document, name string)
	AddTags(doc *model.Document, tags []string)
}

type Thumbnailer interface {
	Submit(videoID, sourceKey string) <-chan media.Result
}

type Service struct {
	repo     store.Repository
	taxonomy Taxonomy
	storage  storage.Provider
	thumbs   Thumbnailer
	wait     time.Duration
	logger   *slog.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

type Options struct {
	Thumbnailer   Thumbnailer
	ThumbnailWait time.Duration
	Logger        *slog.Logger
}

func NewService(
	repo store.Repository,
	taxonomy Taxonomy,
	provider storage.Provider,
	opts Options,
) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:     repo,
		taxonomy: taxonomy,
		storage:  provider,
		thumbs:   opts.Thumbnailer,
		wait:     opts.ThumbnailWait,
		logger:   logger,
		now:      time.Now,
	}
}

type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
	Title        string
	Category     string
	Tags         []string
}

// Patch carries the fields of an edit. Nil fields are left alone; a non
// nil Tags replaces the tag list, even when empty.
type Patch struct {
	Title    *string
	Category *string
	Tags     []string
}

type State string

const (
	StateActive  State = "active"
	StateTrashed State = "trashed"
)

type Filter struct {
	State    State
	Uploader string
	Category string
	Tag      string
}

func (f Filter) matches(v *model.Video) bool {
	if (f.State == StateTrashed) != v.IsTrashed() {
		return false
	}
	if f.Uploader != "" && v.UploadedBy != f.Uploader {
		return false
	}
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	if f.Tag != "" && !v.HasTag(f.Tag) {
		return false
	}
	return true
}

// Upload stores the binary, records the video and then gives the
// thumbnail worker a bounded amount of time before returning.
func (s *Service) Upload(
	ctx context.Context,
	actor *model.Account,
	in UploadInput,
) (v *model.Video, err error) {
	ctx, span := tracer.Start(ctx, "video.Upload",
		trace.WithAttributes(attribute.String("video.filename", in.OriginalName)))
	defer func() {
		core.EndSpan(span, err)
		metrics.RecordOperation("video.upload", err)
	}()

	if err = access.Check(access.VideoUpload, actor, access.Target{}); err != nil {
		return nil, err
	}
	if in.Body == nil {
		return nil, fmt.Errorf("upload: no file: %w", core.ErrInvalidInput)
	}

	id := uuid.New().String()
	now := s.now().UTC()
	key := storage.VideoKey(id, in.OriginalName, now)

	url, err := s.storage.Put(ctx, key, in.Body, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.OriginalName
	}

	record := model.Video{
		ID:          id,
		Title:       title,
		Filename:    key,
		Path:        url,
		ContentType: in.ContentType,
		Size:        in.Size,
		Category:    strings.TrimSpace(in.Category),
		Tags:        cleanTags(in.Tags),
		UploadedBy:  actor.Username,
		CreatedAt:   now,
	}

	err = s.repo.Update(ctx, func(doc *model.Document) error {
		if record.Category == "" {
			record.Category = doc.DefaultCategory()
		}
		s.taxonomy.EnsureCategory(doc, record.Category)
		s.taxonomy.AddTags(doc, record.Tags)
		doc.Videos = append(doc.Videos, record)
		return nil
	})
	if err != nil {
		s.release(context.WithoutCancel(ctx), key)
		return nil, fmt.Errorf("record video: %w", err)
	}

	span.SetAttributes(attribute.String("video.id", record.ID))
	s.logger.Info("video uploaded",
		"video_id", record.ID,
		"uploaded_by", record.UploadedBy,
		"category", record.Category,
		"size", record.Size,
	)

	return s.awaitThumbnail(ctx, &record), nil
}

func (s *Service) awaitThumbnail(ctx context.Context, v *model.Video) *model.Video {
	if s.thumbs == nil {
		return v
	}

	results := s.thumbs.Submit(v.ID, v.Filename)
	if s.wait <= 0 {
		s.deferThumbnail(ctx, v.ID, results)
		return v
	}

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case res := <-results:
		if updated := s.applyThumbnail(context.WithoutCancel(ctx), v.ID, res); updated != nil {
			return updated
		}
		return v
	case <-timer.C:
	case <-ctx.Done():
	}

	s.deferThumbnail(ctx, v.ID, results)
	return v
}

func (s *Service) deferThumbnail(ctx context.Context, id string, results <-chan media.Result) {
	core.AddSpanEvent(ctx, "thumbnail.deferred", attribute.String("video.id", id))

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.applyThumbnail(context.WithoutCancel(ctx), id, <-results)
	}()
}

// applyThumbnail records a finished thumbnail job. It returns nil when the
// job failed or the video is gone.
func (s *Service) applyThumbnail(
	ctx context.Context,
	id string,
	res media.Result,
) *model.Video {
	if res.Err != nil {
		s.logger.Warn("thumbnail unavailable", "video_id", id, "error", res.Err)
		return nil
	}

	v, err := s.SetThumbnail(ctx, id, res.URL, res.Key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.Info("video purged before thumbnail finished", "video_id", id)
			s.release(ctx, res.Key)
			return nil
		}
		s.logger.Error("record thumbnail", "video_id", id, "error", err)
		return nil
	}

	return v
}

// SetThumbnail attaches a stored thumbnail to a video.
func (s *Service) SetThumbnail(
	ctx context.Context,
	id, url, key string,
) (*model.Video, error) {
	var updated model.Video

	err := s.repo.Update(ctx, func(doc *model.Document) error {
		v := doc.FindVideo(id)
		if v == nil {
			return fmt.Errorf("video %s: %w", id, core.ErrNotFound)
		}
		v.SetThumbnail(url, key)
		updated = *v
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// Wait blocks until every deferred thumbnail update has been applied.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) Edit(
	ctx context.Context,
	actor *model.Account,
	id string,
	patch Patch,
) (v *model.Video, err error) {
	ctx, span := s.start(ctx, "video.Edit", id)
	defer func() { s.finish(span, "video.edit", err) }()

	var updated model.Video
	err = s.repo.Update(ctx, func(doc *model.Document) error {
		video := doc.FindVideo(id)
		if video == nil {
			return fmt.Errorf("video %s: %w", id, core.ErrNotFound)
		}

		target := access.Target{Uploader: video.UploadedBy}
		if err := access.Check(access.VideoEdit, actor, target); err != nil {
			return err
		}

		if patch.Title != nil {
			if title := strings.TrimSpace(*patch.Title); title != "" {
				video.Title = title
			}
		}
		if patch.Category != nil {
			if category := strings.TrimSpace(*patch.Category); category != "" {
				video.Category = category
				s.taxonomy.EnsureCategory(doc, category)
			}
		}
		if patch.Tags != nil {
			video.Tags = cleanTags(patch.Tags)
			s.taxonomy.AddTags(doc, video.Tags)
		}

		updated = *video
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// SoftDelete moves a video to the trash. Trashing an already trashed
// video changes nothing.
func (s *Service) SoftDelete(
	ctx context.Context,
	actor *model.Account,
	id string,
) (err error) {
	ctx, span := s.start(ctx, "video.SoftDelete", id)
	defer func() { s.finish(span, "video.trash", err) }()

	err = s.repo.Update(ctx, func(doc *model.Document) error {
		video := doc.FindVideo(id)
		if video == nil {
			return fmt.Errorf("video %s: %w", id, core.ErrNotFound)
		}

		target := access.Target{Uploader: video.UploadedBy}
		if err := access.Check(access.VideoTrash, actor, target); err != nil {
			return err
		}

		if video.IsTrashed() {
			return errUnchanged
		}

		video.Trash(s.now().UTC())
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

func (s *Service) Restore(
	ctx context.Context,
	actor *model.Account,
	id string,
) (v *model.Video, err error) {
	ctx, span := s.start(ctx, "video.Restore", id)
	defer func() { s.finish(span, "video.restore", err) }()

	var restored model.Video
	err = s.repo.Update(ctx, func(doc *model.Document) error {
		video := doc.FindVideo(id)
		if video == nil {
			return fmt.Errorf("video %s: %w", id, core.ErrNotFound)
		}

		target := access.Target{Uploader: video.UploadedBy}
		if err := access.Check(access.VideoRestore, actor, target); err != nil {
			return err
		}

		if !video.IsTrashed() {
			return fmt.Errorf("video %s is not in trash: %w", id, core.ErrInvalidState)
		}

		video.Restore()
		restored = *video
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &restored, nil
}

// Purge removes the record and then its stored binary and thumbnail.
// Storage failures are logged; the record is gone either way.
func (s *Service) Purge(
	ctx context.Context,
	actor *model.Account,
	id string,
) (err error) {
	ctx, span := s.start(ctx, "video.Purge", id)
	defer func() { s.finish(span, "video.purge", err) }()

	var removed model.Video
	err = s.repo.Update(ctx, func(doc *model.Document) error {
		idx := doc.VideoIndex(id)
		if idx == -1 {
			return fmt.Errorf("video %s: %w", id, core.ErrNotFound)
		}

		target := access.Target{Uploader: doc.Videos[idx].UploadedBy}
		if err := access.Check(access.VideoPurge, actor, target); err != nil {
			return err
		}

		removed = doc.Videos[idx]
		doc.Videos = append(doc.Videos[:idx], doc.Videos[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	cleanup := context.WithoutCancel(ctx)
	s.release(cleanup, removed.Filename)
	if removed.ThumbnailFile != nil {
		s.release(cleanup, *removed.ThumbnailFile)
	}

	s.logger.Info("video purged", "video_id", id, "by", actor.Username)
	return nil
}

// List returns the videos matching filter in insertion order. Listing the
// trash requires admin rights.
func (s *Service) List(
	ctx context.Context,
	actor *model.Account,
	filter Filter,
) ([]model.Video, error) {
	if filter.State == StateTrashed {
		if err := access.Check(access.TrashList, actor, access.Target{}); err != nil {
			return nil, err
		}
	}

	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	videos := make([]model.Video, 0, len(doc.Videos))
	for i := range doc.Videos {
		if filter.matches(&doc.Videos[i]) {
			videos = append(videos, doc.Videos[i])
		}
	}

	return videos, nil
}

// Get hides trashed videos from everyone but admins.
func (s *Service) Get(
	ctx context.Context,
	actor *model.Account,
	id string,
) (*model.Video, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	v := doc.FindVideo(id)
	if v == nil || (v.IsTrashed() && !actor.IsAdmin()) {
		return nil, fmt.Errorf("video %s: %w", id, core.ErrNotFound)
	}

	return v, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("delete stored file", "key", key, "error", err)
	}
}

func (s *Service) start(ctx context.Context, name, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("video.id", id)))
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	core.EndSpan(span, err)
	metrics.RecordOperation(operation, err)
}

// cleanTags trims tags and drops blanks and repeats, keeping first
// appearance order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
