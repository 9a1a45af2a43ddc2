// AngelaMos | 2026
// service.go

package taxonomy

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/vidshelf/internal/access"
	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/metrics"
	"github.com/carterperez-dev/vidshelf/internal/model"
	"github.com/carterperez-dev/vidshelf/internal/store"
)

var tracer = otel.Tracer("github.com/carterperez-dev/vidshelf/internal/taxonomy")

// Service owns the category and tag sets. Both are ordered by insertion
// and compared case-sensitively.
type Service struct {
	repo store.Repository
}

func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return doc.Categories, nil
}

func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return doc.Tags, nil
}

func (s *Service) AddCategory(
	ctx context.Context,
	actor *model.Account,
	name string,
) (categories []string, err error) {
	ctx, span := s.start(ctx, "taxonomy.AddCategory", name)
	defer func() { s.finish(span, "category.create", err) }()

	if err = access.Check(access.CategoryCreate, actor, access.Target{}); err != nil {
		return nil, err
	}

	name, err = cleanName(name)
	if err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}

	err = s.repo.Update(ctx, func(doc *model.Document) error {
		if slices.Contains(doc.Categories, name) {
			return fmt.Errorf("category %q already exists: %w", name, core.ErrConflict)
		}
		doc.Categories = append(doc.Categories, name)
		categories = slices.Clone(doc.Categories)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return categories, nil
}

// RenameCategory replaces oldName in place and rewrites every video that
// references it, in the same store update.
func (s *Service) RenameCategory(
	ctx context.Context,
	actor *model.Account,
	oldName, newName string,
) (categories []string, err error) {
	ctx, span := s.start(ctx, "taxonomy.RenameCategory", oldName)
	defer func() { s.finish(span, "category.rename", err) }()

	if err = access.Check(access.CategoryRename, actor, access.Target{}); err != nil {
		return nil, err
	}

	newName, err = cleanName(newName)
	if err != nil {
		return nil, fmt.Errorf("rename category: %w", err)
	}

	moved := 0
	err = s.repo.Update(ctx, func(doc *model.Document) error {
		idx := slices.Index(doc.Categories, oldName)
		if idx == -1 {
			return fmt.Errorf("category %q: %w", oldName, core.ErrNotFound)
		}
		if slices.Contains(doc.Categories, newName) {
			return fmt.Errorf("category %q already exists: %w", newName, core.ErrConflict)
		}

		doc.Categories[idx] = newName
		moved = reassign(doc, oldName, newName)
		categories = slices.Clone(doc.Categories)
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("videos.moved", moved))
	return categories, nil
}

// DeleteCategory removes name and moves its videos to the default
// category. Videos referencing it never block the delete. A configured
// default is listed once videos land in it; deleting the configured
// default itself moves its videos to Uncategorized.
func (s *Service) DeleteCategory(
	ctx context.Context,
	actor *model.Account,
	name string,
) (categories []string, err error) {
	ctx, span := s.start(ctx, "taxonomy.DeleteCategory", name)
	defer func() { s.finish(span, "category.delete", err) }()

	if err = access.Check(access.CategoryDelete, actor, access.Target{}); err != nil {
		return nil, err
	}

	moved := 0
	err = s.repo.Update(ctx, func(doc *model.Document) error {
		idx := slices.Index(doc.Categories, name)
		if idx == -1 {
			return fmt.Errorf("category %q: %w", name, core.ErrNotFound)
		}

		target := doc.DefaultCategory()
		if target == name {
			target = model.DefaultCategory
		}

		doc.Categories = slices.Delete(doc.Categories, idx, idx+1)
		moved = reassign(doc, name, target)
		if moved > 0 && target != model.DefaultCategory {
			s.EnsureCategory(doc, target)
		}
		categories = slices.Clone(doc.Categories)
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("videos.moved", moved))
	return categories, nil
}

// EnsureCategory adds name to the category set of doc if it is new. It
// runs inside the caller's store update and never fails.
func (s *Service) EnsureCategory(doc *model.Document, name string) {
	if name == "" || slices.Contains(doc.Categories, name) {
		return
	}
	doc.Categories = append(doc.Categories, name)
}

// AddTags appends every tag not yet known to the global tag set, in order
// of first appearance. Tags are never removed.
func (s *Service) AddTags(doc *model.Document, tags []string) {
	for _, tag := range tags {
		if tag == "" || slices.Contains(doc.Tags, tag) {
			continue
		}
		doc.Tags = append(doc.Tags, tag)
	}
}

func (s *Service) start(
	ctx context.Context,
	name, category string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String("category", category)))
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	core.EndSpan(span, err)
	metrics.RecordOperation(operation, err)
}

func reassign(doc *model.Document, from, to string) int {
	moved := 0
	for i := range doc.Videos {
		if doc.Videos[i].Category == from {
			doc.Videos[i].Category = to
			moved++
		}
	}
	return moved
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("category name is required: %w", core.ErrInvalidInput)
	}
	return name, nil
}
