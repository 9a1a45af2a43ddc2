// AngelaMos | 2026
// repository.go

package store

import (
	"context"
	"sync"

	"github.com/carterperez-dev/vidshelf/internal/model"
)

// Repository persists the catalog document.
//
// Load returns a private snapshot that callers may read freely. Update
// runs fn against a working copy under the store-wide write lock; the
// copy is committed only when fn returns nil, so a failing fn leaves the
// catalog untouched.
type Repository interface {
	Load(ctx context.Context) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
	Update(ctx context.Context, fn func(doc *model.Document) error) error
	Ping(ctx context.Context) error
	Close() error
}

type persistFunc func(ctx context.Context, doc *model.Document) error

// cached keeps the committed document in memory and serializes writers.
// The memory and file backends are both built on it.
type cached struct {
	mu      sync.RWMutex
	doc     *model.Document
	persist persistFunc
}

func newCached(doc *model.Document, persist persistFunc) *cached {
	if doc == nil {
		doc = model.NewDocument()
	}
	doc.Normalize()
	return &cached{doc: doc, persist: persist}
}

func (c *cached) Load(ctx context.Context) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.doc.Clone(), nil
}

func (c *cached) Save(ctx context.Context, doc *model.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commit(ctx, doc.Clone())
}

func (c *cached) Update(
	ctx context.Context,
	fn func(doc *model.Document) error,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := c.doc.Clone()
	if err := fn(working); err != nil {
		return err
	}

	return c.commit(ctx, working)
}

func (c *cached) commit(ctx context.Context, doc *model.Document) error {
	doc.Normalize()
	if c.persist != nil {
		if err := c.persist(ctx, doc); err != nil {
			return err
		}
	}
	c.doc = doc
	return nil
}

func (c *cached) Ping(ctx context.Context) error {
	return ctx.Err()
}
