// AngelaMos | 2026
// file.go

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/carterperez-dev/vidshelf/internal/model"
)

// File keeps the catalog in a single JSON document on disk, compatible
// with the db.json layout of earlier releases. Writes go to a temp file
// that is renamed over the original.
type File struct {
	*cached
	path string
}

func NewFile(path string) (*File, error) {
	doc, err := readDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		doc = model.NewDocument()
		if err := writeDocument(path, doc); err != nil {
			return nil, fmt.Errorf("initialize catalog file: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	f := &File{path: path}
	f.cached = newCached(doc, func(_ context.Context, d *model.Document) error {
		return writeDocument(f.path, d)
	})
	return f, nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(f.path); err != nil {
		return fmt.Errorf("stat catalog file: %w", err)
	}
	return nil
}

func (f *File) Close() error {
	return nil
}

func readDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("decode catalog file %s: %w", path, err)
		}
	}
	doc.Normalize()

	return doc, nil
}

func writeDocument(path string, doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()        //nolint:errcheck // cleanup on write failure
		_ = os.Remove(tmpName) //nolint:errcheck // cleanup on write failure
		return fmt.Errorf("write temp catalog: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // cleanup on close failure
		return fmt.Errorf("close temp catalog: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // cleanup on rename failure
		return fmt.Errorf("replace catalog: %w", err)
	}

	return nil
}

var _ Repository = (*File)(nil)
