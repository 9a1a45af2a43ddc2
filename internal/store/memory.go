// AngelaMos | 2026
// memory.go

package store

import "github.com/carterperez-dev/vidshelf/internal/model"

// Memory is a volatile Repository, used in development and tests.
type Memory struct {
	*cached
}

func NewMemory(seed *model.Document) *Memory {
	if seed != nil {
		seed = seed.Clone()
	}
	return &Memory{cached: newCached(seed, nil)}
}

func (m *Memory) Close() error {
	return nil
}

var _ Repository = (*Memory)(nil)
