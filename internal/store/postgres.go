// AngelaMos | 2026
// postgres.go

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/vidshelf/internal/core"
	"github.com/carterperez-dev/vidshelf/internal/model"
)

const catalogRowID = 1

const schema = `
	CREATE TABLE IF NOT EXISTS catalog (
		id         SMALLINT PRIMARY KEY,
		document   JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Postgres stores the catalog document as a single JSONB row. Update
// locks the row with SELECT ... FOR UPDATE inside a transaction, so
// writers from other processes are serialized as well.
type Postgres struct {
	db *sqlx.DB
	mu sync.Mutex
}

func NewPostgres(ctx context.Context, db *sqlx.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create catalog table: %w", err)
	}

	empty, err := json.Marshal(model.NewDocument())
	if err != nil {
		return nil, fmt.Errorf("encode empty catalog: %w", err)
	}

	query := `
		INSERT INTO catalog (id, document)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := db.ExecContext(ctx, query, catalogRowID, string(empty)); err != nil {
		return nil, fmt.Errorf("seed catalog row: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) Load(ctx context.Context) (*model.Document, error) {
	query := `SELECT document FROM catalog WHERE id = $1`

	var raw []byte
	if err := p.db.GetContext(ctx, &raw, query, catalogRowID); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return decode(raw)
}

func (p *Postgres) Save(ctx context.Context, doc *model.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write(ctx, p.db, doc)
}

func (p *Postgres) Update(
	ctx context.Context,
	fn func(doc *model.Document) error,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return core.InTx(ctx, p.db, func(tx *sqlx.Tx) error {
		query := `SELECT document FROM catalog WHERE id = $1 FOR UPDATE`

		var raw []byte
		if err := tx.GetContext(ctx, &raw, query, catalogRowID); err != nil {
			return fmt.Errorf("lock catalog: %w", err)
		}

		doc, err := decode(raw)
		if err != nil {
			return err
		}

		if err := fn(doc); err != nil {
			return err
		}

		return p.write(ctx, tx, doc)
	})
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return nil
}

func (p *Postgres) write(
	ctx context.Context,
	exec sqlx.ExecerContext,
	doc *model.Document,
) error {
	doc.Normalize()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	query := `
		UPDATE catalog
		SET document = $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := exec.ExecContext(ctx, query, catalogRowID, string(raw)); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	return nil
}

func decode(raw []byte) (*model.Document, error) {
	doc := &model.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

var _ Repository = (*Postgres)(nil)
