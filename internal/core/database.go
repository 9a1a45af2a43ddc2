// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/vidshelf/internal/config"
)

// Database is the PostgreSQL pool behind the postgres catalog driver.
type Database struct {
	DB *sqlx.DB
}

// NewDatabase connects to PostgreSQL, retrying with exponential backoff
// until cfg.ConnectTimeout elapses.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = cfg.ConnectTimeout

	attempts := 0
	db, err := backoff.RetryNotifyWithData[*sqlx.DB](
		func() (*sqlx.DB, error) {
			attempts++
			return sqlx.ConnectContext(ctx, "pgx", cfg.URL)
		},
		backoff.WithContext(bo, ctx),
		func(err error, next time.Duration) {
			slog.Warn("database not reachable, retrying",
				"attempt", attempts,
				"error", err,
				"retry_in", next.String(),
			)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(withJitter(cfg.ConnMaxLifetime))
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &Database{DB: db}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// InTx runs fn in a transaction, committing when it returns nil and
// rolling back otherwise, including when fn panics.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = fmt.Errorf("%w (rollback: %w)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// withJitter spreads connection recycling by up to a seventh of base so
// the pool does not reconnect all at once.
func withJitter(base time.Duration) time.Duration {
	spread := int64(base / 7)
	if spread <= 0 {
		return base
	}
	//nolint:gosec // G404: jitter, not security sensitive
	return base + time.Duration(rand.Int64N(spread))
}
