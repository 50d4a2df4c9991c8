// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package feature

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/featured-io/featured/lib/clock"
	"github.com/featured-io/featured/lib/sqlitepool"
	"github.com/featured-io/featured/lib/toolerror"
)

// Store is the persistent feature backlog. Every operation borrows a
// pooled connection for the duration of one call; mutations run inside
// a single IMMEDIATE transaction so the priority scan and the write it
// feeds are serialized against concurrent writers.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// StoreConfig holds the parameters for opening a feature store.
type StoreConfig struct {
	// Path is the SQLite database file. The parent directory must
	// exist. Required.
	Path string

	// PoolSize is the connection pool size. Zero means the pool
	// default.
	PoolSize int

	// Clock stamps created_at on new features. Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// schema is the feature table. The id is AUTOINCREMENT so identities
// stay monotonic across restarts and are never reissued. Steps are
// stored as a JSON array string. The (passes, priority, id) index
// serves next-selection and the pending-minimum scan; the category
// index serves grouping queries.
const schema = `
	CREATE TABLE IF NOT EXISTS features (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		priority    INTEGER NOT NULL,
		category    TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		steps       TEXT NOT NULL,
		passes      INTEGER NOT NULL DEFAULT 0,
		source      TEXT NOT NULL DEFAULT 'initializer',
		batch_id    TEXT,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_features_queue ON features(passes, priority, id);
	CREATE INDEX IF NOT EXISTS idx_features_category ON features(category);
`

// featureColumns is the SELECT column list matching scanFeature.
const featureColumns = "id, priority, category, name, description, steps, passes, source, batch_id, created_at"

// Open creates a feature store backed by SQLite. The database file and
// schema are created if they do not exist. The caller must Close the
// store when done.
func Open(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("feature store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("feature store: Logger is required")
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("feature store: %w", err)
	}

	return &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// takeErr wraps a pool acquisition failure. The pool is the store's
// only path to the database, so failure to borrow a connection means
// the store is unreachable for this call.
func takeErr(operation string, err error) error {
	return toolerror.Unavailable("feature store: %s: %w", operation, err)
}

// scanFeature reads one row in featureColumns order.
func scanFeature(stmt *sqlite.Stmt) (Feature, error) {
	f := Feature{
		ID:          stmt.ColumnInt64(0),
		Priority:    stmt.ColumnInt64(1),
		Category:    stmt.ColumnText(2),
		Name:        stmt.ColumnText(3),
		Description: stmt.ColumnText(4),
		Passes:      stmt.ColumnInt(6) != 0,
		Source:      stmt.ColumnText(7),
		CreatedAt:   stmt.ColumnInt64(9),
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(5)), &f.Steps); err != nil {
		return f, toolerror.Internal("feature store: unmarshal steps for feature %d: %w", f.ID, err)
	}
	if !stmt.ColumnIsNull(8) {
		f.BatchID = stmt.ColumnText(8)
	}
	return f, nil
}
