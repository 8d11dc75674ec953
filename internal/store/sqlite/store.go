// Package sqlite implements store.Datastore on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/playlistapp/playlist-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	closed atomic.Bool
}

var _ store.Datastore = (*Store)(nil)

// Open creates or opens the SQLite database at path.
// It configures WAL mode, sets pragmas, and runs the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes writers, which makes every transaction below
	// a critical section for its record.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec pragma journal_mode: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite datastore opened", "path", path)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return store.ErrClosed
	}
	return s.db.PingContext(ctx)
}

// AllocateID increments the per-kind sequence. Ids start at 1.
func (s *Store) AllocateID(ctx context.Context, kind string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequences (kind, next_id) VALUES (?, 1)
		ON CONFLICT (kind) DO UPDATE SET next_id = sequences.next_id + 1
		RETURNING next_id`, kind).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", kind, err)
	}
	return id, nil
}

// Get returns the payload at key.
func (s *Store) Get(ctx context.Context, key store.Key) ([]byte, error) {
	return getData(ctx, s.db, key)
}

// Insert stores a new record and its index rows.
func (s *Store) Insert(ctx context.Context, key store.Key, rec store.Record) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO entities (kind, id, data) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			key.Kind, key.ID, rec.Data)
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
		if n == 0 {
			return store.ErrAlreadyExists
		}
		return writeIndexes(ctx, tx, key, rec.Indexes)
	})
}

// Update runs fn against the current payload inside one transaction.
func (s *Store) Update(ctx context.Context, key store.Key, fn store.MutateFunc) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := getData(ctx, tx, key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET data = ? WHERE kind = ? AND id = ?`,
			next.Data, key.Kind, key.ID); err != nil {
			return fmt.Errorf("update entity: %w", err)
		}
		if err := deleteIndexes(ctx, tx, key); err != nil {
			return err
		}
		return writeIndexes(ctx, tx, key, next.Indexes)
	})
}

// Delete removes the record and its index rows.
func (s *Store) Delete(ctx context.Context, key store.Key) ([]byte, error) {
	var removed []byte
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		removed = nil
		current, err := getData(ctx, tx, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM entities WHERE kind = ? AND id = ?`, key.Kind, key.ID); err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}
		removed = current
		return deleteIndexes(ctx, tx, key)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Query lists records in id order, fetching one extra row to detect a next page.
func (s *Store) Query(ctx context.Context, q store.Query) (*store.Page, error) {
	after, err := store.DecodeIDCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	limit := -1
	if q.Limit > 0 {
		limit = q.Limit + 1
	}

	var rows *sql.Rows
	if q.Filter != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT e.id, e.data
			FROM entity_indexes x
			JOIN entities e ON e.kind = x.kind AND e.id = x.id
			WHERE x.kind = ? AND x.property = ? AND x.value = ? AND x.id > ?
			ORDER BY x.id
			LIMIT ?`, q.Kind, q.Filter.Property, q.Filter.Value, after, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, data FROM entities
			WHERE kind = ? AND id > ?
			ORDER BY id
			LIMIT ?`, q.Kind, after, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Kind, err)
	}
	defer rows.Close()

	page := &store.Page{Items: []store.Item{}}
	for rows.Next() {
		var item store.Item
		item.Key.Kind = q.Kind
		if err := rows.Scan(&item.Key.ID, &item.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Kind, err)
		}
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Kind, err)
	}

	if q.Limit > 0 && len(page.Items) > q.Limit {
		page.Items = page.Items[:q.Limit]
		page.NextCursor = store.EncodeIDCursor(page.Items[q.Limit-1].Key.ID)
	}
	return page, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getData(ctx context.Context, q queryer, key store.Key) ([]byte, error) {
	var data []byte
	err := q.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE kind = ? AND id = ?`, key.Kind, key.ID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return data, nil
}

func writeIndexes(ctx context.Context, tx *sql.Tx, key store.Key, indexes map[string]string) error {
	for prop, value := range indexes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_indexes (kind, property, value, id) VALUES (?, ?, ?, ?)`,
			key.Kind, prop, value, key.ID); err != nil {
			return fmt.Errorf("insert index %s: %w", prop, err)
		}
	}
	return nil
}

func deleteIndexes(ctx context.Context, tx *sql.Tx, key store.Key) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entity_indexes WHERE kind = ? AND id = ?`, key.Kind, key.ID); err != nil {
		return fmt.Errorf("delete indexes: %w", err)
	}
	return nil
}
