// Package sqlite provides the SQLite implementation of store.Store.
//
// The database lives in memory. Its full image is serialized into a
// blob.Store after every mutation and deserialized from it on open, so the
// blob store is the only durable copy.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/Zerofisher/ticsmerge/internal/logging"
	"github.com/Zerofisher/ticsmerge/pkg/blob"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/store"
)

// Config holds configuration for the SQLite store.
type Config struct {
	// Blobs receives the serialized database after every mutation.
	Blobs blob.Store

	// Logger defaults to a no-op logger.
	Logger *logging.Logger
}

// SQLiteStore is the SQLite implementation of store.Store.
type SQLiteStore struct {
	blobs blob.Store
	log   *logging.Logger

	// mu serializes every statement; the pool has exactly one connection.
	mu sync.Mutex
	db *sql.DB

	// uniqueKey is false when a loaded snapshot already held duplicate keys
	// and only a plain lookup index could be created.
	uniqueKey bool
}

var _ store.Store = (*SQLiteStore)(nil)

// Open brings up the engine from the blob store's snapshot, or empty if
// there is none, makes sure the table exists and persists the result.
// Failures are reported as *store.InitError; Open may simply be retried.
func Open(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	if cfg.Blobs == nil {
		return nil, &store.InitError{Op: "open", Err: errors.New("no blob store configured")}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	s := &SQLiteStore{blobs: cfg.Blobs, log: log}
	if err := s.init(ctx, true); err != nil {
		return nil, err
	}
	return s, nil
}

// init opens a fresh engine, restores the snapshot if one exists and
// ensures the schema. persist controls whether the resulting image is saved
// right away.
func (s *SQLiteStore) init(ctx context.Context, persist bool) error {
	image, err := s.blobs.Load(ctx)
	switch {
	case errors.Is(err, blob.ErrNotFound):
		image = nil
	case err != nil:
		return &store.InitError{Op: "load snapshot", Err: err}
	}

	db, err := openEngine()
	if err != nil {
		return &store.InitError{Op: "open engine", Err: err}
	}

	if len(image) > 0 {
		if err := deserialize(ctx, db, image); err != nil {
			db.Close()
			return &store.InitError{Op: "restore snapshot", Err: err}
		}
		s.log.Debug("snapshot restored", "bytes", len(image))
	} else {
		s.log.Debug("new database created")
	}

	unique, err := initSchema(ctx, db)
	if err != nil {
		db.Close()
		return &store.InitError{Op: "init schema", Err: err}
	}
	if !unique {
		s.log.Warn("snapshot holds duplicate keys, uniqueness not enforced")
	}

	s.db = db
	s.uniqueKey = unique

	if persist {
		if err := s.flushLocked(ctx); err != nil {
			s.db = nil
			db.Close()
			return &store.InitError{Op: "persist schema", Err: err}
		}
	}
	return nil
}

// openEngine opens a private in-memory database on a single connection.
func openEngine() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// An in-memory database lives and dies with its connection, so the pool
	// must hold on to exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// withConn runs fn on the raw driver connection.
func withConn(ctx context.Context, db *sql.DB, fn func(*sqlite3.SQLiteConn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c)
	})
}

// deserialize restores image into db. A deserialized database cannot grow,
// so the image is loaded into a scratch connection and copied over with the
// backup API.
func deserialize(ctx context.Context, db *sql.DB, image []byte) error {
	scratch, err := openEngine()
	if err != nil {
		return err
	}
	defer scratch.Close()

	return withConn(ctx, scratch, func(src *sqlite3.SQLiteConn) error {
		if err := src.Deserialize(image, "main"); err != nil {
			return fmt.Errorf("deserialize: %w", err)
		}
		return withConn(ctx, db, func(dst *sqlite3.SQLiteConn) error {
			bk, err := dst.Backup("main", src, "main")
			if err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			if _, err := bk.Step(-1); err != nil {
				return errors.Join(fmt.Errorf("backup step: %w", err), bk.Finish())
			}
			return bk.Finish()
		})
	})
}

func serialize(ctx context.Context, db *sql.DB) ([]byte, error) {
	var image []byte
	err := withConn(ctx, db, func(c *sqlite3.SQLiteConn) error {
		var err error
		image, err = c.Serialize("main")
		return err
	})
	return image, err
}

// Close closes the engine and the blob store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	errs = append(errs, s.blobs.Close())
	return errors.Join(errs...)
}

// WithDB runs fn against the current engine while holding the store lock,
// for read-only queries. Writes made through db are not persisted. The
// engine is replaced by Clear, so db must not be kept after fn returns.
func (s *SQLiteStore) WithDB(fn func(db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errClosed
	}
	return fn(s.db)
}

// UniqueKey reports whether the (tm, gln, gtin, tics) uniqueness constraint
// is in place.
func (s *SQLiteStore) UniqueKey() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniqueKey
}

// ────────────────────────────────────────────────────────────────────────────────
// Persistence
// ────────────────────────────────────────────────────────────────────────────────

// Snapshot returns the serialized database image.
func (s *SQLiteStore) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errClosed
	}
	return serialize(ctx, s.db)
}

// Flush persists the current state.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *SQLiteStore) flushLocked(ctx context.Context) error {
	if s.db == nil {
		return errClosed
	}
	image, err := serialize(ctx, s.db)
	if err != nil {
		return fmt.Errorf("serialize database: %w", err)
	}
	if err := s.blobs.Save(ctx, image); err != nil {
		return err
	}
	s.log.Debug("snapshot saved", "bytes", len(image))
	return nil
}

// Clear deletes the snapshot and reinitializes an empty database. The
// snapshot stays absent until the next mutation.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Clear(ctx); err != nil {
		return err
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("close engine", "error", err)
		}
		s.db = nil
	}
	if err := s.init(ctx, false); err != nil {
		return err
	}
	s.log.Info("all data cleared")
	return nil
}

var errClosed = errors.New("store is closed")

// ────────────────────────────────────────────────────────────────────────────────
// Queries
// ────────────────────────────────────────────────────────────────────────────────

// queryer is implemented by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryDocuments(ctx context.Context, q queryer, key model.Key) ([]model.Document, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT json_data FROM jsonData WHERE tm = ? AND gln = ? AND gtin = ? AND tics = ? ORDER BY id`,
		key.TM, key.GLN, key.GTIN, key.TICS)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode json_data: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func insertDocument(ctx context.Context, q queryer, key model.Key, doc *model.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO jsonData (tm, gln, gtin, tics, json_data) VALUES (?, ?, ?, ?, ?)`,
		key.TM, key.GLN, key.GTIN, key.TICS, string(raw))
	if err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	return nil
}

func updateDocuments(ctx context.Context, q queryer, key model.Key, doc *model.Document) (int64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE jsonData SET json_data = ? WHERE tm = ? AND gln = ? AND gtin = ? AND tics = ?`,
		string(raw), key.TM, key.GLN, key.GTIN, key.TICS)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", key, err)
	}
	return res.RowsAffected()
}

// Query implements store.Reader.
func (s *SQLiteStore) Query(ctx context.Context, key model.Key) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errClosed
	}
	return queryDocuments(ctx, s.db, key)
}

// Insert implements store.Writer.
func (s *SQLiteStore) Insert(ctx context.Context, key model.Key, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errClosed
	}
	if err := insertDocument(ctx, s.db, key, doc); err != nil {
		return err
	}
	return s.flushLocked(ctx)
}

// Update implements store.Writer.
func (s *SQLiteStore) Update(ctx context.Context, key model.Key, doc *model.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, errClosed
	}
	n, err := updateDocuments(ctx, s.db, key, doc)
	if err != nil {
		return 0, err
	}
	return n, s.flushLocked(ctx)
}

// All returns every stored document in id order.
func (s *SQLiteStore) All(ctx context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT json_data FROM jsonData ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return scanDocuments(rows)
}

// Count implements store.Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, errClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jsonData`).Scan(&n)
	return n, err
}

// ────────────────────────────────────────────────────────────────────────────────
// Transactions
// ────────────────────────────────────────────────────────────────────────────────

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Query(ctx context.Context, key model.Key) ([]model.Document, error) {
	return queryDocuments(ctx, t.tx, key)
}

func (t *sqliteTx) Insert(ctx context.Context, key model.Key, doc *model.Document) error {
	return insertDocument(ctx, t.tx, key, doc)
}

func (t *sqliteTx) Update(ctx context.Context, key model.Key, doc *model.Document) (int64, error) {
	return updateDocuments(ctx, t.tx, key, doc)
}

// WithTx implements store.Store.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return errClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return s.flushLocked(ctx)
}
