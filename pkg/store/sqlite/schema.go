package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/Zerofisher/ticsmerge/pkg/store"
)

const schema = `
-- Meta table for store metadata
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

-- One row per (tm, gln, gtin, tics); json_data holds the merged document
CREATE TABLE IF NOT EXISTS jsonData (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	tm        TEXT,
	gln       TEXT,
	gtin      TEXT,
	tics      TEXT,
	json_data TEXT
);
`

const (
	uniqueKeyIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_jsondata_key ON jsonData(tm, gln, gtin, tics)`
	lookupKeyIndex = `CREATE INDEX IF NOT EXISTS idx_jsondata_lookup ON jsonData(tm, gln, gtin, tics)`
)

// initSchema creates the tables if they are absent. It reports whether the
// unique key index could be created; a snapshot written before the index
// existed may already hold duplicate keys, in which case a plain lookup
// index is used instead.
func initSchema(ctx context.Context, db *sql.DB) (bool, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return false, fmt.Errorf("execute schema: %w", err)
	}

	unique := true
	if _, err := db.ExecContext(ctx, uniqueKeyIndex); err != nil {
		dup, qerr := hasDuplicateKeys(ctx, db)
		if qerr != nil || !dup {
			return false, fmt.Errorf("create key index: %w", err)
		}
		unique = false
		if _, err := db.ExecContext(ctx, lookupKeyIndex); err != nil {
			return false, fmt.Errorf("create lookup index: %w", err)
		}
	}

	_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		"schema_version", strconv.Itoa(store.SchemaVersion))
	if err != nil {
		return false, fmt.Errorf("set schema version: %w", err)
	}
	return unique, nil
}

func hasDuplicateKeys(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM jsonData
			GROUP BY tm, gln, gtin, tics
			HAVING COUNT(*) > 1
		)`).Scan(&n)
	return n > 0, err
}

// SchemaVersion returns the version recorded in the meta table.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, errClosed
	}
	var v string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, "schema_version").Scan(&v); err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}
