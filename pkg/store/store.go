// Package store defines the storage interface for merged documents and its
// error types. The SQLite implementation lives in store/sqlite.
package store

import (
	"context"
	"fmt"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// SchemaVersion is incremented when the table layout changes.
const SchemaVersion = 2

// Store is the relational store of merged documents. Every mutation is
// persisted to the blob store before the call returns.
type Store interface {
	Reader
	Writer

	// All returns every stored document in insertion order.
	All(ctx context.Context) ([]model.Document, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// WithTx runs fn inside one transaction. The snapshot is persisted once,
	// after a successful commit. If fn fails nothing is applied.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Clear deletes the persisted snapshot and starts over with an empty
	// table.
	Clear(ctx context.Context) error

	// Flush persists the current state.
	Flush(ctx context.Context) error

	Close() error
}

// Reader is the read side of the store.
type Reader interface {
	// Query returns the documents stored under key (possibly none).
	Query(ctx context.Context, key model.Key) ([]model.Document, error)
}

// Writer is the write side of the store.
type Writer interface {
	// Insert adds a new record for key.
	Insert(ctx context.Context, key model.Key, doc *model.Document) error

	// Update overwrites every record matching key and returns how many
	// records were written.
	Update(ctx context.Context, key model.Key, doc *model.Document) (int64, error)
}

// Tx is the transactional view passed to WithTx. Its writes are not
// persisted individually.
type Tx interface {
	Reader
	Writer
}

// InitError reports that the engine or its blob store could not be brought
// up. The store is unusable until it is opened again.
type InitError struct {
	Op  string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("store init: %s: %v", e.Op, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
