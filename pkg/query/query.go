// Package query provides read-only queries over the record table for
// reports and the CLI. Writes go through the merge engine instead.
package query

import (
	"context"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// QueryEngine provides the main query interface.
type QueryEngine interface {
	// Record queries
	GetRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error)
	GetRecordCount(ctx context.Context) (int, error)

	// Statistics
	GetGTINStats(ctx context.Context, limit int) ([]*GTINStat, error)
	GetOverview(ctx context.Context) (*Overview, error)
}

// RecordFilter defines filters for record queries.
type RecordFilter struct {
	// Offset for pagination
	Offset int
	// Limit for pagination (0 means no limit)
	Limit int

	// Exact key filters; empty means any
	TM   string
	GLN  string
	GTIN string
	TICS string

	// Case-insensitive substring of tm, gln or gtin
	SearchText string

	// Sorting
	SortBy    string // "id", "tm", "gln", "gtin", "tics"
	SortOrder string // "asc", "desc"
}

// GTINStat holds per-gtin statistics.
type GTINStat struct {
	GTIN string `db:"gtin"`
	// Distinct (tm, gln) pairs
	Groups     int `db:"group_count"`
	Records    int `db:"records"`
	Properties int `db:"properties"`
	Events     int `db:"events"`
}

// Overview provides high-level summary information.
type Overview struct {
	SchemaVersion int
	UniqueKey     bool
	SnapshotBytes int

	Records int `db:"records"`
	Groups  int `db:"group_count"`
	GTINs   int `db:"gtins"`

	Properties int `db:"properties"`
	Events     int `db:"events"`

	// Records carrying both properties and CSV events
	MatchedRecords int `db:"matched"`
	// Records carrying only one of them
	PropertyOnlyRecords int `db:"property_only"`
	EventOnlyRecords    int `db:"event_only"`
}
