package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/store/sqlite"
)

// SQLiteEngine implements QueryEngine using SQLite storage. Every query
// goes through the store's current engine, so it keeps working after Clear.
type SQLiteEngine struct {
	store *sqlite.SQLiteStore
}

var _ QueryEngine = (*SQLiteEngine)(nil)

// NewSQLiteEngine creates a new SQLite-backed query engine.
func NewSQLiteEngine(store *sqlite.SQLiteStore) *SQLiteEngine {
	return &SQLiteEngine{store: store}
}

// withDB runs fn on an sqlx handle over the store's current engine.
func (e *SQLiteEngine) withDB(fn func(db *sqlx.DB) error) error {
	return e.store.WithDB(func(db *sql.DB) error {
		return fn(sqlx.NewDb(db, "sqlite3"))
	})
}

const table = "jsonData"

// Array lengths of the two sub-lists inside json_data; absent lists count 0.
// "$$" is the builder's escape for a literal "$".
const (
	propertyLen = `COALESCE(json_array_length(json_data, '$$.properties'), 0)`
	eventLen    = `COALESCE(json_array_length(json_data, '$$.csv'), 0)`
)

var sortColumns = map[string]string{
	"id":   "id",
	"tm":   "tm",
	"gln":  "gln",
	"gtin": "gtin",
	"tics": "tics",
}

type recordRow struct {
	ID       int64          `db:"id"`
	TM       string         `db:"tm"`
	GLN      string         `db:"gln"`
	GTIN     string         `db:"gtin"`
	TICS     string         `db:"tics"`
	JSONData sql.NullString `db:"json_data"`
}

// GetRecords retrieves records with optional filtering.
func (e *SQLiteEngine) GetRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "tm", "gln", "gtin", "tics", "json_data")
	sb.From(table)

	if filter.TM != "" {
		sb.Where(sb.Equal("tm", filter.TM))
	}
	if filter.GLN != "" {
		sb.Where(sb.Equal("gln", filter.GLN))
	}
	if filter.GTIN != "" {
		sb.Where(sb.Equal("gtin", filter.GTIN))
	}
	if filter.TICS != "" {
		sb.Where(sb.Equal("tics", filter.TICS))
	}
	if filter.SearchText != "" {
		pattern := sb.Var("%" + escapeLike(filter.SearchText) + "%")
		sb.Where(sb.Or(
			"tm LIKE "+pattern+` ESCAPE '\'`,
			"gln LIKE "+pattern+` ESCAPE '\'`,
			"gtin LIKE "+pattern+` ESCAPE '\'`,
		))
	}

	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = "id"
	}
	order := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		order = "DESC"
	}
	sb.OrderBy(col+" "+order, "id ASC")

	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
		sb.Offset(filter.Offset)
	}

	query, args := sb.Build()
	var rows []recordRow
	err := e.withDB(func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	records := make([]*model.Record, len(rows))
	for i, r := range rows {
		records[i] = &model.Record{
			ID:       r.ID,
			Key:      model.Key{TM: r.TM, GLN: r.GLN, GTIN: r.GTIN, TICS: r.TICS},
			JSONData: r.JSONData.String,
		}
	}
	return records, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetRecordCount returns total record count.
func (e *SQLiteEngine) GetRecordCount(ctx context.Context) (int, error) {
	return e.store.Count(ctx)
}

// GetGTINStats returns per-gtin statistics, largest first. A non-positive
// limit returns every gtin.
func (e *SQLiteEngine) GetGTINStats(ctx context.Context, limit int) ([]*GTINStat, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(
		"gtin",
		sb.As("COUNT(DISTINCT tm || char(31) || gln)", "group_count"),
		sb.As("COUNT(*)", "records"),
		sb.As("SUM("+propertyLen+")", "properties"),
		sb.As("SUM("+eventLen+")", "events"),
	)
	sb.From(table)
	sb.GroupBy("gtin")
	sb.OrderBy("records DESC", "gtin ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var stats []*GTINStat
	err := e.withDB(func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &stats, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("query gtin stats: %w", err)
	}
	return stats, nil
}

// GetOverview returns high-level summary.
func (e *SQLiteEngine) GetOverview(ctx context.Context) (*Overview, error) {
	overview := &Overview{UniqueKey: e.store.UniqueKey()}

	if v, err := e.store.SchemaVersion(ctx); err == nil {
		overview.SchemaVersion = v
	}
	if image, err := e.store.Snapshot(ctx); err == nil {
		overview.SnapshotBytes = len(image)
	}

	count := func(cond string) string {
		return "COALESCE(SUM(CASE WHEN " + cond + " THEN 1 ELSE 0 END), 0)"
	}
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(
		sb.As("COUNT(*)", "records"),
		sb.As("COUNT(DISTINCT tm || char(31) || gln || char(31) || gtin)", "group_count"),
		sb.As("COUNT(DISTINCT gtin)", "gtins"),
		sb.As("COALESCE(SUM("+propertyLen+"), 0)", "properties"),
		sb.As("COALESCE(SUM("+eventLen+"), 0)", "events"),
		sb.As(count(propertyLen+" > 0 AND "+eventLen+" > 0"), "matched"),
		sb.As(count(propertyLen+" > 0 AND "+eventLen+" = 0"), "property_only"),
		sb.As(count(propertyLen+" = 0 AND "+eventLen+" > 0"), "event_only"),
	)
	sb.From(table)

	query, args := sb.Build()
	err := e.withDB(func(db *sqlx.DB) error {
		return db.GetContext(ctx, overview, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}
	return overview, nil
}
