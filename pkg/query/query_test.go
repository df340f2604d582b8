package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/ticsmerge/pkg/blob"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/store"
	"github.com/Zerofisher/ticsmerge/pkg/store/sqlite"
)

func seed(t *testing.T) *SQLiteEngine {
	t.Helper()
	ctx := context.Background()
	s, err := sqlite.Open(ctx, sqlite.Config{Blobs: blob.NewMemoryStore()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	docs := []model.Document{
		{TM: "Acme", GLN: "1", GTIN: "400", TICS: "X",
			Properties: []model.Property{{MNumber: "M1"}, {MNumber: "M2"}},
			CSV:        []model.CsvEvent{{EventNo: "1"}}},
		{TM: "Acme", GLN: "1", GTIN: "400", TICS: "Y",
			Properties: []model.Property{{MNumber: "M1"}}},
		{TM: "Beta_Co", GLN: "2", GTIN: "400", TICS: "X",
			CSV: []model.CsvEvent{{EventNo: "2"}, {EventNo: "3"}}},
		{TM: "Gamma", GLN: "3", GTIN: "401", TICS: "Z"},
	}
	for i := range docs {
		require.NoError(t, s.Insert(ctx, docs[i].Key(), &docs[i]))
	}
	return NewSQLiteEngine(s)
}

func TestGetOverview(t *testing.T) {
	e := seed(t)
	o, err := e.GetOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, store.SchemaVersion, o.SchemaVersion)
	assert.True(t, o.UniqueKey)
	assert.Positive(t, o.SnapshotBytes)
	assert.Equal(t, 4, o.Records)
	assert.Equal(t, 3, o.Groups)
	assert.Equal(t, 2, o.GTINs)
	assert.Equal(t, 3, o.Properties)
	assert.Equal(t, 3, o.Events)
	assert.Equal(t, 1, o.MatchedRecords)
	assert.Equal(t, 1, o.PropertyOnlyRecords)
	assert.Equal(t, 1, o.EventOnlyRecords)
}

func TestGetGTINStats(t *testing.T) {
	e := seed(t)
	stats, err := e.GetGTINStats(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, GTINStat{GTIN: "400", Groups: 2, Records: 3, Properties: 3, Events: 3}, *stats[0])
	assert.Equal(t, "401", stats[1].GTIN)

	stats, err = e.GetGTINStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, stats, 1)
}

func TestGetRecords(t *testing.T) {
	ctx := context.Background()
	e := seed(t)

	all, err := e.GetRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.EqualValues(t, 1, all[0].ID)
	assert.Contains(t, all[0].JSONData, `"m-number":"M1"`)

	byGTIN, err := e.GetRecords(ctx, RecordFilter{GTIN: "400", SortBy: "tics", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, byGTIN, 3)
	assert.Equal(t, "Y", byGTIN[0].Key.TICS)

	search, err := e.GetRecords(ctx, RecordFilter{SearchText: "acm"})
	require.NoError(t, err)
	assert.Len(t, search, 2)

	underscore, err := e.GetRecords(ctx, RecordFilter{SearchText: "a_m"})
	require.NoError(t, err)
	assert.Empty(t, underscore, "underscore is literal")

	page, err := e.GetRecords(ctx, RecordFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.EqualValues(t, 3, page[0].ID)

	n, err := e.GetRecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestEngineSurvivesClear(t *testing.T) {
	ctx := context.Background()
	e := seed(t)
	require.NoError(t, e.store.Clear(ctx))

	records, err := e.GetRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	o, err := e.GetOverview(ctx)
	require.NoError(t, err)
	assert.Zero(t, o.Records)
	assert.Zero(t, o.Events)
}
