package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/ticsmerge/pkg/blob"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/store"
)

var testKey = model.Key{TM: "A", GLN: "B", GTIN: "C", TICS: "D"}

func testDoc(mNumbers ...string) *model.Document {
	doc := &model.Document{TM: "A", GLN: "B", GTIN: "C", TICS: "D"}
	for _, m := range mNumbers {
		doc.Properties = append(doc.Properties, model.Property{
			MNumber: m,
			Fields:  []model.Field{{Name: "v", Value: m + "-value"}},
		})
	}
	return doc
}

func openTestStore(t *testing.T, blobs blob.Store) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), Config{Blobs: blobs})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenPersistsEmptySchema(t *testing.T) {
	blobs := blob.NewMemoryStore()
	s := openTestStore(t, blobs)

	image, err := blobs.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, image)
	assert.True(t, s.UniqueKey())

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, v)
}

func TestInsertQueryUpdate(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	s := openTestStore(t, blobs)
	saves := blobs.Saves()

	docs, err := s.Query(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, s.Insert(ctx, testKey, testDoc("M1")))
	assert.Equal(t, saves+1, blobs.Saves(), "insert flushes")

	docs, err = s.Query(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "M1", docs[0].Properties[0].MNumber)

	n, err := s.Update(ctx, testKey, testDoc("M1", "M2"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, saves+2, blobs.Saves(), "update flushes")

	docs, err = s.Query(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Properties, 2)

	other := testKey
	other.TICS = "E"
	docs, err = s.Query(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDuplicateInsertRejected(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, blob.NewMemoryStore())

	require.NoError(t, s.Insert(ctx, testKey, testDoc("M1")))
	assert.Error(t, s.Insert(ctx, testKey, testDoc("M2")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fileBlobs, err := blob.NewFileStore(dir, blob.DefaultKey)
	require.NoError(t, err)
	s, err := Open(ctx, Config{Blobs: fileBlobs})
	require.NoError(t, err)

	for _, tics := range []string{"1", "2", "3"} {
		key := testKey
		key.TICS = tics
		doc := testDoc("M" + tics)
		doc.TICS = tics
		require.NoError(t, s.Insert(ctx, key, doc))
	}
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, blob.DefaultKey))

	fileBlobs, err = blob.NewFileStore(dir, blob.DefaultKey)
	require.NoError(t, err)
	s2 := openTestStore(t, fileBlobs)

	docs, err := s2.All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "1", docs[0].TICS)
	assert.Equal(t, "3", docs[2].TICS)

	// The restored database must still accept writes.
	key := testKey
	key.TICS = "4"
	require.NoError(t, s2.Insert(ctx, key, testDoc("M4")))

	var count, maxID int64
	require.NoError(t, s2.WithDB(func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(id) FROM jsonData`).Scan(&count, &maxID)
	}))
	assert.EqualValues(t, 4, count)
	assert.EqualValues(t, 4, maxID)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	s := openTestStore(t, blobs)

	require.NoError(t, s.Insert(ctx, testKey, testDoc("M1")))
	require.NoError(t, s.Clear(ctx))

	docs, err := s.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = blobs.Load(ctx)
	assert.ErrorIs(t, err, blob.ErrNotFound, "blob key absent after clear")

	// The handle stays usable.
	require.NoError(t, s.Insert(ctx, testKey, testDoc("M9")))
	_, err = blobs.Load(ctx)
	assert.NoError(t, err)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	s := openTestStore(t, blobs)
	saves := blobs.Saves()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Insert(ctx, testKey, testDoc("M1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, saves, blobs.Saves(), "no flush after rollback")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWithTxCommitsOnce(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	s := openTestStore(t, blobs)
	saves := blobs.Saves()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Insert(ctx, testKey, testDoc("M1")); err != nil {
			return err
		}
		docs, err := tx.Query(ctx, testKey)
		if err != nil {
			return err
		}
		docs[0].Properties = append(docs[0].Properties, model.Property{MNumber: "M2"})
		_, err = tx.Update(ctx, testKey, &docs[0])
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, saves+1, blobs.Saves())

	docs, err := s.Query(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Len(t, docs[0].Properties, 2)
}

func TestLegacySnapshotWithDuplicates(t *testing.T) {
	ctx := context.Background()

	legacy, err := openEngine()
	require.NoError(t, err)
	_, err = legacy.ExecContext(ctx, schema)
	require.NoError(t, err)
	raw, err := json.Marshal(testDoc("M1"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = legacy.ExecContext(ctx,
			`INSERT INTO jsonData (tm, gln, gtin, tics, json_data) VALUES (?, ?, ?, ?, ?)`,
			"A", "B", "C", "D", string(raw))
		require.NoError(t, err)
	}
	image, err := serialize(ctx, legacy)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	blobs := blob.NewMemoryStore()
	require.NoError(t, blobs.Save(ctx, image))

	s := openTestStore(t, blobs)
	assert.False(t, s.UniqueKey())

	n, err := s.Update(ctx, testKey, testDoc("M1", "M2"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "update overwrites every matching record")
}

func TestOpenFailsOnCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemoryStore()
	require.NoError(t, blobs.Save(ctx, []byte("definitely not a database file, but long enough to look like one")))

	_, err := Open(ctx, Config{Blobs: blobs})
	var initErr *store.InitError
	require.True(t, errors.As(err, &initErr), "got %v", err)
}

func TestOpenWithoutBlobs(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	var initErr *store.InitError
	assert.True(t, errors.As(err, &initErr))
}
