package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

func prop(m, name, value string) model.Property {
	return model.Property{MNumber: m, Fields: []model.Field{{Name: name, Value: value}}}
}

func sampleGroups() []model.Group {
	return []model.Group{
		{TM: "Beta", GLN: "2", GTIN: "400", TicsData: []model.TicsEntry{
			{TICS: "X", Properties: []model.Property{prop("M1", "color", "red")},
				CSV: []model.CsvEvent{{TM: "Beta", GLN: "2", GTIN: "400", TICS: "X", EventNo: "7", Siegel: "ok"}}},
			{TICS: "Y", Properties: []model.Property{prop("M1", "color", "blue")}},
		}},
		{TM: "Alpha", GLN: "1", GTIN: "401", TicsData: []model.TicsEntry{
			{TICS: "Z", Properties: []model.Property{prop("M2", "size", "3")}},
		}},
	}
}

func TestTable(t *testing.T) {
	r := NewRenderer(false, 0)
	out := r.Table(view.Paginate(sampleGroups(), 0, 10))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "No.  TM"))
	assert.Contains(t, lines[0], "Differences")
	assert.True(t, strings.HasPrefix(lines[1], "1    Alpha"), lines[1])
	assert.Contains(t, lines[2], "X, Y")
	assert.Contains(t, lines[2], "M1")
	assert.True(t, strings.HasSuffix(lines[2], "1"))
	assert.Equal(t, "Page 1 of 1 (2 groups)", lines[3])
}

func TestTableOffsetNumbers(t *testing.T) {
	r := NewRenderer(false, 0)
	out := r.Table(view.Paginate(sampleGroups(), 1, 1))
	assert.Contains(t, out, "2    Beta")
	assert.Contains(t, out, "Page 2 of 2 (2 groups)")
}

func TestTableEmpty(t *testing.T) {
	r := NewRenderer(false, 0)
	assert.Equal(t, "No groups.\n", r.Table(view.Paginate(nil, 0, 10)))
}

func TestDetailsTabs(t *testing.T) {
	r := NewRenderer(false, 0)
	g := &sampleGroups()[0]

	out, err := r.Details(g, TabFormatted)
	require.NoError(t, err)
	assert.Contains(t, out, "Beta / 2 / 400")
	assert.Contains(t, out, "TICS X")
	assert.Contains(t, out, "M1  color: red")
	assert.Contains(t, out, "CSV events (1)")
	assert.Contains(t, out, "eventno: 7")
	assert.NotContains(t, out, "tm: Beta")

	out, err = r.Details(g, TabRaw)
	require.NoError(t, err)
	assert.Contains(t, out, `"m-number": "M1"`)
	assert.Contains(t, out, `"eventno": "7"`)

	out, err = r.Details(g, TabDifferences)
	require.NoError(t, err)
	assert.Contains(t, out, "m-number  X")
	assert.Contains(t, out, "color: red")
	assert.Contains(t, out, "color: blue")

	out, err = r.Details(&sampleGroups()[1], TabDifferences)
	require.NoError(t, err)
	assert.Contains(t, out, "No differences.")
}

func TestParseTab(t *testing.T) {
	for _, name := range []string{"formatted", "RAW", "differences"} {
		tab, err := ParseTab(name)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(name), tab.String())
	}
	_, err := ParseTab("json")
	assert.Error(t, err)
}

func TestStatusAndGTINs(t *testing.T) {
	r := NewRenderer(false, 0)
	assert.Equal(t, "Error: Failed to parse JSON.\n", r.Status("Failed to parse JSON.", true))
	assert.Equal(t, "Imported.\n", r.Status("Imported.", false))
	assert.Equal(t, "GTINs\n400\n401\n", r.GTINs([]string{"400", "401"}))
	assert.Equal(t, "No gtins.\n", r.GTINs(nil))
}

func TestRecords(t *testing.T) {
	r := NewRenderer(false, 0)
	records := []*model.Record{
		{ID: 1, Key: model.Key{TM: "Acme", GLN: "1", GTIN: "400", TICS: "X"},
			JSONData: `{"tm":"Acme","gln":"1","gtin":"400","tics":"X","properties":[{"m-number":"M1"},{"m-number":"M2"}],"csv":[{"eventno":"7"}]}`},
		{ID: 12, Key: model.Key{TM: "Beta", GLN: "2", GTIN: "401", TICS: "Y"},
			JSONData: `{"tm":"Beta","gln":"2","gtin":"401","tics":"Y"}`},
	}
	out, err := r.Records(records, 5)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "ID  TM"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1   Acme"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "2           1"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "12  Beta"), lines[2])
	assert.Equal(t, "2 of 5 records", lines[3])

	out, err = r.Records(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "No records.\n", out)

	_, err = r.Records([]*model.Record{{ID: 3, JSONData: "{"}}, 1)
	assert.Error(t, err)
}
