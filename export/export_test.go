package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/ticsmerge/pkg/ingest"
	"github.com/Zerofisher/ticsmerge/pkg/model"
)

func testGroups() []model.Group {
	return []model.Group{
		{
			TM: "A", GLN: "B", GTIN: "C",
			TicsData: []model.TicsEntry{
				{
					TICS: "X",
					Properties: []model.Property{{MNumber: "M1", Fields: []model.Field{
						{Name: "z", Value: "1"},
						{Name: "a", Value: []any{"x", "y"}},
					}}},
					CSV: []model.CsvEvent{{TM: "A", GLN: "B", GTIN: "C", TICS: "X", EventNo: "9", Siegel: "ok"}},
				},
				{TICS: "Y", Properties: []model.Property{}, CSV: []model.CsvEvent{}},
			},
		},
		{TM: "D", GLN: "E", GTIN: "F", TicsData: []model.TicsEntry{}},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	groups := testGroups()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, groups))

	got, err := ReadJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, groups, got)

	var again bytes.Buffer
	require.NoError(t, WriteJSON(&again, got))
	assert.JSONEq(t, buf.String(), again.String())
}

func TestJSONShape(t *testing.T) {
	groups := []model.Group{{TM: "A", GLN: "B", GTIN: "C", TicsData: []model.TicsEntry{{TICS: "X"}}}}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, groups))
	assert.JSONEq(t, `[{"tm":"A","gln":"B","gtin":"C","ticsData":[{"tics":"X","properties":[],"csv":[]}]}]`, buf.String())
	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {\n    \"tm\""), buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
	var empty []any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &empty))
	assert.Empty(t, empty)
}

func TestPropertyMemberOrderIsKept(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testGroups()))
	out := buf.String()
	assert.Less(t, strings.Index(out, `"m-number"`), strings.Index(out, `"z"`))
	assert.Less(t, strings.Index(out, `"z"`), strings.Index(out, `"a"`))
}

func TestReadJSONMalformed(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`[{"tm":`))
	var perr *ingest.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestCSVEventsReadBack(t *testing.T) {
	var buf bytes.Buffer
	e := NewExporter(&buf, FormatCSVEvents)
	require.NoError(t, e.ExportAll(testGroups()))
	assert.Equal(t, 2, e.Count())
	assert.Equal(t, 1, e.Events())

	events, report := ingest.ParseCSVEvents(buf.String())
	assert.Empty(t, report.Dropped)
	require.Len(t, events, 1)
	assert.Equal(t, testGroups()[0].TicsData[0].CSV[0], events[0])
}

func TestFieldsFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(&buf, FormatFields).ExportAll(testGroups()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "A\tB\tC\tX,Y\tM1\t1", lines[1])
	assert.Equal(t, "D\tE\tF\t\t\t0", lines[2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv-events")
	require.NoError(t, err)
	assert.Equal(t, FormatCSVEvents, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
