package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

func TestParseCSVSemicolon(t *testing.T) {
	rows := ParseCSV("tm;gln;gtin;tics;virpcs\nA;B;C;D;9\n")
	require.Len(t, rows, 1)

	ev := MapCSVRow(rows[0])
	assert.Equal(t, "9", ev.EventNo)
	assert.Equal(t, model.Key{TM: "A", GLN: "B", GTIN: "C", TICS: "D"}, ev.Key())
}

func TestParseCSVDropsMismatchedRows(t *testing.T) {
	text := "tm;gln;gtin;tics;virpcs\r\nA;B;C;D;9\r\nA;B;C\r\n\r\nA;B;C;D;10;extra\nE;F;G;H;11\n"
	report := ParseCSVReport(text)

	assert.Equal(t, ";", report.Delimiter)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "9", report.Rows[0]["virpcs"])
	assert.Equal(t, "11", report.Rows[1]["virpcs"])
	assert.Equal(t, []int{3, 5}, report.Dropped)
}

func TestParseCSVCommaAndTrim(t *testing.T) {
	rows := ParseCSV(" tm , gln ,gtin,tics,virpcs,certificationState\n A ,B,C,D, 7 , ok \n")
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["tm"])
	assert.Equal(t, "7", rows[0]["virpcs"])

	ev := MapCSVRow(rows[0])
	assert.Equal(t, "ok", ev.Siegel)
	assert.Empty(t, ev.DatumSichtpruefung)
}

func TestParseCSVEmpty(t *testing.T) {
	assert.Empty(t, ParseCSV(""))
	assert.Empty(t, ParseCSV("\n\n  \n"))
	assert.Empty(t, ParseCSV("tm;gln;gtin;tics\n"))
}

func TestParseCSVEventsRoundTripsEventRow(t *testing.T) {
	ev := model.CsvEvent{
		TM: "A", GLN: "B", GTIN: "C", TICS: "D", EventNo: "1",
		DatumSichtpruefung: "2024-01-01", Siegel: "ok",
	}
	text := ""
	for i, col := range Columns {
		if i > 0 {
			text += ";"
		}
		text += col
	}
	text += "\n"
	for i, f := range EventRow(&ev) {
		if i > 0 {
			text += ";"
		}
		text += f
	}

	events, report := ParseCSVEvents(text)
	assert.Empty(t, report.Dropped)
	require.Len(t, events, 1)
	assert.Equal(t, ev, events[0])
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument("a.json", []byte(`{
		"tm": "T1", "gln": 4012345000009, "gtin": "0401", "tics": "X",
		"properties": [
			{"m-number": "M1", "values": [
				{"name": "color", "value": "red"},
				{"name": "size", "value": 3},
				{"name": "color", "value": "blue"}
			]},
			{"m-number": "M2", "values": {"b": 1, "a": "x"}},
			{"m-number": "M3", "flat": true}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, model.Key{TM: "T1", GLN: "4012345000009", GTIN: "0401", TICS: "X"}, doc.Key())
	require.Len(t, doc.Properties, 3)

	color, ok := doc.Properties[0].Get("color")
	require.True(t, ok)
	assert.Equal(t, []any{"red", "blue"}, color)
	assert.Equal(t, "color", doc.Properties[0].Fields[0].Name)
	assert.Equal(t, "size", doc.Properties[0].Fields[1].Name)

	assert.Equal(t, "a", doc.Properties[1].Fields[0].Name)
	assert.Equal(t, "b", doc.Properties[1].Fields[1].Name)

	flat, ok := doc.Properties[2].Get("flat")
	require.True(t, ok)
	assert.Equal(t, true, flat)
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		validation bool
	}{
		{"malformed", `{"tm": `, false},
		{"garbage", `not json`, false},
		{"array", `[1, 2]`, true},
		{"scalar", `"x"`, true},
		{"empty object", `{}`, true},
		{"missing key", `{"tm": "A", "gln": "B", "gtin": "C"}`, true},
		{"empty key", `{"tm": "A", "gln": "B", "gtin": "C", "tics": ""}`, true},
		{"object key", `{"tm": {}, "gln": "B", "gtin": "C", "tics": "D"}`, true},
		{"bad properties", `{"tm": "A", "gln": "B", "gtin": "C", "tics": "D", "properties": {}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument("in.json", []byte(tt.input))
			require.Error(t, err)
			var perr *ParseError
			var verr *ValidationError
			if tt.validation {
				assert.True(t, errors.As(err, &verr), "want ValidationError, got %T: %v", err, err)
			} else {
				assert.True(t, errors.As(err, &perr), "want ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseDocumentReportsMissingFields(t *testing.T) {
	_, err := ParseDocument("", []byte(`{"gln": "B", "gtin": "C"}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "tics")
	assert.Contains(t, verr.Reason, "tm")
	assert.NotContains(t, verr.Reason, "gtin")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := []model.Property{{
		MNumber: "M1",
		Fields: []model.Field{{Name: "values", Value: []any{
			map[string]any{"name": "a", "value": "1"},
			map[string]any{"name": "a", "value": "2"},
			map[string]any{"name": "a", "value": "3"},
		}}},
	}}
	once := NormalizeProperties(raw)
	twice := NormalizeProperties(once)
	assert.Equal(t, once, twice)

	a, _ := once[0].Get("a")
	assert.Equal(t, []any{"1", "2", "3"}, a)
}

func TestNormalizeKeepsValueNamedValues(t *testing.T) {
	doc, err := ParseDocument("", []byte(`{"tm":"A","gln":"B","gtin":"C","tics":"D",
 "properties":[{"m-number":"M1","values":[{"name":"values","value":"42"},{"name":"unit","value":"kg"}]}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Properties, 1)

	want := []model.Field{{Name: "values", Value: "42"}, {Name: "unit", Value: "kg"}}
	assert.Equal(t, want, doc.Properties[0].Fields)
	assert.Equal(t, doc.Properties, NormalizeProperties(doc.Properties))
}

func TestNormalizeRawForms(t *testing.T) {
	tests := []struct {
		name string
		in   model.Property
		want []model.Field
	}{
		{
			"map form",
			model.Property{MNumber: "M1", Fields: []model.Field{{Name: "values", Value: map[string]any{"b": "2", "a": "1"}}}},
			[]model.Field{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}},
		},
		{
			"scalar values is flat",
			model.Property{MNumber: "M1", Fields: []model.Field{{Name: "values", Value: "42"}}},
			[]model.Field{{Name: "values", Value: "42"}},
		},
		{
			"list without names is flat",
			model.Property{MNumber: "M1", Fields: []model.Field{{Name: "values", Value: []any{"x", "y"}}}},
			[]model.Field{{Name: "values", Value: []any{"x", "y"}}},
		},
		{
			"other members present",
			model.Property{MNumber: "M1", Fields: []model.Field{
				{Name: "values", Value: map[string]any{"a": "1"}},
				{Name: "unit", Value: "kg"},
			}},
			[]model.Field{{Name: "values", Value: map[string]any{"a": "1"}}, {Name: "unit", Value: "kg"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := NormalizeProperty(tt.in)
			assert.Equal(t, "M1", once.MNumber)
			assert.Equal(t, tt.want, once.Fields)
			assert.Equal(t, once, NormalizeProperty(once))
		})
	}
}

func TestDetectKindAndReadFile(t *testing.T) {
	assert.Equal(t, KindJSON, DetectKind("x.JSON", nil))
	assert.Equal(t, KindCSV, DetectKind("x.csv", nil))
	assert.Equal(t, KindJSON, DetectKind("noext", []byte(" {\"tm\":1}")))
	assert.Equal(t, KindCSV, DetectKind("noext", []byte("tm;gln\nA;B")))
	assert.Equal(t, KindUnknown, DetectKind("x.png", []byte("{")))

	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("tm;gln;gtin;tics;virpcs\n"), 0o644))

	in, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, KindCSV, in.Kind)
	assert.Equal(t, "events.csv", in.Name)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))

	bad := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(bad, []byte{0x89}, 0o644))
	_, err = ReadFile(bad)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
