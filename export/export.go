// Package export provides group export functionality in various formats
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Zerofisher/ticsmerge/pkg/ingest"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

// DefaultFileName is the file name offered for a JSON export.
const DefaultFileName = "export.json"

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON      OutputFormat = "json"
	FormatCSVEvents OutputFormat = "csv-events"
	FormatFields    OutputFormat = "fields"
)

// Formats lists the supported formats.
var Formats = []OutputFormat{FormatJSON, FormatCSVEvents, FormatFields}

// ParseFormat validates a format name.
func ParseFormat(s string) (OutputFormat, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Exporter handles group export
type Exporter struct {
	format     OutputFormat
	writer     io.Writer
	count      int  // groups exported
	events     int  // csv rows written
	firstGroup bool // track first group for JSON array
}

// NewExporter creates a new exporter
func NewExporter(w io.Writer, format OutputFormat) *Exporter {
	return &Exporter{
		format:     format,
		writer:     w,
		firstGroup: true,
	}
}

// Count returns the number of groups exported so far.
func (e *Exporter) Count() int { return e.count }

// Events returns the number of CSV event rows written so far.
func (e *Exporter) Events() int { return e.events }

// Start writes any header needed for the format
func (e *Exporter) Start() error {
	switch e.format {
	case FormatJSON:
		_, err := fmt.Fprint(e.writer, "[")
		return err
	case FormatCSVEvents:
		_, err := fmt.Fprintln(e.writer, strings.Join(ingest.Columns, ";"))
		return err
	case FormatFields:
		_, err := fmt.Fprintln(e.writer, "tm\tgln\tgtin\ttics\tdifferences\tcsv")
		return err
	}
	return nil
}

// Finish writes any footer needed for the format
func (e *Exporter) Finish() error {
	if e.format == FormatJSON {
		closing := "\n]\n"
		if e.firstGroup {
			closing = "]\n"
		}
		_, err := fmt.Fprint(e.writer, closing)
		return err
	}
	return nil
}

// ExportGroup exports a single group
func (e *Exporter) ExportGroup(g *model.Group) error {
	var err error
	switch e.format {
	case FormatJSON:
		err = e.exportJSON(g)
	case FormatCSVEvents:
		err = e.exportEvents(g)
	case FormatFields:
		err = e.exportFields(g)
	default:
		err = fmt.Errorf("unknown export format %q", e.format)
	}

	if err == nil {
		e.count++
	}
	return err
}

// ExportAll runs Start, ExportGroup for every group and Finish.
func (e *Exporter) ExportAll(groups []model.Group) error {
	if err := e.Start(); err != nil {
		return err
	}
	for i := range groups {
		if err := e.ExportGroup(&groups[i]); err != nil {
			return err
		}
	}
	return e.Finish()
}

// exportJSON writes the group as one indented element of the array.
func (e *Exporter) exportJSON(g *model.Group) error {
	data, err := json.MarshalIndent(withEmptySlices(g), "  ", "  ")
	if err != nil {
		return err
	}

	if e.firstGroup {
		e.firstGroup = false
		_, err = fmt.Fprintf(e.writer, "\n  %s", data)
	} else {
		_, err = fmt.Fprintf(e.writer, ",\n  %s", data)
	}
	return err
}

// withEmptySlices returns a copy whose nil lists encode as [] rather than null.
func withEmptySlices(g *model.Group) model.Group {
	out := *g
	out.TicsData = make([]model.TicsEntry, len(g.TicsData))
	for i, entry := range g.TicsData {
		if entry.Properties == nil {
			entry.Properties = []model.Property{}
		}
		if entry.CSV == nil {
			entry.CSV = []model.CsvEvent{}
		}
		out.TicsData[i] = entry
	}
	return out
}

// exportEvents writes one ';'-separated row per CSV event, readable by the
// CSV ingester. Values must not contain the delimiter.
func (e *Exporter) exportEvents(g *model.Group) error {
	for i := range g.TicsData {
		for j := range g.TicsData[i].CSV {
			row := ingest.EventRow(&g.TicsData[i].CSV[j])
			if _, err := fmt.Fprintln(e.writer, strings.Join(row, ";")); err != nil {
				return err
			}
			e.events++
		}
	}
	return nil
}

// exportFields writes a tab separated summary line
func (e *Exporter) exportFields(g *model.Group) error {
	tics := make([]string, len(g.TicsData))
	for i := range g.TicsData {
		tics[i] = g.TicsData[i].TICS
	}
	_, err := fmt.Fprintf(e.writer, "%s\t%s\t%s\t%s\t%s\t%d\n",
		g.TM, g.GLN, g.GTIN,
		strings.Join(tics, ","),
		strings.Join(view.ComputeDifferences(g), ","),
		g.EventCount())
	return err
}

// WriteJSON writes groups as an indented JSON array.
func WriteJSON(w io.Writer, groups []model.Group) error {
	return NewExporter(w, FormatJSON).ExportAll(groups)
}

// ReadJSON reads a JSON array of groups as written by WriteJSON.
func ReadJSON(r io.Reader) ([]model.Group, error) {
	var groups []model.Group
	if err := json.NewDecoder(r).Decode(&groups); err != nil {
		return nil, &ingest.ParseError{Source: "import", Err: err}
	}
	return groups, nil
}
