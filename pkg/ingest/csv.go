package ingest

import (
	"regexp"
	"strings"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// Source column names of the inspection-event export.
const (
	ColTM                      = "tm"
	ColGLN                     = "gln"
	ColGTIN                    = "gtin"
	ColTICS                    = "tics"
	ColVirpcs                  = "virpcs"
	ColVisualInspectionDate    = "visualInspectionDate"
	ColSystemCertificationDate = "systemCertificationDate"
	ColVisualInspectionState   = "visualInspectionState"
	ColSystemValidationState   = "systemValidationState"
	ColCertificationState      = "certificationState"
)

// Columns lists the source columns in export order.
var Columns = []string{
	ColTM, ColGLN, ColGTIN, ColTICS, ColVirpcs,
	ColVisualInspectionDate, ColSystemCertificationDate,
	ColVisualInspectionState, ColSystemValidationState, ColCertificationState,
}

var lineSplit = regexp.MustCompile(`\r?\n`)

// CSVReport is the result of parsing CSV text.
type CSVReport struct {
	Delimiter string
	Header    []string
	Rows      []map[string]string
	// Dropped holds the 1-based line numbers of rows whose column count
	// did not match the header.
	Dropped []int
}

// ParseCSV parses delimited text into header-keyed rows. Rows whose column
// count differs from the header are left out.
func ParseCSV(text string) []map[string]string {
	return ParseCSVReport(text).Rows
}

// ParseCSVReport is ParseCSV that also reports which lines were dropped.
// The delimiter is ';' when the header contains one, ',' otherwise. Fields
// and header names are whitespace-trimmed; quoting is not supported.
func ParseCSVReport(text string) CSVReport {
	var report CSVReport

	type line struct {
		no   int
		text string
	}
	var lines []line
	for i, l := range lineSplit.Split(text, -1) {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, line{no: i + 1, text: l})
	}
	if len(lines) == 0 {
		return report
	}

	report.Delimiter = ","
	if strings.Contains(lines[0].text, ";") {
		report.Delimiter = ";"
	}
	report.Header = splitTrim(lines[0].text, report.Delimiter)

	for _, l := range lines[1:] {
		fields := splitTrim(l.text, report.Delimiter)
		if len(fields) != len(report.Header) {
			report.Dropped = append(report.Dropped, l.no)
			continue
		}
		row := make(map[string]string, len(fields))
		for i, name := range report.Header {
			row[name] = fields[i]
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// MapCSVRow remaps one raw row onto a CsvEvent. Missing columns map to "".
func MapCSVRow(row map[string]string) model.CsvEvent {
	return model.CsvEvent{
		TM:                            row[ColTM],
		GLN:                           row[ColGLN],
		GTIN:                          row[ColGTIN],
		TICS:                          row[ColTICS],
		EventNo:                       row[ColVirpcs],
		DatumSichtpruefung:            row[ColVisualInspectionDate],
		DatumSichtpruefungsausloesung: row[ColSystemCertificationDate],
		Sichtpruefungsergebnis:        row[ColVisualInspectionState],
		AutomatischesErgebnis:         row[ColSystemValidationState],
		Siegel:                        row[ColCertificationState],
	}
}

// EventRow is the inverse of MapCSVRow, in Columns order.
func EventRow(ev *model.CsvEvent) []string {
	return []string{
		ev.TM, ev.GLN, ev.GTIN, ev.TICS, ev.EventNo,
		ev.DatumSichtpruefung, ev.DatumSichtpruefungsausloesung,
		ev.Sichtpruefungsergebnis, ev.AutomatischesErgebnis, ev.Siegel,
	}
}

// ParseCSVEvents parses text and remaps every kept row.
func ParseCSVEvents(text string) ([]model.CsvEvent, CSVReport) {
	report := ParseCSVReport(text)
	events := make([]model.CsvEvent, 0, len(report.Rows))
	for _, row := range report.Rows {
		events = append(events, MapCSVRow(row))
	}
	return events, report
}
