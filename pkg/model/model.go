// Package model defines the core data models shared by the store, the merge
// engine and the projection layer.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ────────────────────────────────────────────────────────────────────────────────
// Keys
// ────────────────────────────────────────────────────────────────────────────────

// Key is the composite business key of a stored record.
type Key struct {
	TM   string `json:"tm"`
	GLN  string `json:"gln"`
	GTIN string `json:"gtin"`
	TICS string `json:"tics"`
}

// Group returns the grouping part of the key (everything except tics).
func (k Key) Group() GroupKey {
	return GroupKey{TM: k.TM, GLN: k.GLN, GTIN: k.GTIN}
}

// String returns a human readable form, e.g. "tm/gln/gtin/tics".
func (k Key) String() string {
	return strings.Join([]string{k.TM, k.GLN, k.GTIN, k.TICS}, "/")
}

// GroupKey identifies a Group: all records sharing (tm, gln, gtin).
type GroupKey struct {
	TM   string
	GLN  string
	GTIN string
}

// String returns "tm|gln|gtin".
func (k GroupKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.TM, k.GLN, k.GTIN)
}

// ────────────────────────────────────────────────────────────────────────────────
// Stored document
// ────────────────────────────────────────────────────────────────────────────────

// Record is one row of the jsonData table.
type Record struct {
	ID       int64
	Key      Key
	JSONData string
}

// Document decodes the row's json_data column.
func (r *Record) Document() (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(r.JSONData), &doc); err != nil {
		return nil, fmt.Errorf("record %d: %w", r.ID, err)
	}
	return &doc, nil
}

// Document is the value serialized into the json_data column.
type Document struct {
	TM         string     `json:"tm"`
	GLN        string     `json:"gln"`
	GTIN       string     `json:"gtin"`
	TICS       string     `json:"tics"`
	Properties []Property `json:"properties,omitempty"`
	CSV        []CsvEvent `json:"csv,omitempty"`
}

// Key returns the document's composite key.
func (d *Document) Key() Key {
	return Key{TM: d.TM, GLN: d.GLN, GTIN: d.GTIN, TICS: d.TICS}
}

// CsvEvent is one inspection event derived from a CSV row.
type CsvEvent struct {
	TM                            string `json:"tm"`
	GLN                           string `json:"gln"`
	GTIN                          string `json:"gtin"`
	TICS                          string `json:"tics"`
	EventNo                       string `json:"eventno"`
	DatumSichtpruefung            string `json:"datumSichtpruefung"`
	DatumSichtpruefungsausloesung string `json:"datumSichtpruefungsausloesung"`
	Sichtpruefungsergebnis        string `json:"sichtpruefungsergebnis"`
	AutomatischesErgebnis         string `json:"automatischesErgebnis"`
	Siegel                        string `json:"siegel"`
}

// Key returns the event's composite key.
func (e *CsvEvent) Key() Key {
	return Key{TM: e.TM, GLN: e.GLN, GTIN: e.GTIN, TICS: e.TICS}
}

// Fields returns the event as ordered name/value pairs for display.
func (e *CsvEvent) Fields() []Field {
	return []Field{
		{Name: "tm", Value: e.TM},
		{Name: "gln", Value: e.GLN},
		{Name: "gtin", Value: e.GTIN},
		{Name: "tics", Value: e.TICS},
		{Name: "eventno", Value: e.EventNo},
		{Name: "datumSichtpruefung", Value: e.DatumSichtpruefung},
		{Name: "datumSichtpruefungsausloesung", Value: e.DatumSichtpruefungsausloesung},
		{Name: "sichtpruefungsergebnis", Value: e.Sichtpruefungsergebnis},
		{Name: "automatischesErgebnis", Value: e.AutomatischesErgebnis},
		{Name: "siegel", Value: e.Siegel},
	}
}

// ────────────────────────────────────────────────────────────────────────────────
// In-memory projection
// ────────────────────────────────────────────────────────────────────────────────

// TicsEntry is the per-tics slice of a Group.
type TicsEntry struct {
	TICS       string     `json:"tics"`
	Properties []Property `json:"properties"`
	CSV        []CsvEvent `json:"csv"`
}

// HasMatch reports whether the entry carries both JSON properties and CSV events.
func (e *TicsEntry) HasMatch() bool {
	return len(e.Properties) > 0 && len(e.CSV) > 0
}

// Property returns the property with the given m-number, or nil.
func (e *TicsEntry) Property(mNumber string) *Property {
	for i := range e.Properties {
		if e.Properties[i].MNumber == mNumber {
			return &e.Properties[i]
		}
	}
	return nil
}

// Group joins all TicsEntries sharing (tm, gln, gtin).
type Group struct {
	TM       string      `json:"tm"`
	GLN      string      `json:"gln"`
	GTIN     string      `json:"gtin"`
	TicsData []TicsEntry `json:"ticsData"`
}

// Key returns the group key.
func (g *Group) Key() GroupKey {
	return GroupKey{TM: g.TM, GLN: g.GLN, GTIN: g.GTIN}
}

// Entry returns the TicsEntry for tics, or nil.
func (g *Group) Entry(tics string) *TicsEntry {
	for i := range g.TicsData {
		if g.TicsData[i].TICS == tics {
			return &g.TicsData[i]
		}
	}
	return nil
}

// HasMatch reports whether any entry carries both properties and CSV events.
func (g *Group) HasMatch() bool {
	for i := range g.TicsData {
		if g.TicsData[i].HasMatch() {
			return true
		}
	}
	return false
}

// PropertyCount returns the number of properties across all entries.
func (g *Group) PropertyCount() int {
	n := 0
	for i := range g.TicsData {
		n += len(g.TicsData[i].Properties)
	}
	return n
}

// EventCount returns the number of CSV events across all entries.
func (g *Group) EventCount() int {
	n := 0
	for i := range g.TicsData {
		n += len(g.TicsData[i].CSV)
	}
	return n
}
