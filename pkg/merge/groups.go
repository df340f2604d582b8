package merge

import (
	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// ApplyDocument folds doc into the in-memory groups: a new group or a new
// tics entry is appended, otherwise properties and events are unioned into
// the existing entry. It returns the updated slice and the number of new
// properties and events.
func ApplyDocument(groups []model.Group, doc *model.Document) ([]model.Group, int) {
	groups, entry := entryFor(groups, doc.Key())

	var n, m int
	entry.Properties, n = UnionProperties(entry.Properties, doc.Properties)
	entry.CSV, m = UnionEvents(entry.CSV, doc.CSV)
	return groups, n + m
}

// ApplyCSVEvents folds a batch of events into the in-memory groups in order.
func ApplyCSVEvents(groups []model.Group, events []model.CsvEvent) ([]model.Group, int) {
	added := 0
	for i := range events {
		var entry *model.TicsEntry
		groups, entry = entryFor(groups, events[i].Key())
		var n int
		entry.CSV, n = UnionEvents(entry.CSV, events[i:i+1])
		added += n
	}
	return groups, added
}

// entryFor finds or creates the tics entry for key. The returned pointer is
// valid until groups is appended to again.
func entryFor(groups []model.Group, key model.Key) ([]model.Group, *model.TicsEntry) {
	gk := key.Group()
	gi := -1
	for i := range groups {
		if groups[i].Key() == gk {
			gi = i
			break
		}
	}
	if gi < 0 {
		groups = append(groups, model.Group{TM: key.TM, GLN: key.GLN, GTIN: key.GTIN})
		gi = len(groups) - 1
	}

	g := &groups[gi]
	if e := g.Entry(key.TICS); e != nil {
		return groups, e
	}
	g.TicsData = append(g.TicsData, model.TicsEntry{
		TICS:       key.TICS,
		Properties: []model.Property{},
		CSV:        []model.CsvEvent{},
	})
	return groups, &g.TicsData[len(g.TicsData)-1]
}
