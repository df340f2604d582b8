// Package view projects stored documents into groups and computes what the
// comparison view shows: difference sets, filtering, sorting and paging.
package view

import "github.com/Zerofisher/ticsmerge/pkg/model"

// BuildGroups folds documents into groups by (tm, gln, gtin), in the order
// groups are first seen. Within a group only the first document for a given
// tics is kept. Slices on the result are never nil.
func BuildGroups(docs []model.Document) []model.Group {
	groups := make([]model.Group, 0)
	index := make(map[model.GroupKey]int)

	for i := range docs {
		doc := &docs[i]
		gk := doc.Key().Group()
		gi, ok := index[gk]
		if !ok {
			groups = append(groups, model.Group{
				TM:       doc.TM,
				GLN:      doc.GLN,
				GTIN:     doc.GTIN,
				TicsData: []model.TicsEntry{},
			})
			gi = len(groups) - 1
			index[gk] = gi
		}

		g := &groups[gi]
		if g.Entry(doc.TICS) != nil {
			continue
		}
		entry := model.TicsEntry{
			TICS:       doc.TICS,
			Properties: append([]model.Property{}, doc.Properties...),
			CSV:        append([]model.CsvEvent{}, doc.CSV...),
		}
		g.TicsData = append(g.TicsData, entry)
	}
	return groups
}

// Documents flattens groups back into one document per tics entry.
func Documents(groups []model.Group) []model.Document {
	var docs []model.Document
	for i := range groups {
		g := &groups[i]
		for j := range g.TicsData {
			e := &g.TicsData[j]
			docs = append(docs, model.Document{
				TM:         g.TM,
				GLN:        g.GLN,
				GTIN:       g.GTIN,
				TICS:       e.TICS,
				Properties: e.Properties,
				CSV:        e.CSV,
			})
		}
	}
	return docs
}
