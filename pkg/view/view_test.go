package view

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

func prop(m string, kv ...any) model.Property {
	p := model.Property{MNumber: m}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Fields = append(p.Fields, model.Field{Name: kv[i].(string), Value: kv[i+1]})
	}
	return p
}

func entry(tics string, props ...model.Property) model.TicsEntry {
	return model.TicsEntry{TICS: tics, Properties: props, CSV: []model.CsvEvent{}}
}

func TestBuildGroups(t *testing.T) {
	docs := []model.Document{
		{TM: "B", GLN: "g", GTIN: "1", TICS: "X", Properties: []model.Property{prop("M1", "a", 1)}},
		{TM: "A", GLN: "g", GTIN: "2", TICS: "X"},
		{TM: "B", GLN: "g", GTIN: "1", TICS: "Y"},
		{TM: "B", GLN: "g", GTIN: "1", TICS: "X", Properties: []model.Property{prop("M9")}},
	}
	groups := BuildGroups(docs)
	require.Len(t, groups, 2)
	assert.Equal(t, "B", groups[0].TM)
	require.Len(t, groups[0].TicsData, 2)
	assert.Equal(t, "M1", groups[0].TicsData[0].Properties[0].MNumber, "first entry per tics wins")
	assert.NotNil(t, groups[1].TicsData[0].Properties)
	assert.NotNil(t, groups[1].TicsData[0].CSV)

	assert.Empty(t, BuildGroups(nil))
	assert.Len(t, Documents(groups), 3)
}

func TestComputeDifferences(t *testing.T) {
	single := &model.Group{TicsData: []model.TicsEntry{entry("X", prop("M1", "a", 1))}}
	assert.Empty(t, ComputeDifferences(single))

	same := &model.Group{TicsData: []model.TicsEntry{
		entry("X", prop("M1", "a", 1, "b", 2), prop("M2", "c", "x")),
		entry("Y", prop("M1", "b", 2, "a", 1), prop("M2", "c", "x")),
	}}
	assert.Empty(t, ComputeDifferences(same), "member order does not matter")

	same.TicsData[1].Properties[1] = prop("M2", "c", "y")
	assert.Equal(t, []string{"M2"}, ComputeDifferences(same))

	missing := &model.Group{TicsData: []model.TicsEntry{
		entry("X", prop("M1", "a", 1)),
		entry("Y"),
		entry("Z", prop("M3", "a", 1), prop("M1", "a", 1)),
	}}
	assert.Equal(t, []string{"M1", "M3"}, ComputeDifferences(missing))
}

func TestDifferenceDetails(t *testing.T) {
	g := &model.Group{TicsData: []model.TicsEntry{
		entry("X", prop("M1", "a", "1", "b", []any{"x", "y"}), prop("M2", "c", "same")),
		entry("Y", prop("M2", "c", "same")),
	}}
	details := DifferenceDetails(g)
	require.Len(t, details, 1)
	assert.Equal(t, "M1", details[0].MNumber)
	assert.Equal(t, []string{"a: 1 | b: x,y", Missing}, details[0].Values)
}

func TestFilter(t *testing.T) {
	groups := []model.Group{
		{TM: "Alpha", GLN: "111", GTIN: "400", TicsData: []model.TicsEntry{entry("X", prop("M1"))}},
		{TM: "Beta", GLN: "222", GTIN: "401", TicsData: []model.TicsEntry{{
			TICS: "X", Properties: []model.Property{prop("M1")}, CSV: []model.CsvEvent{{EventNo: "1"}},
		}}},
		{TM: "Gamma", GLN: "alp", GTIN: "400"},
	}

	assert.Len(t, Filter(groups, Criteria{}), 3)
	assert.Len(t, Filter(groups, Criteria{Text: "ALP"}), 2)
	assert.Len(t, Filter(groups, Criteria{GTIN: "400"}), 2)
	assert.Len(t, Filter(groups, Criteria{GTIN: "40"}), 0)

	matched := Filter(groups, Criteria{MatchesOnly: true})
	require.Len(t, matched, 1)
	assert.Equal(t, "Beta", matched[0].TM)

	where := Filter(groups, Criteria{Where: func(g *model.Group) bool { return len(g.TicsData) == 0 }})
	require.Len(t, where, 1)
	assert.Equal(t, "Gamma", where[0].TM)

	assert.Equal(t, []string{"400", "401"}, GTINOptions(groups))
	assert.NotNil(t, Find(groups, model.GroupKey{TM: "Beta", GLN: "222", GTIN: "401"}))
	assert.Nil(t, Find(groups, model.GroupKey{TM: "Beta"}))
}

func TestPaginate(t *testing.T) {
	var groups []model.Group
	for i := 24; i >= 0; i-- {
		groups = append(groups, model.Group{TM: "tm" + strconv.Itoa(100+i)})
	}

	p := Paginate(groups, 0, 10)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.Pages)
	require.Len(t, p.Groups, 10)
	assert.Equal(t, "tm100", p.Groups[0].TM)

	p = Paginate(groups, 2, 10)
	assert.Len(t, p.Groups, 5)
	assert.Equal(t, 20, p.Offset)

	p = Paginate(groups, 9, 10)
	assert.Equal(t, 2, p.Number)

	p = Paginate(nil, 0, 0)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Empty(t, p.Groups)
	assert.Zero(t, p.Pages)
}

func TestSortIsStable(t *testing.T) {
	groups := []model.Group{{TM: "b", GTIN: "1"}, {TM: "a"}, {TM: "b", GTIN: "2"}}
	sorted := Sort(groups)
	assert.Equal(t, "a", sorted[0].TM)
	assert.Equal(t, "1", sorted[1].GTIN)
	assert.Equal(t, "2", sorted[2].GTIN)
	assert.Equal(t, "b", groups[0].TM, "input untouched")
}
