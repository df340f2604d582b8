package view

import (
	"sort"
	"strings"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// DefaultPerPage is the page size used when none is given.
const DefaultPerPage = 10

// Criteria selects groups for the comparison view. Zero values match all.
type Criteria struct {
	// Text is a case-insensitive substring of tm, gln or gtin.
	Text string
	// GTIN selects one gtin exactly.
	GTIN string
	// MatchesOnly keeps groups where some entry has both properties and
	// CSV events.
	MatchesOnly bool
	// Where is an optional extra predicate, usually a compiled filter
	// expression.
	Where func(*model.Group) bool
}

// Match reports whether g satisfies every criterion.
func (c Criteria) Match(g *model.Group) bool {
	if c.Text != "" {
		needle := strings.ToLower(c.Text)
		if !strings.Contains(strings.ToLower(g.TM), needle) &&
			!strings.Contains(strings.ToLower(g.GLN), needle) &&
			!strings.Contains(strings.ToLower(g.GTIN), needle) {
			return false
		}
	}
	if c.GTIN != "" && g.GTIN != c.GTIN {
		return false
	}
	if c.MatchesOnly && !g.HasMatch() {
		return false
	}
	if c.Where != nil && !c.Where(g) {
		return false
	}
	return true
}

// Filter returns the groups matching c, preserving order.
func Filter(groups []model.Group, c Criteria) []model.Group {
	out := make([]model.Group, 0, len(groups))
	for i := range groups {
		if c.Match(&groups[i]) {
			out = append(out, groups[i])
		}
	}
	return out
}

// Sort returns a copy of groups ordered by tm. Groups with equal tm keep
// their relative order.
func Sort(groups []model.Group) []model.Group {
	out := append([]model.Group(nil), groups...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TM < out[j].TM
	})
	return out
}

// Page is one page of the sorted view.
type Page struct {
	Groups []model.Group
	// Number is the zero-based page index actually returned.
	Number  int
	PerPage int
	Total   int
	Pages   int
	// Offset is the index of the first group on the page within the
	// whole sorted view.
	Offset int
}

// Paginate sorts groups by tm and cuts out page number (zero-based). An
// out-of-range page is clamped to the last page.
func Paginate(groups []model.Group, number, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	sorted := Sort(groups)
	p := Page{PerPage: perPage, Total: len(sorted)}
	p.Pages = (p.Total + perPage - 1) / perPage
	if number < 0 {
		number = 0
	}
	if p.Pages > 0 && number >= p.Pages {
		number = p.Pages - 1
	}
	p.Number = number
	p.Offset = number * perPage
	end := p.Offset + perPage
	if end > p.Total {
		end = p.Total
	}
	if p.Offset < p.Total {
		p.Groups = sorted[p.Offset:end]
	}
	return p
}

// GTINOptions returns the distinct gtins in first-seen order.
func GTINOptions(groups []model.Group) []string {
	var out []string
	seen := make(map[string]struct{})
	for i := range groups {
		if _, ok := seen[groups[i].GTIN]; ok {
			continue
		}
		seen[groups[i].GTIN] = struct{}{}
		out = append(out, groups[i].GTIN)
	}
	return out
}

// Find returns the group with the given key, or nil.
func Find(groups []model.Group, key model.GroupKey) *model.Group {
	for i := range groups {
		if groups[i].Key() == key {
			return &groups[i]
		}
	}
	return nil
}
