package view

import "github.com/Zerofisher/ticsmerge/pkg/model"

// Missing marks a tics entry that lacks a property in DifferenceDetails.
const Missing = "—"

// DiffDetail is one differing m-number with its rendering per tics entry.
type DiffDetail struct {
	MNumber string
	// Values holds one formatted value per tics entry, in entry order.
	Values []string
}

// mNumbers returns every non-empty m-number in the group in discovery order.
func mNumbers(g *model.Group) []string {
	var out []string
	seen := make(map[string]struct{})
	for i := range g.TicsData {
		for _, p := range g.TicsData[i].Properties {
			if p.MNumber == "" {
				continue
			}
			if _, ok := seen[p.MNumber]; ok {
				continue
			}
			seen[p.MNumber] = struct{}{}
			out = append(out, p.MNumber)
		}
	}
	return out
}

// ComputeDifferences returns the m-numbers whose property is missing from
// some tics entry or whose value differs between entries. Groups with at
// most one entry have no differences.
func ComputeDifferences(g *model.Group) []string {
	if len(g.TicsData) <= 1 {
		return nil
	}
	var diffs []string
	for _, m := range mNumbers(g) {
		first := ""
		for i := range g.TicsData {
			p := g.TicsData[i].Property(m)
			if p == nil {
				diffs = append(diffs, m)
				break
			}
			c := p.Canonical()
			if i == 0 {
				first = c
				continue
			}
			if c != first {
				diffs = append(diffs, m)
				break
			}
		}
	}
	return diffs
}

// DifferenceDetails renders, for each m-number whose formatted value is not
// the same in every tics entry, the value per entry (Missing when absent).
func DifferenceDetails(g *model.Group) []DiffDetail {
	if len(g.TicsData) <= 1 {
		return nil
	}
	var details []DiffDetail
	for _, m := range mNumbers(g) {
		values := make([]string, len(g.TicsData))
		same := true
		for i := range g.TicsData {
			if p := g.TicsData[i].Property(m); p != nil {
				values[i] = p.Format()
			} else {
				values[i] = Missing
			}
			if values[i] != values[0] {
				same = false
			}
		}
		if !same {
			details = append(details, DiffDetail{MNumber: m, Values: values})
		}
	}
	return details
}
