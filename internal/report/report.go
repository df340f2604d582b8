// Package report provides reconciliation report generation.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/query"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

// Data holds all data for report generation.
type Data struct {
	// Meta
	GeneratedAt time.Time

	// Overview
	Overview *query.Overview

	// Per-gtin statistics
	GTINStats []*query.GTINStat

	// Groups whose tics entries disagree
	Differing []*GroupSummary

	// Groups with properties but no CSV events, and the reverse
	Unmatched []*GroupSummary

	TotalGroups int
}

// GroupSummary is a simplified group for display.
type GroupSummary struct {
	Key         model.GroupKey
	TICS        []string
	Properties  int
	Events      int
	Differences []string
	Details     []view.DiffDetail
}

// Options tunes Generate.
type Options struct {
	// TopGTINs limits the gtin table; 0 means 10.
	TopGTINs int
	// Now overrides the timestamp, for reproducible output.
	Now time.Time
}

// Generate creates a report from the query engine and the grouped view.
func Generate(ctx context.Context, engine query.QueryEngine, groups []model.Group, opts Options) (*Data, error) {
	if opts.TopGTINs <= 0 {
		opts.TopGTINs = 10
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	report := &Data{
		GeneratedAt: opts.Now,
		TotalGroups: len(groups),
	}

	overview, err := engine.GetOverview(ctx)
	if err != nil {
		return nil, fmt.Errorf("get overview: %w", err)
	}
	report.Overview = overview

	report.GTINStats, err = engine.GetGTINStats(ctx, opts.TopGTINs)
	if err != nil {
		return nil, fmt.Errorf("get gtin stats: %w", err)
	}

	for _, g := range view.Sort(groups) {
		g := g
		diffs := view.ComputeDifferences(&g)
		if len(diffs) > 0 {
			s := summarize(&g)
			s.Differences = diffs
			s.Details = view.DifferenceDetails(&g)
			report.Differing = append(report.Differing, s)
		}
		if !g.HasMatch() {
			report.Unmatched = append(report.Unmatched, summarize(&g))
		}
	}

	return report, nil
}

func summarize(g *model.Group) *GroupSummary {
	s := &GroupSummary{
		Key:        g.Key(),
		Properties: g.PropertyCount(),
		Events:     g.EventCount(),
	}
	for i := range g.TicsData {
		s.TICS = append(s.TICS, g.TicsData[i].TICS)
	}
	return s
}

// FormatBytes formats bytes in human-readable format.
func FormatBytes(b int) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := int64(b) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

// escapeCell makes a value safe inside a Markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
