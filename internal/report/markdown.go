package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteMarkdown renders the report as Markdown.
func WriteMarkdown(w io.Writer, d *Data) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("# Reconciliation Report\n\n")
	p("Generated: %s\n\n", d.GeneratedAt.Format(time.RFC3339))

	if o := d.Overview; o != nil {
		p("## Overview\n\n")
		p("| Metric | Value |\n|---|---|\n")
		p("| Records | %d |\n", o.Records)
		p("| Groups (tm/gln/gtin) | %d |\n", o.Groups)
		p("| GTINs | %d |\n", o.GTINs)
		p("| Properties | %d |\n", o.Properties)
		p("| CSV events | %d |\n", o.Events)
		p("| Records with properties and events | %d |\n", o.MatchedRecords)
		p("| Records with properties only | %d |\n", o.PropertyOnlyRecords)
		p("| Records with events only | %d |\n", o.EventOnlyRecords)
		p("| Groups with differences | %d |\n", len(d.Differing))
		p("| Snapshot size | %s |\n", FormatBytes(o.SnapshotBytes))
		p("| Schema version | %d |\n", o.SchemaVersion)
		if !o.UniqueKey {
			p("\n> The record key is not unique in this database; some keys hold more than one record.\n")
		}
		p("\n")
	}

	if len(d.GTINStats) > 0 {
		p("## Top GTINs\n\n")
		p("| GTIN | Groups | Records | Properties | Events |\n|---|---:|---:|---:|---:|\n")
		for _, s := range d.GTINStats {
			p("| %s | %d | %d | %d | %d |\n", escapeCell(s.GTIN), s.Groups, s.Records, s.Properties, s.Events)
		}
		p("\n")
	}

	p("## Differences\n\n")
	if len(d.Differing) == 0 {
		p("No differences between tics entries.\n\n")
	}
	for _, g := range d.Differing {
		p("### %s / %s / %s\n\n", g.Key.TM, g.Key.GLN, g.Key.GTIN)
		p("Differing m-numbers: %s\n\n", strings.Join(g.Differences, ", "))
		if len(g.Details) == 0 {
			continue
		}
		p("| m-number |")
		for _, t := range g.TICS {
			p(" %s |", escapeCell(t))
		}
		p("\n|---|%s\n", strings.Repeat("---|", len(g.TICS)))
		for _, det := range g.Details {
			p("| %s |", escapeCell(det.MNumber))
			for _, v := range det.Values {
				p(" %s |", escapeCell(v))
			}
			p("\n")
		}
		p("\n")
	}

	if len(d.Unmatched) > 0 {
		p("## Groups without a match\n\n")
		p("Groups where no tics entry has both properties and CSV events.\n\n")
		p("| TM | GLN | GTIN | TICS | Properties | Events |\n|---|---|---|---|---:|---:|\n")
		for _, g := range d.Unmatched {
			p("| %s | %s | %s | %s | %d | %d |\n",
				escapeCell(g.Key.TM), escapeCell(g.Key.GLN), escapeCell(g.Key.GTIN),
				escapeCell(strings.Join(g.TICS, ", ")), g.Properties, g.Events)
		}
		p("\n")
	}

	return bw.Flush()
}
