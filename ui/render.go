// Package ui renders groups, details and messages for the terminal.
package ui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

// Tab selects one view of a group's details.
type Tab int

const (
	TabFormatted Tab = iota
	TabRaw
	TabDifferences
)

var tabNames = []string{"formatted", "raw", "differences"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "unknown"
}

// ParseTab parses a tab name.
func ParseTab(s string) (Tab, error) {
	for i, name := range tabNames {
		if strings.EqualFold(s, name) {
			return Tab(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tab %q (use %s)", s, strings.Join(tabNames, ", "))
}

// Renderer turns view data into styled text.
type Renderer struct {
	styles Styles
	width  int
}

// NewRenderer creates a renderer. width is the terminal width used for the
// header bar; 0 leaves the header unpadded.
func NewRenderer(color bool, width int) *Renderer {
	return &Renderer{styles: NewStyles(color), width: width}
}

// ────────────────────────────────────────────────────────────────────────────────
// Group list
// ────────────────────────────────────────────────────────────────────────────────

var listColumns = []string{"No.", "TM", "GLN", "GTIN", "TICS", "Differences", "CSV"}

// Table renders one page of groups with a page footer.
func (r *Renderer) Table(page view.Page) string {
	if page.Total == 0 {
		return r.styles.Dim.Render("No groups.") + "\n"
	}

	rows := make([][]string, len(page.Groups))
	diffCol := make([]bool, len(page.Groups))
	for i := range page.Groups {
		g := &page.Groups[i]
		diffs := view.ComputeDifferences(g)
		diffCol[i] = len(diffs) > 0
		rows[i] = []string{
			strconv.Itoa(page.Offset + i + 1),
			g.TM,
			g.GLN,
			g.GTIN,
			strings.Join(ticsNames(g), ", "),
			strings.Join(diffs, ", "),
			strconv.Itoa(g.EventCount()),
		}
	}

	var b strings.Builder
	b.WriteString(r.table(listColumns, rows, func(row, col int) lipgloss.Style {
		if col == 5 && diffCol[row] {
			return r.styles.Diff
		}
		if col == 6 && page.Groups[row].HasMatch() {
			return r.styles.Match
		}
		return r.styles.Normal
	}))
	b.WriteString(r.styles.Dim.Render(fmt.Sprintf("Page %d of %d (%d groups)",
		page.Number+1, page.Pages, page.Total)))
	b.WriteByte('\n')
	return b.String()
}

var recordColumns = []string{"ID", "TM", "GLN", "GTIN", "TICS", "Properties", "Events"}

// Records renders stored rows with their property and event counts. total is
// the number of rows in the table.
func (r *Renderer) Records(records []*model.Record, total int) (string, error) {
	if len(records) == 0 {
		return r.styles.Dim.Render("No records.") + "\n", nil
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		doc, err := rec.Document()
		if err != nil {
			return "", err
		}
		rows[i] = []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Key.TM,
			rec.Key.GLN,
			rec.Key.GTIN,
			rec.Key.TICS,
			strconv.Itoa(len(doc.Properties)),
			strconv.Itoa(len(doc.CSV)),
		}
	}

	var b strings.Builder
	b.WriteString(r.table(recordColumns, rows, func(row, col int) lipgloss.Style {
		return r.styles.Normal
	}))
	b.WriteString(r.styles.Dim.Render(fmt.Sprintf("%d of %d records", len(records), total)))
	b.WriteByte('\n')
	return b.String(), nil
}

// GTINs renders the gtin option list.
func (r *Renderer) GTINs(gtins []string) string {
	if len(gtins) == 0 {
		return r.styles.Dim.Render("No gtins.") + "\n"
	}
	var b strings.Builder
	b.WriteString(r.styles.Title.Render("GTINs"))
	b.WriteByte('\n')
	for _, g := range gtins {
		b.WriteString(r.styles.Normal.Render(g))
		b.WriteByte('\n')
	}
	return b.String()
}

// ────────────────────────────────────────────────────────────────────────────────
// Details
// ────────────────────────────────────────────────────────────────────────────────

// Details renders one tab of a group's details.
func (r *Renderer) Details(g *model.Group, tab Tab) (string, error) {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(fmt.Sprintf("%s / %s / %s", g.TM, g.GLN, g.GTIN)))
	b.WriteString("\n\n")

	switch tab {
	case TabFormatted:
		r.formatted(&b, g)
	case TabRaw:
		data, err := json.MarshalIndent(g.TicsData, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal group: %w", err)
		}
		b.Write(data)
		b.WriteByte('\n')
	case TabDifferences:
		r.differences(&b, g)
	default:
		return "", fmt.Errorf("unknown tab %d", tab)
	}
	return b.String(), nil
}

func (r *Renderer) formatted(b *strings.Builder, g *model.Group) {
	differing := make(map[string]bool)
	for _, m := range view.ComputeDifferences(g) {
		differing[m] = true
	}

	for i := range g.TicsData {
		e := &g.TicsData[i]
		b.WriteString(r.styles.Section.Render("TICS " + e.TICS))
		b.WriteByte('\n')

		b.WriteString(r.styles.Detail.Render(fmt.Sprintf("Properties (%d)", len(e.Properties))))
		b.WriteByte('\n')
		for _, p := range e.Properties {
			style := r.styles.Normal
			if differing[p.MNumber] {
				style = r.styles.Diff
			}
			b.WriteString("    ")
			b.WriteString(style.Render(p.MNumber + "  " + p.Format()))
			b.WriteByte('\n')
		}

		b.WriteString(r.styles.Detail.Render(fmt.Sprintf("CSV events (%d)", len(e.CSV))))
		b.WriteByte('\n')
		for j := range e.CSV {
			// Key fields repeat the group header.
			fields := e.CSV[j].Fields()[4:]
			b.WriteString("    ")
			b.WriteString(r.styles.Normal.Render(model.FormatFields(fields)))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
}

func (r *Renderer) differences(b *strings.Builder, g *model.Group) {
	details := view.DifferenceDetails(g)
	if len(details) == 0 {
		b.WriteString(r.styles.Success.Render("No differences."))
		b.WriteByte('\n')
		return
	}
	headers := append([]string{"m-number"}, ticsNames(g)...)
	rows := make([][]string, len(details))
	for i, d := range details {
		rows[i] = append([]string{d.MNumber}, d.Values...)
	}
	b.WriteString(r.table(headers, rows, func(_, col int) lipgloss.Style {
		if col == 0 {
			return r.styles.Diff
		}
		return r.styles.Normal
	}))
}

// ────────────────────────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────────────────────────

// Status renders a one-line notice or error.
func (r *Renderer) Status(text string, isError bool) string {
	if isError {
		return r.styles.Error.Render("Error: "+text) + "\n"
	}
	return r.styles.Success.Render(text) + "\n"
}

// Warning renders a one-line warning.
func (r *Renderer) Warning(text string) string {
	return r.styles.Warning.Render(text) + "\n"
}

// ────────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────────

// table lays out rows in left-aligned columns separated by two spaces.
func (r *Renderer) table(headers []string, rows [][]string, cellStyle func(row, col int) lipgloss.Style) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	header := joinCells(headers, widths)
	if r.width > 0 {
		b.WriteString(r.styles.Header.Width(r.width).Render(header))
	} else {
		b.WriteString(r.styles.Header.Render(header))
	}
	b.WriteByte('\n')

	for ri, row := range rows {
		cells := make([]string, len(row))
		for ci, cell := range row {
			padded := cell
			if ci < len(row)-1 && ci < len(widths) {
				padded = padRight(cell, widths[ci])
			}
			cells[ci] = cellStyle(ri, ci).Render(padded)
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func joinCells(cells []string, widths []int) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if i < len(cells)-1 {
			c = padRight(c, widths[i])
		}
		out[i] = c
	}
	return strings.Join(out, "  ")
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func ticsNames(g *model.Group) []string {
	names := make([]string, len(g.TicsData))
	for i := range g.TicsData {
		names[i] = g.TicsData[i].TICS
	}
	return names
}
