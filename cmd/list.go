package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/filter"
	"github.com/Zerofisher/ticsmerge/internal/app"
	"github.com/Zerofisher/ticsmerge/pkg/query"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups with their differences",
	Long: `List groups (tm, gln, gtin) sorted by tm, one page at a time. The
Differences column names the m-numbers whose property is missing from some
tics entry or differs between entries.

With --records the stored rows are listed instead, one per
(tm, gln, gtin, tics), straight from the database.`,
	Example: `  ticsmerge list
  ticsmerge list --search acme --matches
  ticsmerge list --gtin 04012345678901 --page 2
  ticsmerge list --where 'diff && csv_count > 2'
  ticsmerge list --records --sort gtin --desc`,
	GroupID: "analysis",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

// Shared selection flags of list and export
type selection struct {
	search  string
	gtin    string
	matches bool
	where   string
}

func (sel *selection) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&sel.search, "search", "s", "", "Case-insensitive substring of tm, gln or gtin")
	cmd.Flags().StringVar(&sel.gtin, "gtin", "", "Only groups with this gtin")
	cmd.Flags().BoolVarP(&sel.matches, "matches", "m", false, "Only groups with both properties and CSV events")
	cmd.Flags().StringVarP(&sel.where, "where", "w", "", "Filter expression, e.g. 'has_differences && tics_count > 1'")
}

func (sel *selection) criteria() (view.Criteria, error) {
	c := view.Criteria{Text: sel.search, GTIN: sel.gtin, MatchesOnly: sel.matches}
	if sel.where != "" {
		pred, err := filter.Compile(sel.where)
		if err != nil {
			return c, err
		}
		c.Where = pred
	}
	return c, nil
}

var (
	listSel     selection
	listPage    int
	listPerPage int
	listRecords bool
	listSort    string
	listDesc    bool
)

func init() {
	listSel.register(listCmd)
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "Page number (1-based)")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 0, "Groups per page (default from config)")
	listCmd.Flags().BoolVar(&listRecords, "records", false, "List stored records instead of groups")
	listCmd.Flags().StringVar(&listSort, "sort", "id", "Record sort column: id, tm, gln, gtin, tics")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "Sort records in descending order")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := listSel.criteria()
	if err != nil {
		return err
	}
	if listPage < 1 {
		return fmt.Errorf("invalid page %d", listPage)
	}
	if listRecords {
		return runListRecords(cmd)
	}
	return withSession(cmd, func(s *app.Session) error {
		page := s.View(c, listPage-1, listPerPage)
		fmt.Fprint(cmd.OutOrStdout(), renderer().Table(page))
		return nil
	})
}

func runListRecords(cmd *cobra.Command) error {
	if listSel.matches || listSel.where != "" {
		return fmt.Errorf("--matches and --where select groups and cannot be used with --records")
	}
	switch listSort {
	case "id", "tm", "gln", "gtin", "tics":
	default:
		return fmt.Errorf("invalid sort column %q", listSort)
	}

	return withSession(cmd, func(s *app.Session) error {
		perPage := listPerPage
		if perPage <= 0 {
			perPage = s.PerPage()
		}
		f := query.RecordFilter{
			Offset:     (listPage - 1) * perPage,
			Limit:      perPage,
			GTIN:       listSel.gtin,
			SearchText: listSel.search,
			SortBy:     listSort,
			SortOrder:  "asc",
		}
		if listDesc {
			f.SortOrder = "desc"
		}

		engine := query.NewSQLiteEngine(s.Store())
		records, err := engine.GetRecords(cmd.Context(), f)
		if err != nil {
			return err
		}
		total, err := engine.GetRecordCount(cmd.Context())
		if err != nil {
			return err
		}
		out, err := renderer().Records(records, total)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	})
}
