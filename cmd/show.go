package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/internal/app"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/ui"
)

var showTab string

var showCmd = &cobra.Command{
	Use:   "show <tm> <gln> <gtin>",
	Short: "Show the details of one group",
	Long: `Show every tics entry of a group. Tabs:
  formatted     properties and CSV events per tics, differing m-numbers highlighted
  raw           the tics entries as JSON
  differences   differing m-numbers with the value of each tics entry`,
	Example: `  ticsmerge show ACME 4000001000005 04012345678901
  ticsmerge show ACME 4000001000005 04012345678901 --tab differences`,
	GroupID: "analysis",
	Args:    cobra.ExactArgs(3),
	RunE:    runShow,
}

var gtinsCmd = &cobra.Command{
	Use:     "gtins",
	Short:   "List the distinct gtins",
	GroupID: "info",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session) error {
			fmt.Fprint(cmd.OutOrStdout(), renderer().GTINs(s.GTINOptions()))
			return nil
		})
	},
}

func init() {
	showCmd.Flags().StringVarP(&showTab, "tab", "t", "formatted", "Tab: formatted, raw, differences")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(gtinsCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	tab, err := ui.ParseTab(showTab)
	if err != nil {
		return err
	}
	key := model.GroupKey{TM: args[0], GLN: args[1], GTIN: args[2]}
	return withSession(cmd, func(s *app.Session) error {
		g := s.Group(key)
		if g == nil {
			return fmt.Errorf("group %s not found", key)
		}
		out, err := renderer().Details(g, tab)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	})
}
