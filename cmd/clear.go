package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/internal/app"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Delete all stored data",
	Long:    `Delete every record and the persisted snapshot. Asks for confirmation unless --yes is given.`,
	GroupID: "input",
	Args:    cobra.NoArgs,
	RunE:    runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		fmt.Fprint(cmd.OutOrStdout(), "Delete all data? [y/N] ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}
	return withSession(cmd, func(s *app.Session) error {
		err := s.Clear(cmd.Context())
		printMessage(cmd, s)
		return err
	})
}
