package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/internal/app"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest JSON and CSV files as they appear in a directory",
	Long: `Watch a directory and ingest every .json, .csv or .txt file created in or
written to it, like files dropped together. Files already present are left
alone. Stop with Ctrl-C.`,
	Example: `  ticsmerge watch ./inbox
  ticsmerge watch ./inbox --settle 2s`,
	GroupID: "input",
	Args:    cobra.ExactArgs(1),
	RunE:    runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", app.DefaultSettle, "Quiet period before a batch is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withSession(cmd, func(s *app.Session) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", args[0])
		return s.Watch(ctx, args[0], app.WatchOptions{
			Settle: watchSettle,
			OnBatch: func(results []*app.IngestResult, err error) {
				for _, res := range results {
					printResult(cmd, res)
				}
				if err != nil {
					fmt.Fprint(cmd.ErrOrStderr(), renderer().Status(err.Error(), true))
				}
			},
		})
	})
}
