package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/internal/app"
	"github.com/Zerofisher/ticsmerge/internal/report"
	"github.com/Zerofisher/ticsmerge/pkg/query"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Short:   "Generate a reconciliation report",
	Long:    `Generate a Markdown report: store overview, top gtins, groups whose tics entries differ and groups without a match.`,
	GroupID: "analysis",
	Args:    cobra.NoArgs,
	RunE:    runReport,
}

var (
	reportFormat string
	reportOutput string
	reportTop    int
)

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "Output format: markdown")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default: stdout)")
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "Number of gtins in the statistics table")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFormat != "markdown" && reportFormat != "md" {
		return fmt.Errorf("unknown format: %s", reportFormat)
	}

	return withSession(cmd, func(s *app.Session) (err error) {
		engine := query.NewSQLiteEngine(s.Store())

		data, err := report.Generate(cmd.Context(), engine, s.Groups(), report.Options{TopGTINs: reportTop})
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}

		out := cmd.OutOrStdout()
		if reportOutput != "" && reportOutput != "-" {
			f, err := os.Create(reportOutput)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("close output file: %w", cerr)
				}
			}()
			out = f
		}
		return report.WriteMarkdown(out, data)
	})
}
