package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/export"
	"github.com/Zerofisher/ticsmerge/internal/app"
)

var (
	exportSel    selection
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export groups to a file",
	Long: `Export the groups as a JSON array (re-importable with 'import'), as a
';' separated CSV of all events (re-ingestable with 'ingest csv'), or as
tab separated fields. The selection flags of 'list' narrow the export.`,
	Example: `  ticsmerge export
  ticsmerge export --format csv-events -o events.csv
  ticsmerge export --matches -o - | jq length`,
	GroupID: "analysis",
	Args:    cobra.NoArgs,
	RunE:    runExport,
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	Short:   "Merge a JSON export back into the store",
	Example: `  ticsmerge import export.json`,
	GroupID: "input",
	Args:    cobra.ExactArgs(1),
	RunE:    runImport,
}

func init() {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	exportSel.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", export.DefaultFileName, "Output file ('-' for stdout)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatJSON),
		"Output format: "+strings.Join(names, ", "))
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	c, err := exportSel.criteria()
	if err != nil {
		return err
	}

	return withSession(cmd, func(s *app.Session) (err error) {
		out := cmd.OutOrStdout()
		toStdout := exportOutput == "" || exportOutput == "-"
		if !toStdout {
			f, err := os.Create(exportOutput)
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

		n, err := s.Export(out, app.ExportConfig{Format: format, Criteria: c})
		if err != nil {
			printMessage(cmd, s)
			return err
		}
		if !toStdout {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d groups to %s\n", n, exportOutput)
		}
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *app.Session) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		res, err := s.Import(cmd.Context(), args[0], f)
		printMessage(cmd, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d inserted, %d updated, %d new entries\n",
			res.Inserted, res.Updated, res.Added)
		return nil
	})
}
