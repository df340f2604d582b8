package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/ticsmerge/internal/app"
	"github.com/Zerofisher/ticsmerge/pkg/ingest"
)

var ingestCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Ingest JSON property documents or CSV event exports",
	GroupID: "input",
}

var ingestJSONCmd = &cobra.Command{
	Use:   "json <file>...",
	Short: "Merge JSON property documents",
	Long: `Parse each file as one property document and merge it into the store.
Each file is processed independently; a failing file does not stop the rest.`,
	Example: `  ticsmerge ingest json product.json`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, args, ingest.KindJSON)
	},
}

var ingestCSVCmd = &cobra.Command{
	Use:   "csv <file>...",
	Short: "Merge CSV inspection events",
	Long: `Parse each file as a CSV export (';' or ',' separated) and merge every
event into the store. Rows whose column count differs from the header are
skipped and reported.`,
	Example: `  ticsmerge ingest csv events.csv`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, args, ingest.KindCSV)
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <file>...",
	Short: "Ingest files by type (.json or .csv)",
	Long: `Ingest several files at once, choosing the parser by extension or
content. Files of any other type are rejected.`,
	Example: `  ticsmerge drop a.json b.json events.csv`,
	GroupID: "input",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDrop,
}

func init() {
	ingestCmd.AddCommand(ingestJSONCmd)
	ingestCmd.AddCommand(ingestCSVCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(dropCmd)
}

func runIngest(cmd *cobra.Command, paths []string, kind ingest.Kind) error {
	return withSession(cmd, func(s *app.Session) error {
		var errs []error
		for _, p := range paths {
			res, err := ingestPath(cmd, s, p, kind)
			printMessage(cmd, s)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p, err))
				continue
			}
			printResult(cmd, res)
		}
		return errors.Join(errs...)
	})
}

func ingestPath(cmd *cobra.Command, s *app.Session, path string, kind ingest.Kind) (*app.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ingest.ParseError{Source: path, Err: err}
	}
	if kind == ingest.KindCSV {
		return s.IngestCSV(cmd.Context(), path, string(data))
	}
	return s.IngestJSON(cmd.Context(), path, data)
}

func runDrop(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *app.Session) error {
		results, err := s.IngestFiles(cmd.Context(), args)
		for _, res := range results {
			printResult(cmd, res)
		}
		printMessage(cmd, s)
		return err
	})
}

func printResult(cmd *cobra.Command, res *app.IngestResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%s): %d inserted, %d updated, %d new entries",
		res.Name, res.Kind, res.Inserted, res.Updated, res.Added)
	if res.Kind == ingest.KindCSV {
		fmt.Fprintf(w, ", %d rows", res.Rows)
		if res.Failed > 0 {
			fmt.Fprintf(w, ", %d failed", res.Failed)
		}
	}
	fmt.Fprintln(w)
	if len(res.Dropped) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), renderer().Warning(
			fmt.Sprintf("%s: skipped lines %v (column count differs from header)", res.Name, res.Dropped)))
	}
}
