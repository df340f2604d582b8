package app

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/Zerofisher/ticsmerge/export"
	"github.com/Zerofisher/ticsmerge/pkg/ingest"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

// ExportConfig holds export configuration.
type ExportConfig struct {
	Format   export.OutputFormat
	Criteria view.Criteria
}

// Export writes the (optionally filtered) groups in the configured format.
func (s *Session) Export(out io.Writer, cfg ExportConfig) (int, error) {
	if cfg.Format == "" {
		cfg.Format = export.FormatJSON
	}
	groups := view.Filter(s.groups, cfg.Criteria)

	exporter := export.NewExporter(out, cfg.Format)
	if err := exporter.ExportAll(groups); err != nil {
		return exporter.Count(), s.fail(fmt.Errorf("error exporting groups: %w", err), "Export failed.")
	}

	s.notice("Data exported.")
	s.log.Info("exported", "format", string(cfg.Format), "groups", exporter.Count())
	return exporter.Count(), nil
}

// Import reads a JSON export and merges every tics entry back in. The
// import stops at the first entry that cannot be stored.
func (s *Session) Import(ctx context.Context, name string, r io.Reader) (*IngestResult, error) {
	groups, err := export.ReadJSON(r)
	if err != nil {
		return nil, s.fail(err, "Please select a valid export file.")
	}

	res := &IngestResult{Batch: uuid.NewString(), Name: name}
	for _, doc := range view.Documents(groups) {
		doc := doc
		doc.Properties = ingest.NormalizeProperties(doc.Properties)
		if err := s.mergeDocument(ctx, &doc, res); err != nil {
			return res, s.fail(err, userText(err, "Import failed."))
		}
	}

	s.notice("Imported %d groups.", len(groups))
	s.log.Info("imported", "batch", res.Batch, "file", name, "groups", len(groups),
		"inserted", res.Inserted, "updated", res.Updated, "added", res.Added)
	return res, nil
}
