package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Zerofisher/ticsmerge/pkg/ingest"
	"github.com/Zerofisher/ticsmerge/pkg/merge"
	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	Batch string
	Name  string
	Kind  ingest.Kind

	// Rows is the number of CSV rows kept by the parser.
	Rows int
	// Dropped holds the line numbers of CSV rows with a wrong column count.
	Dropped []int

	Inserted int
	Updated  int
	// Added counts new properties and events across the batch.
	Added int
	// Failed counts CSV rows whose store write failed.
	Failed int
}

// IngestJSON parses one JSON document and merges it into the store and the
// in-memory groups. Nothing is applied when parsing or the store write fails.
func (s *Session) IngestJSON(ctx context.Context, name string, data []byte) (*IngestResult, error) {
	doc, err := ingest.ParseDocument(name, data)
	if err != nil {
		return nil, s.failParse(err)
	}
	return s.ingestDocument(ctx, name, doc)
}

func (s *Session) failParse(err error) error {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		return s.fail(err, "Invalid JSON document. Please check the file.")
	}
	return s.fail(err, "Please select a valid JSON file.")
}

func (s *Session) ingestDocument(ctx context.Context, name string, doc *model.Document) (*IngestResult, error) {
	res := &IngestResult{Batch: uuid.NewString(), Name: name, Kind: ingest.KindJSON}
	log := s.log.With("batch", res.Batch, "file", name)

	if err := s.mergeDocument(ctx, doc, res); err != nil {
		return nil, s.fail(err, userText(err, "Failed to process the JSON file."))
	}

	s.notice("Saved data for %s/%s/%s.", doc.TM, doc.GLN, doc.GTIN)
	log.Info("json ingested", "key", doc.Key().String(), "inserted", res.Inserted, "added", res.Added)
	return res, nil
}

// mergeDocument writes doc to the store and, once committed, to memory.
func (s *Session) mergeDocument(ctx context.Context, doc *model.Document, res *IngestResult) error {
	out, err := s.engine.MergeDocument(ctx, doc)
	if err != nil {
		return err
	}
	if out.Inserted {
		res.Inserted++
	} else {
		res.Updated++
	}
	var added int
	s.groups, added = merge.ApplyDocument(s.groups, doc)
	res.Added += added
	return nil
}

// IngestCSV parses CSV text, folds every event into the in-memory groups,
// then writes the events to the store one by one. A failed row write is
// logged and counted; the remaining rows are still written.
func (s *Session) IngestCSV(ctx context.Context, name, text string) (*IngestResult, error) {
	events, report := ingest.ParseCSVEvents(text)
	return s.ingestEvents(ctx, name, events, report)
}

func (s *Session) ingestEvents(ctx context.Context, name string, events []model.CsvEvent, report ingest.CSVReport) (*IngestResult, error) {
	res := &IngestResult{Batch: uuid.NewString(), Name: name, Kind: ingest.KindCSV}
	log := s.log.With("batch", res.Batch, "file", name)

	res.Rows = len(events)
	res.Dropped = report.Dropped
	if len(report.Dropped) > 0 {
		log.Warn("csv rows dropped: column count differs from header",
			"lines", report.Dropped, "columns", len(report.Header))
	}

	var added int
	s.groups, added = merge.ApplyCSVEvents(s.groups, events)
	res.Added = added

	for i := range events {
		if err := ctx.Err(); err != nil {
			return res, s.fail(err, "CSV processing was cancelled.")
		}
		out, err := s.engine.MergeCSVEvent(ctx, &events[i])
		if err != nil {
			res.Failed++
			log.Error("store csv row", "key", events[i].Key().String(), "eventno", events[i].EventNo, "error", err)
			continue
		}
		if out.Inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	if res.Failed > 0 {
		s.msg = Message{Kind: Error, Text: fmt.Sprintf("CSV data processed; %d of %d rows could not be stored.", res.Failed, len(events))}
	} else {
		s.notice("CSV data processed.")
	}
	log.Info("csv ingested", "rows", res.Rows, "dropped", len(res.Dropped), "added", res.Added, "failed", res.Failed)
	return res, nil
}

// IngestFile reads one file and ingests it by its detected kind.
func (s *Session) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	return s.ingestParsed(ctx, ingest.ParseFile(path))
}

// IngestFiles ingests each file independently, like files dropped together.
// Files are read and parsed in parallel and merged one at a time in the
// given order. It returns the results of the files that succeeded and the
// joined errors of the ones that did not.
func (s *Session) IngestFiles(ctx context.Context, paths []string) ([]*IngestResult, error) {
	var results []*IngestResult
	p := ingest.New(ingest.Config{})
	run, err := p.Run(ctx, paths, func(pf *ingest.Parsed) error {
		res, err := s.ingestParsed(ctx, pf)
		if err != nil {
			return fmt.Errorf("%s: %w", pf.Path, err)
		}
		results = append(results, res)
		return nil
	})
	s.log.Debug("files ingested", "files", run.Files, "failed", run.Failed, "duration", run.Duration)
	return results, err
}

func (s *Session) ingestParsed(ctx context.Context, pf *ingest.Parsed) (*IngestResult, error) {
	if pf.Input == nil {
		return nil, s.fail(pf.Err, "Please upload JSON or CSV files only.")
	}
	switch pf.Input.Kind {
	case ingest.KindJSON:
		if pf.Err != nil {
			return nil, s.failParse(pf.Err)
		}
		return s.ingestDocument(ctx, pf.Input.Name, pf.Document)
	case ingest.KindCSV:
		return s.ingestEvents(ctx, pf.Input.Name, pf.Events, pf.Report)
	default:
		err := &ingest.ValidationError{Source: pf.Input.Name, Reason: "unsupported file type"}
		return nil, s.fail(err, "Please upload JSON or CSV files only.")
	}
}
