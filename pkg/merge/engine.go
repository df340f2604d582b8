// Package merge folds ingested documents and CSV events into the stored
// records, keyed by (tm, gln, gtin, tics).
package merge

import (
	"context"
	"fmt"

	"github.com/Zerofisher/ticsmerge/internal/logging"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/store"
)

// Engine merges incoming items into a store.
type Engine struct {
	store  store.Store
	logger *logging.Logger
}

// NewEngine creates a merge engine over s. A nil logger discards output.
func NewEngine(s store.Store, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{store: s, logger: logger}
}

// Outcome describes what one merge did.
type Outcome struct {
	Key model.Key
	// Inserted is true when no record existed for the key.
	Inserted bool
	// Updated is the number of records overwritten.
	Updated int64
	// Added is the number of properties and events that were new.
	Added int
}

// Changed reports whether the merge added anything.
func (o Outcome) Changed() bool {
	return o.Inserted || o.Added > 0
}

// MergeDocument merges a JSON document whose properties are already
// normalized. Properties are unioned by m-number and CSV events by eventno;
// existing entries win.
func (e *Engine) MergeDocument(ctx context.Context, doc *model.Document) (Outcome, error) {
	return e.merge(ctx, doc)
}

// MergeCSVEvent merges a single CSV event into the record for its key.
func (e *Engine) MergeCSVEvent(ctx context.Context, ev *model.CsvEvent) (Outcome, error) {
	doc := &model.Document{
		TM:   ev.TM,
		GLN:  ev.GLN,
		GTIN: ev.GTIN,
		TICS: ev.TICS,
		CSV:  []model.CsvEvent{*ev},
	}
	return e.merge(ctx, doc)
}

func (e *Engine) merge(ctx context.Context, incoming *model.Document) (Outcome, error) {
	key := incoming.Key()
	out := Outcome{Key: key}
	props := incoming.Properties

	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Query(ctx, key)
		if err != nil {
			return fmt.Errorf("query %s: %w", key, err)
		}

		if len(existing) == 0 {
			fresh := &model.Document{TM: key.TM, GLN: key.GLN, GTIN: key.GTIN, TICS: key.TICS}
			var n, m int
			fresh.Properties, n = UnionProperties(nil, props)
			fresh.CSV, m = UnionEvents(nil, incoming.CSV)
			if err := tx.Insert(ctx, key, fresh); err != nil {
				return fmt.Errorf("insert %s: %w", key, err)
			}
			out.Inserted = true
			out.Added = n + m
			return nil
		}

		// Every matching record is merged and written back; with more than
		// one record under the key the last write is what remains.
		for i := range existing {
			doc := &existing[i]
			var n, m int
			doc.Properties, n = UnionProperties(doc.Properties, props)
			doc.CSV, m = UnionEvents(doc.CSV, incoming.CSV)
			rows, err := tx.Update(ctx, key, doc)
			if err != nil {
				return fmt.Errorf("update %s: %w", key, err)
			}
			out.Updated += rows
			out.Added = n + m
		}
		return nil
	})
	if err != nil {
		return Outcome{Key: key}, err
	}

	e.logger.Debug("merged",
		"key", key.String(),
		"inserted", out.Inserted,
		"updated", out.Updated,
		"added", out.Added)
	return out, nil
}

// UnionProperties appends every incoming property whose m-number is not yet
// present. It returns the merged list and the number appended.
func UnionProperties(existing, incoming []model.Property) ([]model.Property, int) {
	out := make([]model.Property, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, p := range existing {
		if _, dup := seen[p.MNumber]; dup {
			continue
		}
		seen[p.MNumber] = struct{}{}
		out = append(out, p)
	}
	added := 0
	for _, p := range incoming {
		if _, dup := seen[p.MNumber]; dup {
			continue
		}
		seen[p.MNumber] = struct{}{}
		out = append(out, p)
		added++
	}
	return out, added
}

// UnionEvents appends every incoming event whose eventno is not yet present.
func UnionEvents(existing, incoming []model.CsvEvent) ([]model.CsvEvent, int) {
	out := make([]model.CsvEvent, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, ev := range existing {
		if _, dup := seen[ev.EventNo]; dup {
			continue
		}
		seen[ev.EventNo] = struct{}{}
		out = append(out, ev)
	}
	added := 0
	for _, ev := range incoming {
		if _, dup := seen[ev.EventNo]; dup {
			continue
		}
		seen[ev.EventNo] = struct{}{}
		out = append(out, ev)
		added++
	}
	return out, added
}
