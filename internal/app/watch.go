package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a watched file must stay quiet before it is
// ingested.
const DefaultSettle = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Settle is the quiet period after the last event; 0 means DefaultSettle.
	Settle time.Duration
	// OnBatch is called after each batch of files is ingested.
	OnBatch func(results []*IngestResult, err error)
}

var watchedExts = map[string]bool{".json": true, ".csv": true, ".txt": true}

// Watch ingests JSON and CSV files that are created in or written to dir,
// until ctx is done. Files present before the call are left alone. Events
// are collected until the directory has been quiet for the settle period,
// then the batch is ingested like dropped files.
func (s *Session) Watch(ctx context.Context, dir string, opts WatchOptions) error {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Info("watching directory", "dir", dir, "settle", opts.Settle)

	pending := make(map[string]struct{})
	timer := time.NewTimer(opts.Settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !watchedExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(opts.Settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watch error", "dir", dir, "error", err)
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)

			results, err := s.IngestFiles(ctx, paths)
			if opts.OnBatch != nil {
				opts.OnBatch(results, err)
			}
		}
	}
}
