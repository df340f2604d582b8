package ingest

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zerofisher/ticsmerge/pkg/model"
)

// Config holds configuration for the file pipeline.
type Config struct {
	// Workers is the number of parallel read/parse workers.
	// Defaults to runtime.GOMAXPROCS(0) if <= 0.
	Workers int

	// ProgressCallback is called after each file is applied.
	ProgressCallback func(processed, total int, elapsed time.Duration)
}

// Parsed is one file read and parsed by the pipeline.
type Parsed struct {
	Index int
	Path  string

	// Input is nil when the file could not be read or its type is unknown.
	Input *Input

	// Document is set for JSON input.
	Document *model.Document

	// Events and Report are set for CSV input.
	Events []model.CsvEvent
	Report CSVReport

	Err error
}

// ParseFile reads path, detects its kind and parses it.
func ParseFile(path string) *Parsed {
	p := &Parsed{Path: path}
	in, err := ReadFile(path)
	if err != nil {
		p.Err = err
		return p
	}
	p.Input = in

	switch in.Kind {
	case KindJSON:
		p.Document, p.Err = ParseDocument(in.Name, in.Data)
	case KindCSV:
		p.Events, p.Report = ParseCSVEvents(string(in.Data))
	}
	return p
}

// Result holds the result of a pipeline run.
type Result struct {
	Files    int
	Failed   int
	Duration time.Duration
}

// Pipeline reads and parses files in parallel and hands them to a single
// consumer in input order, so that store writes stay sequential.
type Pipeline struct {
	cfg       Config
	processed atomic.Int64
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{cfg: cfg}
}

// Processed returns the number of files applied so far.
func (p *Pipeline) Processed() int {
	return int(p.processed.Load())
}

// Run parses paths and calls apply for each one in order. A file whose
// apply fails is counted and the run continues; the per-file errors are
// returned joined. Cancelling ctx stops the run before the next apply.
func (p *Pipeline) Run(ctx context.Context, paths []string, apply func(*Parsed) error) (*Result, error) {
	startTime := time.Now()
	result := &Result{Files: len(paths)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	parsed := make(chan *Parsed, p.cfg.Workers)

	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				pf := ParseFile(paths[i])
				pf.Index = i
				select {
				case parsed <- pf:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(parsed)
	}()

	// Reorder: workers finish out of order, apply runs in input order.
	pending := make(map[int]*Parsed)
	next := 0
	var errs []error
	for pf := range parsed {
		pending[pf.Index] = pf
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if err := ctx.Err(); err != nil {
				result.Duration = time.Since(startTime)
				return result, err
			}
			if err := apply(cur); err != nil {
				result.Failed++
				errs = append(errs, err)
			}
			n := int(p.processed.Add(1))
			if p.cfg.ProgressCallback != nil {
				p.cfg.ProgressCallback(n, len(paths), time.Since(startTime))
			}
		}
	}

	result.Duration = time.Since(startTime)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, errors.Join(errs...)
}
