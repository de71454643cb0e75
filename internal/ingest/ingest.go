// Package ingest builds the sequence index of a dataset from its FASTA
// files.
//
// Every file goes through its own seqdb.Batch: the scanner output is
// checkpointed into the batch as it is read, and nothing becomes visible to
// readers until the batch commits. A malformed or non-contiguous file is
// aborted without affecting the other files of the run.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/scheme"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

const DefaultCheckpointEvery = 10000

// Observer is called once for every file that reaches a terminal state.
// Calls may come from several goroutines at once.
type Observer func(FileResult)

type Pipeline struct {
	store   seqdb.Store
	schemes *scheme.Registry

	workers         int
	checkpointEvery int
	logger          *log.Logger
	observer        Observer
}

type Option func(*Pipeline)

// WithWorkers bounds the number of files scanned at the same time.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithCheckpointEvery sets how many entries are buffered before they are
// handed to the batch.
func WithCheckpointEvery(n int) Option {
	return func(p *Pipeline) { p.checkpointEvery = n }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

func New(store seqdb.Store, schemes *scheme.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:           store,
		schemes:         schemes,
		workers:         runtime.GOMAXPROCS(0),
		checkpointEvery: DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.checkpointEvery < 1 {
		p.checkpointEvery = DefaultCheckpointEvery
	}
	p.logger = logging.OrDiscard(p.logger).With("component", "ingest")
	return p
}

// Run ingests files into dataset.
//
// Per-file failures are recorded in the report and do not stop the run; use
// Report.Err to collect them. The returned error is only set for an unknown
// dataset or when ctx is cancelled. Files that had not started when ctx was
// cancelled stay Pending, a file that was being scanned is aborted, and
// committed files stay committed.
func (p *Pipeline) Run(ctx context.Context, dataset string, files []FileSpec) (Report, error) {
	sch, err := p.schemes.Lookup(dataset)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		BatchID: uuid.NewString(),
		Dataset: dataset,
		Files:   make([]FileResult, len(files)),
	}
	for i, f := range files {
		rep.Files[i] = FileResult{Spec: f, State: Pending}
	}

	logger := p.logger.With("batch", rep.BatchID, "dataset", dataset)

	// first[i] is the index of the earlier spec naming the same file, or -1.
	first := duplicates(files)
	for i, j := range first {
		if j >= 0 {
			rep.Files[i].State = Skipped
			logger.Warn("file listed twice", "path", files[i].Path)
		}
	}

	logger.Info("ingest started", "files", len(files), "scheme", sch.Name(), "workers", p.workers)
	started := time.Now()

	jobs := make(chan int, p.workers*2)

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for w := 0; w < p.workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fi := &fileIngest{
					p:       p,
					scheme:  sch,
					dataset: dataset,
					logger:  logger.With("path", files[i].Path),
				}
				res := fi.run(ctx, files[i])
				rep.Files[i] = res
				if p.observer != nil {
					p.observer(res)
				}
			}
		}()
	}

feed:
	for i := range files {
		if first[i] >= 0 {
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i, j := range first {
		if j < 0 {
			continue
		}
		rep.Files[i].FileID, rep.Files[i].Sample = rep.Files[j].FileID, rep.Files[j].Sample
		if p.observer != nil {
			p.observer(rep.Files[i])
		}
	}

	logger.Info("ingest finished",
		"committed", rep.Count(Committed),
		"aborted", rep.Count(Aborted),
		"empty", rep.Count(Empty),
		"skipped", rep.Count(Skipped),
		"entries", rep.Entries(),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("ingest of %s interrupted: %w", dataset, err)
	}
	return rep, nil
}

func duplicates(files []FileSpec) []int {
	type fileKey struct {
		path string
		kind seqdb.Kind
	}
	seen := make(map[fileKey]int, len(files))
	first := make([]int, len(files))
	for i, f := range files {
		path, err := filepath.Abs(f.Path)
		if err != nil {
			path = filepath.Clean(f.Path)
		}
		k := fileKey{path, f.Kind}
		if j, ok := seen[k]; ok {
			first[i] = j
			continue
		}
		seen[k] = i
		first[i] = -1
	}
	return first
}

// Rebuild drops the dataset and ingests files into a new generation.
func (p *Pipeline) Rebuild(ctx context.Context, dataset string, files []FileSpec) (Report, error) {
	if _, err := p.schemes.Lookup(dataset); err != nil {
		return Report{}, err
	}
	if err := p.store.Truncate(ctx, dataset); err != nil {
		return Report{}, fmt.Errorf("truncate %s: %w", dataset, err)
	}
	return p.Run(ctx, dataset, files)
}
