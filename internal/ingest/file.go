package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/0xRadioAc7iv/go-seqcask/internal/block"
	"github.com/0xRadioAc7iv/go-seqcask/internal/fasta"
	"github.com/0xRadioAc7iv/go-seqcask/internal/scheme"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// fileIngest scans one file into one batch.
type fileIngest struct {
	p       *Pipeline
	scheme  scheme.Scheme
	dataset string
	logger  *log.Logger
}

func (fi *fileIngest) run(ctx context.Context, spec FileSpec) FileResult {
	started := time.Now()
	res := FileResult{Spec: spec, State: Pending}

	finish := func(state State, err error) FileResult {
		res.State, res.Err = state, err
		res.Duration = time.Since(started)
		switch state {
		case Committed:
			fi.logger.Info("committed file", "file_id", res.FileID, "entries", res.Entries, "blocks", res.Blocks, "elapsed", res.Duration.Round(time.Millisecond))
		case Empty:
			fi.logger.Warn("file holds no fasta records", "file_id", res.FileID)
		case Skipped:
			fi.logger.Info("file already indexed")
		case Aborted:
			fi.logger.Error("aborted file", "err", err, "code", seqdb.Classify(err))
		}
		return res
	}

	path, err := filepath.Abs(spec.Path)
	if err != nil {
		return finish(Aborted, err)
	}

	file := seqdb.FileRecord{Path: path, Dataset: fi.dataset, Kind: spec.Kind}
	if fi.scheme.Layout() == seqdb.PerSample {
		if file.Sample, err = scheme.SampleFromPath(path); err != nil {
			return finish(Aborted, err)
		}
	}
	res.Sample = file.Sample

	registered, err := fi.p.store.Files(ctx, fi.dataset, spec.Kind, file.Sample)
	if err != nil {
		return finish(Aborted, err)
	}
	if i := slices.IndexFunc(registered, func(f seqdb.FileRecord) bool { return f.Path == path }); i >= 0 {
		res.FileID = registered[i].ID
		return finish(Skipped, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return finish(Aborted, fmt.Errorf("%w: %w", seqdb.ErrIO, err))
	}
	defer f.Close()

	batch, err := fi.p.store.Begin(ctx, file)
	if err != nil {
		return finish(Aborted, err)
	}
	res.FileID = batch.File().ID
	res.State = Scanning
	fi.logger.Debug("scanning file", "file_id", res.FileID, "sample", file.Sample, "kind", spec.Kind)

	abort := func(cause error) FileResult {
		// the batch must be discarded even when ctx is what failed
		if err := batch.Abort(context.WithoutCancel(ctx)); err != nil {
			fi.logger.Warn("abort failed", "file_id", res.FileID, "err", err)
		}
		return finish(Aborted, cause)
	}

	n, blocks, err := fi.scan(ctx, f, batch)
	res.Entries, res.Blocks = n, len(blocks)
	if err != nil {
		return abort(err)
	}
	if n == 0 {
		if err := batch.Abort(ctx); err != nil {
			return finish(Aborted, err)
		}
		return finish(Empty, nil)
	}

	if len(blocks) > 0 {
		if err := batch.PutBlocks(ctx, blocks); err != nil {
			return abort(err)
		}
	}
	res.State = Committing
	if err := batch.Commit(ctx); err != nil {
		return abort(err)
	}
	return finish(Committed, nil)
}

// scan feeds the records of r to batch in checkpoints and, for shared
// files, folds them into sample blocks.
func (fi *fileIngest) scan(ctx context.Context, r *os.File, batch seqdb.Batch) (int, []seqdb.SampleBlock, error) {
	file := batch.File()

	var agg *block.Aggregator
	if fi.scheme.Layout() == seqdb.MultiSample {
		agg = block.NewAggregator(file)
	}

	seen := make(map[string]struct{})
	buf := make([]seqdb.Entry, 0, min(fi.p.checkpointEvery, 4096))
	n := 0

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.PutMany(ctx, buf); err != nil {
			return err
		}
		buf = buf[:0]
		return nil
	}

	sc := fasta.NewScanner(r)
	for sc.Scan() {
		e := sc.Entry()
		if _, dup := seen[e.ID]; dup {
			return n, nil, &seqdb.MalformedError{Offset: e.Start, Reason: fmt.Sprintf("duplicate identifier %q", e.ID)}
		}
		seen[e.ID] = struct{}{}

		sample := file.Sample
		if agg != nil {
			s, err := fi.scheme.SampleOf(e.ID)
			if err != nil {
				return n, nil, &seqdb.MalformedError{Offset: e.Start, Reason: err.Error()}
			}
			if err := agg.Add(s, e); err != nil {
				return n, nil, err
			}
			sample = s
		}

		buf = append(buf, seqdb.Entry{
			Key:      seqdb.Key{Dataset: fi.dataset, Kind: file.Kind, Sample: sample, SequenceID: e.ID},
			Location: seqdb.Location{FileID: file.ID, Start: e.Start, Length: e.Length},
		})
		n++

		if len(buf) >= fi.p.checkpointEvery {
			if err := flush(); err != nil {
				return n, nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return n, nil, err
	}
	if err := flush(); err != nil {
		return n, nil, err
	}

	if agg == nil {
		return n, nil, nil
	}
	return n, agg.Blocks(), nil
}
