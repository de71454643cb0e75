package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/0xRadioAc7iv/go-seqcask/internal/config"
	"github.com/0xRadioAc7iv/go-seqcask/internal/ingest"
	"github.com/0xRadioAc7iv/go-seqcask/internal/progress"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// runIngest indexes the FASTA files of a dataset. Files are taken from the
// command line, or discovered below the dataset root when none are given.
// With rebuild set the dataset is truncated first.
func runIngest(args []string, rebuild bool) error {
	name := "ingest"
	if rebuild {
		name = "rebuild"
	}

	var root, kindName string
	e, rest, err := setup(name, args, func(fs *flag.FlagSet) {
		fs.StringVar(&root, "root", "", "Dataset root holding proteomes/ and transcriptomes/")
		fs.StringVar(&kindName, "kind", "protein", "Kind of the files named on the command line")
	})
	if err != nil {
		return err
	}
	defer e.Close()

	if len(rest) < 1 {
		return fmt.Errorf("%w: usage: seqcask %s [options] <dataset> [file...]", seqdb.ErrConfiguration, name)
	}
	dataset, paths := rest[0], rest[1:]

	files, err := fileSpecs(&e.cfg, dataset, root, kindName, paths)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer store.Close()

	bar := progress.New(len(files), name+" "+dataset, e.cfg.Progress)
	p := ingest.New(store, e.schemes,
		ingest.WithWorkers(e.cfg.Workers),
		ingest.WithCheckpointEvery(e.cfg.CheckpointEvery),
		ingest.WithLogger(e.logger),
		ingest.WithObserver(func(r ingest.FileResult) {
			bar.Describe(filepath.Base(r.Spec.Path))
			bar.Increment()
		}),
	)

	var rep ingest.Report
	if rebuild {
		rep, err = p.Rebuild(ctx, dataset, files)
	} else {
		rep, err = p.Run(ctx, dataset, files)
	}
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s: %d committed, %d aborted, %d empty, %d skipped, %d entries\n",
		dataset, rep.Count(ingest.Committed), rep.Count(ingest.Aborted),
		rep.Count(ingest.Empty), rep.Count(ingest.Skipped), rep.Entries())
	return rep.Err()
}

func fileSpecs(cfg *config.Config, dataset, root, kindName string, paths []string) ([]ingest.FileSpec, error) {
	if len(paths) > 0 {
		kind, err := seqdb.ParseKind(kindName)
		if err != nil {
			return nil, err
		}
		specs := make([]ingest.FileSpec, len(paths))
		for i, p := range paths {
			specs[i] = ingest.FileSpec{Path: p, Kind: kind}
		}
		return specs, nil
	}

	if root == "" {
		r, ok := cfg.DatasetRoot(dataset)
		if !ok {
			return nil, fmt.Errorf("%w: no files given and dataset %s has no root", seqdb.ErrConfiguration, dataset)
		}
		root = r
	}
	return ingest.Discover(root)
}
