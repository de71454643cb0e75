package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/0xRadioAc7iv/go-seqcask/internal/bulkload"
	"github.com/0xRadioAc7iv/go-seqcask/internal/retrieve"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// runExport writes the index entries of one sample as a bulk-load TSV,
// gzipped when the output path ends in .gz. Without -o rows go to stdout.
func runExport(args []string) error {
	var kindName, out string
	var firstID int64
	e, rest, err := setup("export", args, func(fs *flag.FlagSet) {
		fs.StringVar(&kindName, "kind", "protein", "Sequence kind: protein or rna")
		fs.StringVar(&out, "o", "", "Output path (.gz to compress)")
		fs.Int64Var(&firstID, "first-id", 1, "Row id of the first row")
	})
	if err != nil {
		return err
	}
	defer e.Close()

	if len(rest) != 2 {
		return fmt.Errorf("%w: usage: seqcask export [options] <dataset> <sample>", seqdb.ErrConfiguration)
	}
	dataset, sample := rest[0], rest[1]

	kind, err := seqdb.ParseKind(kindName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer store.Close()

	var w *bulkload.Writer
	if out == "" {
		w = bulkload.NewWriter(os.Stdout, firstID)
	} else if w, err = bulkload.Create(out, firstID); err != nil {
		return err
	}

	svc := retrieve.New(store, e.schemes, retrieve.WithLogger(e.logger))
	n, err := svc.Export(ctx, dataset, kind, sample, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	e.logger.Info("export finished", "dataset", dataset, "kind", kind, "sample", sample, "rows", n)
	return nil
}
