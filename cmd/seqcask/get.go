package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/0xRadioAc7iv/go-seqcask/internal/retrieve"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// runGet answers a lookup straight from the index, without a server.
func runGet(args []string) error {
	var kindName string
	var partial, all bool
	e, rest, err := setup("get", args, func(fs *flag.FlagSet) {
		fs.StringVar(&kindName, "kind", "protein", "Sequence kind: protein or rna")
		fs.BoolVar(&partial, "partial", false, "Always run a prefix search")
		fs.BoolVar(&all, "all", false, "Print protein and transcript records")
	})
	if err != nil {
		return err
	}
	defer e.Close()

	if len(rest) != 2 {
		return fmt.Errorf("%w: usage: seqcask get [options] <dataset> <id>", seqdb.ErrConfiguration)
	}
	dataset, id := rest[0], rest[1]

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

	svc := retrieve.New(store, e.schemes,
		retrieve.WithMaxResults(e.cfg.MaxResults),
		retrieve.WithLogger(e.logger),
	)

	var results []retrieve.Result
	switch {
	case all:
		results, err = svc.GetAll(ctx, dataset, id)
	case partial:
		var r retrieve.Result
		r, err = svc.GetPartial(ctx, dataset, kind, id)
		results = []retrieve.Result{r}
	default:
		var r retrieve.Result
		r, err = svc.Get(ctx, dataset, kind, id)
		results = []retrieve.Result{r}
	}
	if err != nil {
		return err
	}

	for _, r := range results {
		if _, err := os.Stdout.Write(r.Bytes()); err != nil {
			return err
		}
		if r.Truncated {
			e.logger.Warn("prefix search truncated", "kind", r.Kind, "query", r.Query, "records", len(r.Records))
		}
	}
	return nil
}
