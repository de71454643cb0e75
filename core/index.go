package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

func (sc *SeqCask) Get(ctx context.Context, key seqdb.Key) (seqdb.Location, bool, error) {
	if err := ctx.Err(); err != nil {
		return seqdb.Location{}, false, err
	}
	sc.keyDirMu.RLock()
	loc, ok := sc.keyDir.entries[key]
	sc.keyDirMu.RUnlock()
	return loc, ok, nil
}

func (sc *SeqCask) GetByPrefix(ctx context.Context, q seqdb.PrefixQuery, limit int) ([]seqdb.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := bucket{Dataset: q.Dataset, Kind: q.Kind, Sample: q.Sample}

	sc.keyDirMu.RLock()
	defer sc.keyDirMu.RUnlock()
	return sc.keyDir.prefix(b, q.Prefix, limit), nil
}

func (sc *SeqCask) File(ctx context.Context, id uint32) (seqdb.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return seqdb.FileRecord{}, err
	}
	sc.keyDirMu.RLock()
	f, ok := sc.keyDir.files[id]
	sc.keyDirMu.RUnlock()
	if !ok {
		return seqdb.FileRecord{}, fmt.Errorf("file %d: %w", id, seqdb.ErrNotFound)
	}
	return f, nil
}

func (sc *SeqCask) Files(ctx context.Context, dataset string, kind seqdb.Kind, sample string) ([]seqdb.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sc.keyDirMu.RLock()
	var out []seqdb.FileRecord
	for _, f := range sc.keyDir.files {
		if f.Dataset == dataset && f.Kind == kind && f.Sample == sample {
			out = append(out, f)
		}
	}
	sc.keyDirMu.RUnlock()

	slices.SortFunc(out, func(a, b seqdb.FileRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (sc *SeqCask) Blocks(ctx context.Context, dataset string, kind seqdb.Kind, sample string) ([]seqdb.SampleBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc.keyDirMu.RLock()
	defer sc.keyDirMu.RUnlock()
	return slices.Clone(sc.keyDir.blocks[bucket{Dataset: dataset, Kind: kind, Sample: sample}]), nil
}

func (sc *SeqCask) Count(ctx context.Context, dataset string, kind seqdb.Kind, sample string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sc.keyDirMu.RLock()
	defer sc.keyDirMu.RUnlock()
	return len(sc.keyDir.ids[bucket{Dataset: dataset, Kind: kind, Sample: sample}]), nil
}

func (sc *SeqCask) Generation(ctx context.Context, dataset string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sc.keyDirMu.RLock()
	defer sc.keyDirMu.RUnlock()
	return sc.keyDir.generations[dataset], nil
}
