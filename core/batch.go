package core

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/0xRadioAc7iv/go-seqcask/internal/record"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Begin registers file under a fresh id and opens its transaction.
func (sc *SeqCask) Begin(ctx context.Context, file seqdb.FileRecord) (seqdb.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sc.keyDirMu.Lock()
	file.ID = sc.keyDir.nextFileID
	sc.keyDir.reserve(file.ID)
	p := &pendingFile{file: file}
	sc.pending[file.ID] = p
	sc.keyDirMu.Unlock()

	value, err := record.EncodeFileRecord(file)
	if err != nil {
		sc.dropPending(file.ID)
		return nil, err
	}
	if err := sc.appendRecords([]record.DiskRecord{record.CreateRecord(record.KindFile, file.ID, nil, value)}, false); err != nil {
		sc.dropPending(file.ID)
		return nil, fmt.Errorf("register %s: %w", file.Path, err)
	}

	return &batch{sc: sc, file: file}, nil
}

// Truncate drops every committed and pending file of dataset.
func (sc *SeqCask) Truncate(ctx context.Context, dataset string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sc.txnMu.Lock()
	defer sc.txnMu.Unlock()

	rec := record.CreateRecord(record.KindTruncate, 0, []byte(dataset), nil)
	if err := sc.appendRecords([]record.DiskRecord{rec}, true); err != nil {
		return fmt.Errorf("truncate %s: %w", dataset, err)
	}

	sc.keyDirMu.Lock()
	sc.truncatePending(dataset)
	sc.keyDir.truncate(dataset)
	gen := sc.keyDir.generations[dataset]
	sc.keyDirMu.Unlock()

	sc.logger.Info("truncated dataset", "dataset", dataset, "generation", gen)
	return nil
}

func (sc *SeqCask) dropPending(id uint32) {
	sc.keyDirMu.Lock()
	delete(sc.pending, id)
	sc.keyDirMu.Unlock()
}

type batch struct {
	sc        *SeqCask
	file      seqdb.FileRecord
	done      bool
	committed bool
}

func (b *batch) File() seqdb.FileRecord { return b.file }

func (b *batch) PutMany(ctx context.Context, entries []seqdb.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.done {
		return fmt.Errorf("file %d: batch already finished", b.file.ID)
	}

	recs := make([]record.DiskRecord, len(entries))
	for i, e := range entries {
		recs[i] = record.CreateRecord(record.KindEntry, b.file.ID, record.EncodeKey(e.Key), record.EncodeLocation(e.Location))
	}
	if err := b.sc.appendRecords(recs, false); err != nil {
		return fmt.Errorf("append entries of file %d: %w", b.file.ID, err)
	}

	return b.stage(func(p *pendingFile) { p.entries = append(p.entries, entries...) })
}

func (b *batch) PutBlocks(ctx context.Context, blocks []seqdb.SampleBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.done {
		return fmt.Errorf("file %d: batch already finished", b.file.ID)
	}

	recs := make([]record.DiskRecord, len(blocks))
	for i, sb := range blocks {
		sb.FileID = b.file.ID
		value, err := record.EncodeSampleBlock(sb)
		if err != nil {
			return err
		}
		recs[i] = record.CreateRecord(record.KindBlock, b.file.ID, nil, value)
	}
	if err := b.sc.appendRecords(recs, false); err != nil {
		return fmt.Errorf("append blocks of file %d: %w", b.file.ID, err)
	}

	return b.stage(func(p *pendingFile) {
		for _, sb := range blocks {
			sb.FileID = b.file.ID
			p.blocks = append(p.blocks, sb)
		}
	})
}

func (b *batch) stage(fn func(p *pendingFile)) error {
	b.sc.keyDirMu.Lock()
	defer b.sc.keyDirMu.Unlock()

	p, ok := b.sc.pending[b.file.ID]
	if !ok {
		return fmt.Errorf("file %d was discarded by a truncate of %s", b.file.ID, b.file.Dataset)
	}
	fn(p)
	return nil
}

// Commit writes and syncs the commit record, then publishes the file.
func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.committed {
		return nil
	}
	if b.done {
		return fmt.Errorf("file %d: batch was aborted", b.file.ID)
	}

	b.sc.txnMu.Lock()
	defer b.sc.txnMu.Unlock()

	// A truncate between Begin and here already dropped the file.
	b.sc.keyDirMu.RLock()
	_, ok := b.sc.pending[b.file.ID]
	b.sc.keyDirMu.RUnlock()
	if !ok {
		b.done = true
		return fmt.Errorf("file %d was discarded by a truncate of %s", b.file.ID, b.file.Dataset)
	}

	rec := record.CreateRecord(record.KindCommit, b.file.ID, nil, nil)
	if err := b.sc.appendRecords([]record.DiskRecord{rec}, true); err != nil {
		return fmt.Errorf("commit file %d: %w", b.file.ID, err)
	}

	b.sc.keyDirMu.Lock()
	p := b.sc.pending[b.file.ID]
	b.sc.keyDir.apply(p)
	delete(b.sc.pending, b.file.ID)
	b.sc.keyDirMu.Unlock()

	b.done, b.committed = true, true
	return nil
}

// Abort discards the file. The abort record is best effort: a transaction
// without commit record is dropped on replay either way.
func (b *batch) Abort(context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	b.sc.dropPending(b.file.ID)

	rec := record.CreateRecord(record.KindAbort, b.file.ID, nil, nil)
	if err := b.sc.appendRecords([]record.DiskRecord{rec}, false); err != nil {
		return fmt.Errorf("abort file %d: %w", b.file.ID, err)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func bufioReader(r io.Reader) io.Reader {
	return bufio.NewReaderSize(r, 1<<20)
}
