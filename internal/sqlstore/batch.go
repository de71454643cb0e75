package sqlstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/0xRadioAc7iv/go-seqcask/internal/bulkload"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Begin registers file as uncommitted and opens its spool file.
func (s *Store) Begin(ctx context.Context, file seqdb.FileRecord) (seqdb.Batch, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fasta_files (path, dataset_label, sample_id, sequence_kind, committed)
		VALUES (?, ?, ?, ?, 0)`, file.Path, file.Dataset, file.Sample, file.Kind)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", file.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	file.ID = uint32(id)

	w, err := bulkload.Create(s.spoolPath(file.ID), 1)
	if err != nil {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM fasta_files WHERE id = ?`, file.ID)
		return nil, err
	}
	return &batch{s: s, file: file, spool: w}, nil
}

type batch struct {
	s         *Store
	file      seqdb.FileRecord
	spool     *bulkload.Writer
	blocks    []seqdb.SampleBlock
	done      bool
	committed bool
}

func (b *batch) File() seqdb.FileRecord { return b.file }

// PutMany appends entries to the spool file and flushes it, which makes the
// call a checkpoint.
func (b *batch) PutMany(ctx context.Context, entries []seqdb.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.done {
		return fmt.Errorf("file %d: batch already finished", b.file.ID)
	}
	for _, e := range entries {
		e.Location.FileID = b.file.ID
		if _, err := b.spool.Write(e); err != nil {
			return err
		}
	}
	return b.spool.Flush()
}

func (b *batch) PutBlocks(ctx context.Context, blocks []seqdb.SampleBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.done {
		return fmt.Errorf("file %d: batch already finished", b.file.ID)
	}
	for _, sb := range blocks {
		sb.FileID = b.file.ID
		b.blocks = append(b.blocks, sb)
	}
	return nil
}

// Commit loads the spool file and the blocks in one transaction.
func (b *batch) Commit(ctx context.Context) error {
	if b.committed {
		return nil
	}
	if b.done {
		return fmt.Errorf("file %d: batch was aborted", b.file.ID)
	}
	if err := b.spool.Close(); err != nil {
		return fmt.Errorf("close spool of file %d: %w", b.file.ID, err)
	}

	slices.SortFunc(b.blocks, func(x, y seqdb.SampleBlock) int { return cmp.Compare(x.Start, y.Start) })

	tx, err := b.s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var committed int
	if err := tx.GetContext(ctx, &committed, `SELECT committed FROM fasta_files WHERE id = ?`, b.file.ID); err != nil {
		return fmt.Errorf("file %d was discarded by a truncate of %s: %w", b.file.ID, b.file.Dataset, err)
	}

	insert, err := tx.PreparexContext(ctx, `
		INSERT INTO sequence_refs
			(file_id, id, dataset_label, sequence_kind, sample_id, sequence_id, start_offset, length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	r, err := bulkload.Open(b.s.spoolPath(b.file.ID))
	if err != nil {
		return err
	}
	defer r.Close()

	var rows int
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		sample := b.file.Sample
		if sample == "" {
			var ok bool
			if sample, ok = sampleAt(b.blocks, row.StartOffset); !ok {
				return fmt.Errorf("%w: record %s at offset %d lies outside every sample block",
					seqdb.ErrMalformedInput, row.SequenceID, row.StartOffset)
			}
		}
		if _, err := insert.ExecContext(ctx, b.file.ID, row.ID, b.file.Dataset, b.file.Kind, sample,
			row.SequenceID, row.StartOffset, row.Length); err != nil {
			return fmt.Errorf("load %s: %w", row.SequenceID, err)
		}
		rows++
	}

	for _, sb := range b.blocks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sample_blocks
				(file_id, dataset_label, sequence_kind, sample_id, n, start_offset, end_offset)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.file.ID, sb.Dataset, sb.Kind, sb.Sample, sb.Count, sb.Start, sb.End); err != nil {
			return fmt.Errorf("store block %s: %w", sb.Sample, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE fasta_files SET committed = 1 WHERE id = ?`, b.file.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit file %d: %w", b.file.ID, err)
	}

	b.done, b.committed = true, true
	b.s.removeSpool(b.file.ID)
	b.s.logger.Debug("loaded bulk file", "file_id", b.file.ID, "rows", rows, "blocks", len(b.blocks))
	return nil
}

func (b *batch) Abort(ctx context.Context) error {
	if b.done {
		return nil
	}
	b.done = true

	_ = b.spool.Close()
	b.s.removeSpool(b.file.ID)
	if _, err := b.s.db.ExecContext(context.WithoutCancel(ctx), `DELETE FROM fasta_files WHERE id = ? AND committed = 0`, b.file.ID); err != nil {
		return fmt.Errorf("abort file %d: %w", b.file.ID, err)
	}
	return nil
}
