// Package sqlstore keeps the sequence index in SQLite.
//
// Entries of a file are spooled to a bulk-load TSV while the file is being
// scanned and loaded into sequence_refs inside one transaction on Commit, so
// a file's references become visible all at once or not at all.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

type Store struct {
	db       *sqlx.DB
	spoolDir string
	compress bool
	logger   *log.Logger
}

var _ seqdb.Store = (*Store)(nil)

type Option func(*Store)

// WithSpoolDir sets where in-flight bulk-load files are kept. The default
// is a "spool" directory next to the database.
func WithSpoolDir(dir string) Option {
	return func(s *Store) { s.spoolDir = dir }
}

// WithCompressedSpool gzips the spooled bulk-load files.
func WithCompressedSpool() Option {
	return func(s *Store) { s.compress = true }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at path and discards any file left
// uncommitted by a previous process.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{spoolDir: filepath.Join(filepath.Dir(path), "spool")}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger).With("component", "sqlstore")

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	s.db = db

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := os.MkdirAll(s.spoolDir, 0o755); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	if err := s.discardUncommitted(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) discardUncommitted(ctx context.Context) error {
	var ids []uint32
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM fasta_files WHERE committed = 0`); err != nil {
		return fmt.Errorf("list uncommitted files: %w", err)
	}
	for _, id := range ids {
		s.logger.Warn("discarding uncommitted file", "file_id", id)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM fasta_files WHERE id = ?`, id); err != nil {
			return err
		}
		s.removeSpool(id)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) spoolPath(id uint32) string {
	name := fmt.Sprintf("file-%d.tsv", id)
	if s.compress {
		name += ".gz"
	}
	return filepath.Join(s.spoolDir, name)
}

func (s *Store) removeSpool(id uint32) {
	if err := os.Remove(s.spoolPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("removing spool file", "file_id", id, "err", err)
	}
}

func (s *Store) Get(ctx context.Context, key seqdb.Key) (seqdb.Location, bool, error) {
	var r refRow
	err := s.db.GetContext(ctx, &r, `
		SELECT sequence_id, file_id, start_offset, length FROM sequence_refs
		WHERE dataset_label = ? AND sequence_kind = ? AND sample_id = ? AND sequence_id = ?
		ORDER BY file_id DESC LIMIT 1`,
		key.Dataset, key.Kind, key.Sample, key.SequenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return seqdb.Location{}, false, nil
	}
	if err != nil {
		return seqdb.Location{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	return seqdb.Location{FileID: r.FileID, Start: r.StartOffset, Length: r.Length}, true, nil
}

func (s *Store) GetByPrefix(ctx context.Context, q seqdb.PrefixQuery, limit int) ([]seqdb.Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	// A repeated id keeps only its newest file, before the limit applies.
	query := `
		SELECT sequence_id, file_id, start_offset, length FROM (
			SELECT sequence_id, file_id, start_offset, length,
				ROW_NUMBER() OVER (PARTITION BY sequence_id ORDER BY file_id DESC) AS rn
			FROM sequence_refs
			WHERE dataset_label = ? AND sequence_kind = ? AND sample_id = ? AND sequence_id >= ?`
	args := []any{q.Dataset, q.Kind, q.Sample, q.Prefix}
	if upper, ok := prefixUpperBound(q.Prefix); ok {
		query += ` AND sequence_id < ?`
		args = append(args, upper)
	}
	query += `
		) WHERE rn = 1 ORDER BY sequence_id LIMIT ?`
	args = append(args, limit)

	var rows []refRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("prefix search %q: %w", q.Prefix, err)
	}

	out := make([]seqdb.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, seqdb.Entry{
			Key:      seqdb.Key{Dataset: q.Dataset, Kind: q.Kind, Sample: q.Sample, SequenceID: r.SequenceID},
			Location: seqdb.Location{FileID: r.FileID, Start: r.StartOffset, Length: r.Length},
		})
	}
	return out, nil
}

// prefixUpperBound returns the smallest string greater than every string
// starting with p. ok is false when no such bound exists.
func prefixUpperBound(p string) (string, bool) {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

func (s *Store) File(ctx context.Context, id uint32) (seqdb.FileRecord, error) {
	var r fileRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, path, dataset_label, sample_id, sequence_kind FROM fasta_files
		WHERE id = ? AND committed = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return seqdb.FileRecord{}, fmt.Errorf("file %d: %w", id, seqdb.ErrNotFound)
	}
	if err != nil {
		return seqdb.FileRecord{}, fmt.Errorf("file %d: %w", id, err)
	}
	return r.record(), nil
}

func (s *Store) Files(ctx context.Context, dataset string, kind seqdb.Kind, sample string) ([]seqdb.FileRecord, error) {
	var rows []fileRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, path, dataset_label, sample_id, sequence_kind FROM fasta_files
		WHERE dataset_label = ? AND sequence_kind = ? AND sample_id = ? AND committed = 1
		ORDER BY id`, dataset, kind, sample)
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", dataset, err)
	}
	out := make([]seqdb.FileRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (s *Store) Blocks(ctx context.Context, dataset string, kind seqdb.Kind, sample string) ([]seqdb.SampleBlock, error) {
	var rows []blockRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT file_id, dataset_label, sequence_kind, sample_id, n, start_offset, end_offset FROM sample_blocks
		WHERE dataset_label = ? AND sequence_kind = ? AND sample_id = ?
		ORDER BY file_id, start_offset`, dataset, kind, sample)
	if err != nil {
		return nil, fmt.Errorf("list blocks of %s: %w", sample, err)
	}
	out := make([]seqdb.SampleBlock, len(rows))
	for i, r := range rows {
		out[i] = seqdb.SampleBlock{
			Dataset: r.Dataset, Kind: seqdb.Kind(r.Kind), Sample: r.Sample,
			FileID: r.FileID, Count: r.N, Start: r.StartOffset, End: r.EndOffset,
		}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, dataset string, kind seqdb.Kind, sample string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(DISTINCT sequence_id) FROM sequence_refs
		WHERE dataset_label = ? AND sequence_kind = ? AND sample_id = ?`, dataset, kind, sample)
	if err != nil {
		return 0, fmt.Errorf("count %s/%s: %w", dataset, sample, err)
	}
	return n, nil
}

func (s *Store) Generation(ctx context.Context, dataset string) (uint64, error) {
	var gen uint64
	err := s.db.GetContext(ctx, &gen, `SELECT generation FROM generations WHERE dataset_label = ?`, dataset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("generation of %s: %w", dataset, err)
	}
	return gen, nil
}

// Truncate removes every file of dataset, committed or not, and bumps the
// generation.
func (s *Store) Truncate(ctx context.Context, dataset string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ids []uint32
	if err := tx.SelectContext(ctx, &ids, `SELECT id FROM fasta_files WHERE dataset_label = ?`, dataset); err != nil {
		return err
	}

	stmts := []string{
		`DELETE FROM sequence_refs WHERE dataset_label = ?`,
		`DELETE FROM sample_blocks WHERE dataset_label = ?`,
		`DELETE FROM fasta_files WHERE dataset_label = ?`,
		`INSERT INTO generations (dataset_label, generation) VALUES (?, 1)
			ON CONFLICT (dataset_label) DO UPDATE SET generation = generation + 1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, dataset); err != nil {
			return fmt.Errorf("truncate %s: %w", dataset, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, id := range ids {
		s.removeSpool(id)
	}
	s.logger.Info("truncated dataset", "dataset", dataset, "files", len(ids))
	return nil
}

func (r fileRow) record() seqdb.FileRecord {
	return seqdb.FileRecord{ID: r.ID, Path: r.Path, Dataset: r.Dataset, Sample: r.Sample, Kind: seqdb.Kind(r.Kind)}
}

// sampleAt returns the sample of the block containing offset. blocks must
// be sorted by start offset.
func sampleAt(blocks []seqdb.SampleBlock, offset int64) (string, bool) {
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].End > offset })
	if i < len(blocks) && blocks[i].Start <= offset {
		return blocks[i].Sample, true
	}
	return "", false
}
