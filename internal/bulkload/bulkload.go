// Package bulkload reads and writes the tab separated intermediate format
// used to bulk insert index entries:
//
//	id <TAB> length <TAB> sequence_id <TAB> start_offset <TAB> file_id <LF>
//
// There is no header row. Paths ending in .gz are gzip compressed.
package bulkload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/klauspost/pgzip"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Row is one line of a bulk-load file. Field order is column order.
type Row struct {
	ID          int64  `tsv:"id"`
	Length      int64  `tsv:"length"`
	SequenceID  string `tsv:"sequence_id"`
	StartOffset int64  `tsv:"start_offset"`
	FileID      uint32 `tsv:"file_id"`
}

// Location returns the sequence location described by the row.
func (r Row) Location() seqdb.Location {
	return seqdb.Location{FileID: r.FileID, Start: r.StartOffset, Length: r.Length}
}

const numFields = 5

// Writer emits rows. Row ids are assigned sequentially from the first id
// given to NewWriter.
type Writer struct {
	tw      *tsv.Writer
	closers []io.Closer
	nextID  int64
	rows    int64
}

func NewWriter(w io.Writer, firstID int64) *Writer {
	return &Writer{tw: tsv.NewWriter(w), nextID: firstID}
}

// Create opens path for writing, compressing when it ends in .gz.
func Create(path string, firstID int64) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		w := NewWriter(f, firstID)
		w.closers = []io.Closer{f}
		return w, nil
	}

	pw, err := pgzip.NewWriterLevel(f, pgzip.DefaultCompression)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if err := pw.SetConcurrency(1<<20, runtime.GOMAXPROCS(0)); err != nil {
		_ = pw.Close()
		_ = f.Close()
		return nil, fmt.Errorf("set gzip concurrency: %w", err)
	}
	w := NewWriter(pw, firstID)
	w.closers = []io.Closer{pw, f}
	return w, nil
}

// Write emits one entry and returns the row id assigned to it.
func (w *Writer) Write(e seqdb.Entry) (int64, error) {
	if strings.ContainsAny(e.Key.SequenceID, "\t\n\r") || strings.HasPrefix(e.Key.SequenceID, `"`) {
		return 0, fmt.Errorf("%w: sequence id %q cannot be written as a field", seqdb.ErrMalformedInput, e.Key.SequenceID)
	}
	id := w.nextID
	w.tw.WriteInt64(id)
	w.tw.WriteInt64(e.Location.Length)
	w.tw.WriteString(e.Key.SequenceID)
	w.tw.WriteInt64(e.Location.Start)
	w.tw.WriteInt64(int64(e.Location.FileID))
	if err := w.tw.EndLine(); err != nil {
		return 0, err
	}
	w.nextID++
	w.rows++
	return id, nil
}

func (w *Writer) WriteAll(entries []seqdb.Entry) error {
	for _, e := range entries {
		if _, err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

func (w *Writer) Flush() error { return w.tw.Flush() }

// Close flushes buffered rows and closes the underlying file, if any.
func (w *Writer) Close() error {
	errs := []error{w.tw.Flush()}
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	w.closers = nil
	return errors.Join(errs...)
}

// Reader parses rows back. Columns are decoded by position into Row.
type Reader struct {
	tr      *tsv.Reader
	closers []io.Closer
}

func NewReader(r io.Reader) *Reader {
	tr := tsv.NewReader(r)
	tr.FieldsPerRecord = numFields
	tr.LazyQuotes = true
	return &Reader{tr: tr}
}

// Open opens path for reading, decompressing when it ends in .gz.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		r := NewReader(f)
		r.closers = []io.Closer{f}
		return r, nil
	}

	zr, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open gzip reader %s: %w", path, err)
	}
	r := NewReader(zr)
	r.closers = []io.Closer{zr, f}
	return r, nil
}

// Next returns the next row, or io.EOF after the last one.
func (r *Reader) Next() (Row, error) {
	var row Row
	if err := r.tr.Read(&row); err != nil {
		if err == io.EOF {
			return Row{}, err
		}
		return Row{}, fmt.Errorf("%w: bulk-load: %v", seqdb.ErrMalformedInput, err)
	}
	if row.Length <= 0 {
		return Row{}, r.malformed("length %d", row.Length)
	}
	if row.StartOffset < 0 {
		return Row{}, r.malformed("start_offset %d", row.StartOffset)
	}
	return row, nil
}

// ReadAll returns every remaining row.
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Reader) malformed(format string, args ...any) error {
	line, _ := r.tr.FieldPos(0)
	return fmt.Errorf("%w: bulk-load line %d: %s", seqdb.ErrMalformedInput, line, fmt.Sprintf(format, args...))
}
