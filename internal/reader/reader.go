// Package reader performs the random-access reads behind every lookup.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// FileResolver maps file ids to registered files. seqdb.Index satisfies it.
type FileResolver interface {
	File(ctx context.Context, id uint32) (seqdb.FileRecord, error)
}

// Reader reads indexed byte ranges. Every call opens and closes its own file
// handle, so one Reader may serve any number of goroutines.
type Reader struct {
	files FileResolver
}

func New(files FileResolver) *Reader {
	return &Reader{files: files}
}

// Read returns exactly loc.Length bytes starting at loc.Start, as stored.
func (r *Reader) Read(ctx context.Context, loc seqdb.Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.path(ctx, loc.FileID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", seqdb.ErrIO, err)
	}
	defer f.Close()

	return readAt(f, path, loc)
}

// ReadMany reads every location, opening each file once. Results keep the
// order of locs.
func (r *Reader) ReadMany(ctx context.Context, locs []seqdb.Location) ([][]byte, error) {
	out := make([][]byte, len(locs))

	byFile := make(map[uint32][]int)
	for i, loc := range locs {
		byFile[loc.FileID] = append(byFile[loc.FileID], i)
	}

	ids := make([]uint32, 0, len(byFile))
	for id := range byFile {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := r.path(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := readFile(path, locs, byFile[id], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readFile(path string, locs []seqdb.Location, idx []int, out [][]byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", seqdb.ErrIO, err)
	}
	defer f.Close()

	for _, i := range idx {
		b, err := readAt(f, path, locs[i])
		if err != nil {
			return err
		}
		out[i] = b
	}
	return nil
}

// CopyRange streams [start, end) of a file to w. It is used to serve whole
// sample blocks without buffering them.
func (r *Reader) CopyRange(ctx context.Context, w io.Writer, fileID uint32, start, end int64) (int64, error) {
	path, err := r.path(ctx, fileID)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", seqdb.ErrIO, err)
	}
	defer f.Close()

	want := end - start
	n, err := io.Copy(w, io.NewSectionReader(f, start, want))
	if err != nil {
		return n, fmt.Errorf("%w: copy %s: %w", seqdb.ErrIO, path, err)
	}
	if n < want {
		return n, &seqdb.ShortReadError{Path: path, Offset: start, Want: want, Got: n}
	}
	return n, nil
}

// CopyFile streams a whole registered file to w.
func (r *Reader) CopyFile(ctx context.Context, w io.Writer, fileID uint32) (int64, error) {
	path, err := r.path(ctx, fileID)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", seqdb.ErrIO, err)
	}
	defer f.Close()

	n, err := io.Copy(w, f)
	if err != nil {
		return n, fmt.Errorf("%w: copy %s: %w", seqdb.ErrIO, path, err)
	}
	return n, nil
}

func (r *Reader) path(ctx context.Context, id uint32) (string, error) {
	rec, err := r.files.File(ctx, id)
	if err != nil {
		return "", fmt.Errorf("resolve file %d: %w", id, err)
	}
	return rec.Path, nil
}

func readAt(f *os.File, path string, loc seqdb.Location) ([]byte, error) {
	if loc.Start < 0 || loc.Length <= 0 {
		return nil, fmt.Errorf("%w: invalid location %+v", seqdb.ErrIO, loc)
	}

	buf := make([]byte, loc.Length)
	n, err := io.ReadFull(io.NewSectionReader(f, loc.Start, loc.Length), buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &seqdb.ShortReadError{Path: path, Offset: loc.Start, Want: loc.Length, Got: int64(n)}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", seqdb.ErrIO, path, err)
	}
	return buf, nil
}
