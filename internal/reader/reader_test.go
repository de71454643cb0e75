package reader_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/fasta"
	"github.com/0xRadioAc7iv/go-seqcask/internal/reader"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

type fileTable map[uint32]string

func (ft fileTable) File(_ context.Context, id uint32) (seqdb.FileRecord, error) {
	p, ok := ft[id]
	if !ok {
		return seqdb.FileRecord{}, fmt.Errorf("file %d: %w", id, seqdb.ErrNotFound)
	}
	return seqdb.FileRecord{ID: id, Path: p}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const sample = ">S1 first\nMKVLA\nAGT\n>S2\nQQ\n>S3 last record\r\nWWW"

func TestReadReproducesRecords(t *testing.T) {
	path := writeFile(t, "ABCD.fa", sample)
	r := reader.New(fileTable{1: path})

	entries, err := fasta.Index(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		got, err := r.Read(context.Background(), seqdb.Location{FileID: 1, Start: e.Start, Length: e.Length})
		if err != nil {
			t.Fatalf("Read(%s) error: %v", e.ID, err)
		}
		if want := sample[e.Start:e.End()]; string(got) != want {
			t.Errorf("Read(%s) = %q, want %q", e.ID, got, want)
		}
	}
}

func TestReadShortRead(t *testing.T) {
	path := writeFile(t, "ABCD.fa", ">S1\nACGT\n")
	r := reader.New(fileTable{1: path})

	_, err := r.Read(context.Background(), seqdb.Location{FileID: 1, Start: 4, Length: 20})
	if !errors.Is(err, seqdb.ErrShortRead) {
		t.Fatalf("error = %v, want ErrShortRead", err)
	}
	var serr *seqdb.ShortReadError
	if !errors.As(err, &serr) || serr.Want != 20 || serr.Got != 5 {
		t.Errorf("unexpected short read %+v", serr)
	}
	if seqdb.Classify(err) != seqdb.CodeIO {
		t.Errorf("Classify() = %s, want io", seqdb.Classify(err))
	}
}

func TestReadMissingFile(t *testing.T) {
	r := reader.New(fileTable{1: filepath.Join(t.TempDir(), "gone.fa")})

	_, err := r.Read(context.Background(), seqdb.Location{FileID: 1, Start: 0, Length: 3})
	if !errors.Is(err, seqdb.ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want ErrIO wrapping ErrNotExist", err)
	}

	_, err = r.Read(context.Background(), seqdb.Location{FileID: 9, Start: 0, Length: 3})
	if !errors.Is(err, seqdb.ErrNotFound) {
		t.Errorf("unknown file error = %v", err)
	}
}

func TestReadMany(t *testing.T) {
	a := writeFile(t, "a.fa", ">a1\nAA\n>a2\nCC\n")
	b := writeFile(t, "b.fa", ">b1\nGG\n")
	r := reader.New(fileTable{1: a, 2: b})

	locs := []seqdb.Location{
		{FileID: 2, Start: 0, Length: 7},
		{FileID: 1, Start: 7, Length: 7},
		{FileID: 1, Start: 0, Length: 7},
	}
	got, err := r.ReadMany(context.Background(), locs)
	if err != nil {
		t.Fatalf("ReadMany() error: %v", err)
	}
	want := []string{">b1\nGG\n", ">a2\nCC\n", ">a1\nAA\n"}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCopyRange(t *testing.T) {
	path := writeFile(t, "shared.fa", sample)
	r := reader.New(fileTable{3: path})

	var buf bytes.Buffer
	n, err := r.CopyRange(context.Background(), &buf, 3, 10, 24)
	if err != nil {
		t.Fatalf("CopyRange() error: %v", err)
	}
	if n != 14 || buf.String() != sample[10:24] {
		t.Errorf("CopyRange() = %d %q", n, buf.String())
	}

	_, err = r.CopyRange(context.Background(), &buf, 3, 10, int64(len(sample))+5)
	if !errors.Is(err, seqdb.ErrShortRead) {
		t.Errorf("error = %v, want ErrShortRead", err)
	}
}

func TestCopyFile(t *testing.T) {
	path := writeFile(t, "ABCD.fa", sample)
	r := reader.New(fileTable{1: path})

	var buf bytes.Buffer
	n, err := r.CopyFile(context.Background(), &buf, 1)
	if err != nil || n != int64(len(sample)) || buf.String() != sample {
		t.Errorf("CopyFile() = %d, %v", n, err)
	}

	if _, err := r.CopyFile(context.Background(), &buf, 9); !errors.Is(err, seqdb.ErrNotFound) {
		t.Errorf("CopyFile(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestConcurrentReads(t *testing.T) {
	path := writeFile(t, "ABCD.fa", sample)
	r := reader.New(fileTable{1: path})
	entries, err := fasta.Index(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		e := entries[i%len(entries)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Read(context.Background(), seqdb.Location{FileID: 1, Start: e.Start, Length: e.Length})
			if err != nil {
				errs <- err
				return
			}
			if string(got) != sample[e.Start:e.End()] {
				errs <- fmt.Errorf("record %s mismatch", e.ID)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
