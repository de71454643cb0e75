package bulkload_test

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/bulkload"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

func entries() []seqdb.Entry {
	return []seqdb.Entry{
		{Key: seqdb.Key{SequenceID: "S1"}, Location: seqdb.Location{FileID: 3, Start: 0, Length: 19}},
		{Key: seqdb.Key{SequenceID: "Locus_1_Transcript_1/1_Confidence_1.000_Length_9_1"}, Location: seqdb.Location{FileID: 3, Start: 19, Length: 9}},
	}
}

func TestWriterFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	w := bulkload.NewWriter(&buf, 100)
	if err := w.WriteAll(entries()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	want := "100\t19\tS1\t0\t3\n" +
		"101\t9\tLocus_1_Transcript_1/1_Confidence_1.000_Length_9_1\t19\t3\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if w.Rows() != 2 {
		t.Errorf("Rows() = %d, want 2", w.Rows())
	}
}

func TestWriterRejectsSeparators(t *testing.T) {
	for _, id := range []string{"a\tb", "a\nb", `"quoted"`} {
		w := bulkload.NewWriter(io.Discard, 1)
		_, err := w.Write(seqdb.Entry{Key: seqdb.Key{SequenceID: id}, Location: seqdb.Location{Length: 1}})
		if !errors.Is(err, seqdb.ErrMalformedInput) {
			t.Errorf("Write(%q) error = %v, want ErrMalformedInput", id, err)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"batch.tsv", "batch.tsv.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			w, err := bulkload.Create(path, 1)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.WriteAll(entries()); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			r, err := bulkload.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			rows, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("got %d rows", len(rows))
			}
			for i, e := range entries() {
				if rows[i].ID != int64(i+1) || rows[i].SequenceID != e.Key.SequenceID || rows[i].Location() != e.Location {
					t.Errorf("row %d = %+v, want %+v", i, rows[i], e)
				}
			}
		})
	}
}

func TestReaderMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing field", "1\t19\tS1\t0\n"},
		{"bad length", "1\tx\tS1\t0\t3\n"},
		{"zero length", "1\t0\tS1\t0\t3\n"},
		{"negative offset", "1\t5\tS1\t-1\t3\n"},
		{"extra field", "1\t5\tS1\t0\t3\t9\n"},
		{"file id overflow", "1\t5\tS1\t0\t4294967296\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bulkload.NewReader(strings.NewReader(tt.input)).ReadAll()
			if !errors.Is(err, seqdb.ErrMalformedInput) {
				t.Errorf("ReadAll() error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestReaderErrorNamesLine(t *testing.T) {
	input := "1\t5\tS1\t0\t3\n2\t0\tS2\t5\t3\n"
	rows, err := bulkload.NewReader(strings.NewReader(input)).ReadAll()
	if len(rows) != 1 || !errors.Is(err, seqdb.ErrMalformedInput) {
		t.Fatalf("ReadAll() = %+v, %v", rows, err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name line 2", err)
	}
}

func TestReaderLastLineWithoutNewline(t *testing.T) {
	rows, err := bulkload.NewReader(strings.NewReader("7\t4\tX\t10\t2")).ReadAll()
	if err != nil || len(rows) != 1 || rows[0].StartOffset != 10 {
		t.Errorf("ReadAll() = %+v, %v", rows, err)
	}
}
