package retrieve_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/core"
	"github.com/0xRadioAc7iv/go-seqcask/internal/bulkload"
	"github.com/0xRadioAc7iv/go-seqcask/internal/ingest"
	"github.com/0xRadioAc7iv/go-seqcask/internal/retrieve"
	"github.com/0xRadioAc7iv/go-seqcask/internal/scheme"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

const (
	orf1 = ">Locus_97_Transcript_9/10_Confidence_0.625_Length_611_1 frame=1\nMKVLA\n"
	orf2 = ">Locus_97_Transcript_9/10_Confidence_0.625_Length_611_2\nMLL\n"
	orf3 = ">Locus_97_Transcript_10/10_Confidence_0.500_Length_420_1\nMA\nQ\n"
	orf4 = ">Locus_970_Transcript_1/1_Confidence_1.000_Length_300_1\nMW\n"

	transcript = ">Locus_97_Transcript_9/10_Confidence_0.625_Length_611\nACGUACGU\n"

	shared = ">scaffold-AAAA-1-x\nACGT\n>scaffold-AAAA-2-x\nAC\n>scaffold-BBBB-1-x\nGG\n"
)

type fixture struct {
	store *core.SeqCask
	svc   *retrieve.Service
	dir   string
}

func setup(t *testing.T, opts ...retrieve.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	store := &core.SeqCask{DirectoryPath: t.TempDir()}
	if err := store.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Stop() })

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	reg := scheme.DefaultRegistry()
	p := ingest.New(store, reg)
	runs := []struct {
		dataset string
		files   []ingest.FileSpec
	}{
		{"k39", []ingest.FileSpec{
			{Path: write("FANS-proteins.fa", orf1+orf2+orf3+orf4), Kind: seqdb.Protein},
			{Path: write("FANS-transcripts.fa", transcript), Kind: seqdb.RNA},
		}},
		{"k25s", []ingest.FileSpec{{Path: write("shared.fa", shared), Kind: seqdb.Protein}}},
	}
	for _, r := range runs {
		rep, err := p.Run(ctx, r.dataset, r.files)
		if err != nil {
			t.Fatal(err)
		}
		if err := rep.Err(); err != nil {
			t.Fatal(err)
		}
	}

	return &fixture{store: store, svc: retrieve.New(store, reg, opts...), dir: dir}
}

func TestGetExact(t *testing.T) {
	f := setup(t)
	res, err := f.svc.Get(context.Background(), "k39", seqdb.Protein, "FANS_Locus_97_Transcript_9/10_Confidence_0.625_Length_611_2")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !res.Exact || len(res.Records) != 1 {
		t.Fatalf("Get() = %+v", res)
	}
	if got := string(res.Records[0].Data); got != orf2 {
		t.Errorf("data = %q, want %q", got, orf2)
	}
	if res.Records[0].ExternalID != "FANS_Locus_97_Transcript_9/10_Confidence_0.625_Length_611_2" {
		t.Errorf("external id = %s", res.Records[0].ExternalID)
	}
}

func TestGetTranscriptStripsReadingFrame(t *testing.T) {
	f := setup(t)
	res, err := f.svc.Get(context.Background(), "k39", seqdb.RNA, "FANS_Locus_97_Transcript_9/10_Confidence_0.625_Length_611_1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !res.Exact || string(res.Bytes()) != transcript {
		t.Errorf("Get() = %q, exact=%v", res.Bytes(), res.Exact)
	}
}

func TestGetPartialLocus(t *testing.T) {
	f := setup(t)
	res, err := f.svc.Get(context.Background(), "k39", seqdb.Protein, "FANS_Locus_97")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if res.Exact || len(res.Records) != 3 {
		t.Fatalf("Get() returned %d records, want 3", len(res.Records))
	}
	want := map[string]bool{orf1: true, orf2: true, orf3: true}
	for _, r := range res.Records {
		if !want[string(r.Data)] {
			t.Errorf("unexpected record %q", r.Data)
		}
	}
}

func TestGetPartialTranscript(t *testing.T) {
	f := setup(t)
	res, err := f.svc.GetPartial(context.Background(), "k39", seqdb.Protein, "FANS_Locus_97_Transcript_9")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 {
		t.Errorf("GetPartial() returned %d records, want 2", len(res.Records))
	}
}

func TestGetAssemblyPrefix(t *testing.T) {
	f := setup(t)
	res, err := f.svc.Get(context.Background(), "k25s", seqdb.Protein, "scaffold-AAAA-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || string(res.Records[0].Data) != ">scaffold-AAAA-2-x\nAC\n" {
		t.Errorf("Get() = %+v", res)
	}
}

func TestMaxResults(t *testing.T) {
	f := setup(t, retrieve.WithMaxResults(2))
	res, err := f.svc.Get(context.Background(), "k39", seqdb.Protein, "FANS_Locus_97")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 || !res.Truncated {
		t.Errorf("Get() = %d records, truncated=%v", len(res.Records), res.Truncated)
	}
}

func TestGetErrors(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name    string
		dataset string
		id      string
		want    error
	}{
		{"malformed id", "k39", "FANS-Locus", seqdb.ErrInvalidIdentifier},
		{"unknown dataset", "k99", "FANS_Locus_97", seqdb.ErrConfiguration},
		{"no such sequence", "k39", "FANS_Locus_12", seqdb.ErrNotFound},
		{"no such sample", "k39", "ABCD_Locus_97", seqdb.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Get(context.Background(), tt.dataset, seqdb.Protein, tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("Get() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGetShortRead(t *testing.T) {
	f := setup(t)
	// truncate the protein file behind the index
	if err := os.Truncate(filepath.Join(f.dir, "FANS-proteins.fa"), int64(len(orf1)+5)); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Get(context.Background(), "k39", seqdb.Protein, "FANS_Locus_97_Transcript_9/10_Confidence_0.625_Length_611_2")
	if !errors.Is(err, seqdb.ErrShortRead) {
		t.Fatalf("Get() error = %v, want ErrShortRead", err)
	}
	if seqdb.Classify(err) != seqdb.CodeIO {
		t.Errorf("Classify() = %s, want io", seqdb.Classify(err))
	}
}

func TestGetSequence(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.GetSequence(ctx, "k39", seqdb.Protein, "FANS_Locus_970_Transcript_1/1_Confidence_1.000_Length_300_1")
	if err != nil || string(b) != orf4 {
		t.Errorf("GetSequence() = %q, %v", b, err)
	}
	if _, err := f.svc.GetSequence(ctx, "k39", seqdb.Protein, "FANS_Locus_97"); !errors.Is(err, seqdb.ErrInvalidIdentifier) {
		t.Errorf("GetSequence(partial) error = %v", err)
	}
	if _, err := f.svc.GetSequence(ctx, "k39", seqdb.Protein, "FANS_Locus_1_Transcript_1/1_Confidence_1.000_Length_3_1"); !errors.Is(err, seqdb.ErrNotFound) {
		t.Errorf("GetSequence(missing) error = %v", err)
	}
}

func TestGetAll(t *testing.T) {
	f := setup(t)
	results, err := f.svc.GetAll(context.Background(), "k39", "FANS_Locus_97_Transcript_9/10_Confidence_0.625_Length_611_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Kind != seqdb.Protein || results[1].Kind != seqdb.RNA {
		t.Fatalf("GetAll() = %+v", results)
	}
	if string(results[1].Bytes()) != transcript {
		t.Errorf("rna result = %q", results[1].Bytes())
	}
}

func TestSampleSequences(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if _, err := f.svc.SampleSequences(ctx, "k39", seqdb.Protein, "FANS", &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != orf1+orf2+orf3+orf4 {
		t.Errorf("proteome = %q", buf.String())
	}

	buf.Reset()
	if _, err := f.svc.SampleSequences(ctx, "k25s", seqdb.Protein, "BBBB", &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != ">scaffold-BBBB-1-x\nGG\n" {
		t.Errorf("block = %q", buf.String())
	}

	if _, err := f.svc.SampleSequences(ctx, "k25s", seqdb.Protein, "CCCC", &buf); !errors.Is(err, seqdb.ErrNotFound) {
		t.Errorf("unknown sample error = %v", err)
	}
	if _, err := f.svc.SampleSequences(ctx, "k25s", seqdb.Protein, "cc", &buf); !errors.Is(err, seqdb.ErrInvalidIdentifier) {
		t.Errorf("bad sample error = %v", err)
	}
}

func TestSummaryAndGeneration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sum, err := f.svc.Summary(ctx, "k39", "FANS")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Counts[seqdb.Protein] != 4 || sum.Counts[seqdb.RNA] != 1 {
		t.Errorf("Summary() = %+v", sum.Counts)
	}

	if err := f.store.Truncate(ctx, "k39"); err != nil {
		t.Fatal(err)
	}
	if gen, err := f.svc.Generation(ctx, "k39"); err != nil || gen != 1 {
		t.Errorf("Generation() = %d, %v", gen, err)
	}

	labels := f.svc.Datasets()
	if len(labels) != 6 || labels[0].Label != "k25" || labels[0].Scheme != "direct" {
		t.Errorf("Datasets() = %+v", labels)
	}
}

func TestExport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var buf bytes.Buffer
	w := bulkload.NewWriter(&buf, 1)
	n, err := f.svc.Export(ctx, "k39", seqdb.Protein, "FANS", w)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("Export() wrote %d rows", n)
	}

	rows, err := bulkload.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("read %d rows", len(rows))
	}
	first := rows[0]
	if first.ID != 1 || first.SequenceID != "Locus_970_Transcript_1/1_Confidence_1.000_Length_300_1" {
		t.Errorf("first row = %+v", first)
	}
	if first.StartOffset != int64(len(orf1+orf2+orf3)) || first.Length != int64(len(orf4)) {
		t.Errorf("first row location = %+v", first.Location())
	}

	if _, err := f.svc.Export(ctx, "k39", seqdb.RNA, "ZZZZ", w); !errors.Is(err, seqdb.ErrNotFound) {
		t.Errorf("unknown sample error = %v", err)
	}
}
