// Package seqdbtest checks that a seqdb.Store honours the index contract.
package seqdbtest

import (
	"context"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Factory opens a fresh, empty store. The store is closed by the caller.
type Factory func(t *testing.T) seqdb.Store

// Run exercises the store contract against stores built by open.
func Run(t *testing.T, open Factory) {
	t.Run("commit makes entries visible", func(t *testing.T) { testCommit(t, open(t)) })
	t.Run("abort discards entries", func(t *testing.T) { testAbort(t, open(t)) })
	t.Run("prefix search", func(t *testing.T) { testPrefix(t, open(t)) })
	t.Run("multi-sample blocks", func(t *testing.T) { testBlocks(t, open(t)) })
	t.Run("truncate", func(t *testing.T) { testTruncate(t, open(t)) })
	t.Run("truncate discards an open batch", func(t *testing.T) { testTruncateOpenBatch(t, open(t)) })
	t.Run("repeated id across files", func(t *testing.T) { testRepeatedIDs(t, open(t)) })
}

func key(sample, id string) seqdb.Key {
	return seqdb.Key{Dataset: "k39", Kind: seqdb.Protein, Sample: sample, SequenceID: id}
}

func begin(t *testing.T, s seqdb.Store, file seqdb.FileRecord) seqdb.Batch {
	t.Helper()
	b, err := s.Begin(context.Background(), file)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if b.File().ID == 0 {
		t.Fatal("Begin() assigned no file id")
	}
	return b
}

func put(t *testing.T, b seqdb.Batch, sample string, ids ...string) []seqdb.Entry {
	t.Helper()
	var entries []seqdb.Entry
	var off int64
	for _, id := range ids {
		n := int64(len(id) + 10)
		entries = append(entries, seqdb.Entry{
			Key:      key(sample, id),
			Location: seqdb.Location{FileID: b.File().ID, Start: off, Length: n},
		})
		off += n
	}
	if err := b.PutMany(context.Background(), entries); err != nil {
		t.Fatalf("PutMany() error: %v", err)
	}
	return entries
}

func testCommit(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	b := begin(t, s, seqdb.FileRecord{Path: "/data/FANS.fa", Dataset: "k39", Sample: "FANS"})
	entries := put(t, b, "FANS", "Locus_1_Transcript_1/1_Confidence_1.000_Length_90_1", "Locus_2_Transcript_1/1_Confidence_1.000_Length_90_1")
	// second checkpoint
	more := put(t, b, "FANS", "Locus_3_Transcript_1/1_Confidence_1.000_Length_90_1")

	if _, ok, err := s.Get(ctx, entries[0].Key); err != nil || ok {
		t.Fatalf("entry visible before commit (ok=%v, err=%v)", ok, err)
	}
	if files, _ := s.Files(ctx, "k39", seqdb.Protein, "FANS"); len(files) != 0 {
		t.Fatalf("file visible before commit: %+v", files)
	}

	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	for _, e := range append(entries, more...) {
		loc, ok, err := s.Get(ctx, e.Key)
		if err != nil || !ok || loc != e.Location {
			t.Errorf("Get(%s) = %+v, %v, %v; want %+v", e.Key.SequenceID, loc, ok, err, e.Location)
		}
	}

	f, err := s.File(ctx, b.File().ID)
	if err != nil || f.Path != "/data/FANS.fa" || f.Sample != "FANS" {
		t.Errorf("File() = %+v, %v", f, err)
	}
	n, err := s.Count(ctx, "k39", seqdb.Protein, "FANS")
	if err != nil || n != 3 {
		t.Errorf("Count() = %d, %v; want 3", n, err)
	}
	if _, ok, _ := s.Get(ctx, seqdb.Key{Dataset: "k39", Kind: seqdb.RNA, Sample: "FANS", SequenceID: entries[0].Key.SequenceID}); ok {
		t.Error("protein entry found under the rna kind")
	}
}

func testAbort(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	b := begin(t, s, seqdb.FileRecord{Path: "/data/ABCD.fa", Dataset: "k39", Sample: "ABCD"})
	entries := put(t, b, "ABCD", "Locus_9")
	if err := b.Abort(ctx); err != nil {
		t.Fatalf("Abort() error: %v", err)
	}
	if err := b.Commit(ctx); err == nil {
		t.Error("Commit() after Abort() succeeded")
	}
	if _, ok, _ := s.Get(ctx, entries[0].Key); ok {
		t.Error("aborted entry is visible")
	}
	if _, err := s.File(ctx, b.File().ID); err == nil {
		t.Error("aborted file is registered")
	}
}

func testPrefix(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	b := begin(t, s, seqdb.FileRecord{Path: "/data/FANS.fa", Dataset: "k39", Sample: "FANS"})
	put(t, b, "FANS",
		"Locus_97_Transcript_9/10_Confidence_0.625_Length_611_1",
		"Locus_97_Transcript_9/10_Confidence_0.625_Length_611_2",
		"Locus_97_Transcript_10/10_Confidence_0.500_Length_420_1",
		"Locus_970_Transcript_1/1_Confidence_1.000_Length_300_1",
	)
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	q := seqdb.PrefixQuery{Dataset: "k39", Kind: seqdb.Protein, Sample: "FANS", Prefix: "Locus_97_"}
	got, err := s.GetByPrefix(ctx, q, 1000)
	if err != nil {
		t.Fatalf("GetByPrefix() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetByPrefix() returned %d entries, want 3: %+v", len(got), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Key.SequenceID >= got[i].Key.SequenceID {
			t.Errorf("results not ordered by id")
		}
	}

	got, _ = s.GetByPrefix(ctx, q, 2)
	if len(got) != 2 {
		t.Errorf("limit 2 returned %d entries", len(got))
	}

	q.Prefix = "locus_97_"
	if got, _ := s.GetByPrefix(ctx, q, 10); len(got) != 0 {
		t.Errorf("prefix search is not case sensitive: %+v", got)
	}
}

func testBlocks(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	b := begin(t, s, seqdb.FileRecord{Path: "/data/k25s/all.fa", Dataset: "k25s", Kind: seqdb.RNA})
	id := b.File().ID
	entries := []seqdb.Entry{
		{Key: seqdb.Key{Dataset: "k25s", Kind: seqdb.RNA, Sample: "AAAA", SequenceID: "scaffold-AAAA-1-x"}, Location: seqdb.Location{FileID: id, Start: 0, Length: 30}},
		{Key: seqdb.Key{Dataset: "k25s", Kind: seqdb.RNA, Sample: "AAAA", SequenceID: "scaffold-AAAA-2-x"}, Location: seqdb.Location{FileID: id, Start: 30, Length: 30}},
		{Key: seqdb.Key{Dataset: "k25s", Kind: seqdb.RNA, Sample: "BBBB", SequenceID: "scaffold-BBBB-1-x"}, Location: seqdb.Location{FileID: id, Start: 60, Length: 25}},
	}
	if err := b.PutMany(ctx, entries); err != nil {
		t.Fatal(err)
	}
	blocks := []seqdb.SampleBlock{
		{Dataset: "k25s", Kind: seqdb.RNA, Sample: "AAAA", Count: 2, Start: 0, End: 60},
		{Dataset: "k25s", Kind: seqdb.RNA, Sample: "BBBB", Count: 1, Start: 60, End: 85},
	}
	if err := b.PutBlocks(ctx, blocks); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	got, err := s.Blocks(ctx, "k25s", seqdb.RNA, "BBBB")
	if err != nil || len(got) != 1 {
		t.Fatalf("Blocks() = %+v, %v", got, err)
	}
	if got[0].FileID != id || got[0].Start != 60 || got[0].End != 85 || got[0].Count != 1 {
		t.Errorf("block = %+v", got[0])
	}

	loc, ok, _ := s.Get(ctx, entries[2].Key)
	if !ok || loc != entries[2].Location {
		t.Errorf("Get(%s) = %+v, %v", entries[2].Key.SequenceID, loc, ok)
	}

	files, _ := s.Files(ctx, "k25s", seqdb.RNA, "")
	if len(files) != 1 || files[0].ID != id {
		t.Errorf("Files() = %+v", files)
	}
}

func testTruncate(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	b := begin(t, s, seqdb.FileRecord{Path: "/data/k39/FANS.fa", Dataset: "k39", Sample: "FANS"})
	entries := put(t, b, "FANS", "Locus_1")
	if err := b.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	other := begin(t, s, seqdb.FileRecord{Path: "/data/k49/FANS.fa", Dataset: "k49", Sample: "FANS"})
	if err := other.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	gen, _ := s.Generation(ctx, "k39")
	if err := s.Truncate(ctx, "k39"); err != nil {
		t.Fatalf("Truncate() error: %v", err)
	}
	after, _ := s.Generation(ctx, "k39")
	if after != gen+1 {
		t.Errorf("generation %d -> %d, want +1", gen, after)
	}

	if _, ok, _ := s.Get(ctx, entries[0].Key); ok {
		t.Error("entry survived truncate")
	}
	if _, err := s.File(ctx, b.File().ID); err == nil {
		t.Error("file survived truncate")
	}
	if _, err := s.File(ctx, other.File().ID); err != nil {
		t.Errorf("truncate removed a file of another dataset: %v", err)
	}
	if g, _ := s.Generation(ctx, "k49"); g != 0 {
		t.Errorf("generation of k49 = %d, want 0", g)
	}

	nb := begin(t, s, seqdb.FileRecord{Path: "/data/k39/FANS.fa", Dataset: "k39", Sample: "FANS"})
	if nb.File().ID == b.File().ID {
		t.Error("file id reused after truncate")
	}
	nb.Abort(ctx)
}

func testTruncateOpenBatch(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	b := begin(t, s, seqdb.FileRecord{Path: "/data/k39/ABCD.fa", Dataset: "k39", Sample: "ABCD"})
	entries := put(t, b, "ABCD", "Locus_1", "Locus_2")
	if err := s.Truncate(ctx, "k39"); err != nil {
		t.Fatal(err)
	}

	if err := b.Commit(ctx); err == nil {
		t.Fatal("Commit() of a truncated batch succeeded")
	}
	for _, e := range entries {
		if _, ok, _ := s.Get(ctx, e.Key); ok {
			t.Errorf("entry %s visible after a discarded commit", e.Key.SequenceID)
		}
	}
	if files, _ := s.Files(ctx, "k39", seqdb.Protein, "ABCD"); len(files) != 0 {
		t.Errorf("Files() = %+v, want none", files)
	}
}

func testRepeatedIDs(t *testing.T, s seqdb.Store) {
	defer s.Close()
	ctx := context.Background()

	ids := []string{"Locus_1", "Locus_2", "Locus_3"}
	var newer []seqdb.Entry
	for _, path := range []string{"/data/old/ABCD.fa", "/data/new/ABCD.fa"} {
		b := begin(t, s, seqdb.FileRecord{Path: path, Dataset: "k39", Sample: "ABCD"})
		newer = put(t, b, "ABCD", ids...)
		if err := b.Commit(ctx); err != nil {
			t.Fatal(err)
		}
	}

	q := seqdb.PrefixQuery{Dataset: "k39", Kind: seqdb.Protein, Sample: "ABCD", Prefix: "Locus_"}
	for _, limit := range []int{2, 3, 0} {
		got, err := s.GetByPrefix(ctx, q, limit)
		if err != nil {
			t.Fatalf("GetByPrefix(limit %d) error: %v", limit, err)
		}
		want := len(ids)
		if limit > 0 && limit < want {
			want = limit
		}
		if len(got) != want {
			t.Errorf("limit %d returned %d entries, want %d: %+v", limit, len(got), want, got)
			continue
		}
		for i, e := range got {
			if e.Key != newer[i].Key || e.Location != newer[i].Location {
				t.Errorf("limit %d: entry %d = %+v, want %+v", limit, i, e, newer[i])
			}
		}
	}

	if n, err := s.Count(ctx, "k39", seqdb.Protein, "ABCD"); err != nil || n != len(ids) {
		t.Errorf("Count() = %d, %v; want %d", n, err, len(ids))
	}
}
