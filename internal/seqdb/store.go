package seqdb

import "context"

// Index is the read side of the sequence index. Implementations must be safe
// for concurrent use; only committed entries are ever visible.
type Index interface {
	// Get returns the location of key. ok is false when the key is absent.
	Get(ctx context.Context, key Key) (loc Location, ok bool, err error)
	// GetByPrefix returns up to limit entries of the bucket selected by q whose
	// sequence id starts with q.Prefix, ordered by sequence id.
	GetByPrefix(ctx context.Context, q PrefixQuery, limit int) ([]Entry, error)
	// File returns a committed file record.
	File(ctx context.Context, id uint32) (FileRecord, error)
	// Files lists the committed files of a dataset and kind registered for
	// sample. An empty sample lists the shared multi-sample files.
	Files(ctx context.Context, dataset string, kind Kind, sample string) ([]FileRecord, error)
	// Blocks lists the sample blocks of a dataset and kind for sample.
	Blocks(ctx context.Context, dataset string, kind Kind, sample string) ([]SampleBlock, error)
	// Count returns the number of indexed sequences of a sample.
	Count(ctx context.Context, dataset string, kind Kind, sample string) (int, error)
	// Generation increases every time the dataset is truncated for a rebuild.
	Generation(ctx context.Context, dataset string) (uint64, error)
}

// Sink is the write side. Every file is written through its own Batch;
// nothing written through a batch is visible before Commit returns.
type Sink interface {
	Begin(ctx context.Context, file FileRecord) (Batch, error)
	// Truncate drops every file, entry and block of dataset and starts a new
	// generation.
	Truncate(ctx context.Context, dataset string) error
}

// Batch collects the index state of a single file.
type Batch interface {
	// File returns the registered file record, with its assigned ID.
	File() FileRecord
	// PutMany appends entries. Implementations may persist them as a
	// checkpoint, but they stay invisible to readers until Commit.
	PutMany(ctx context.Context, entries []Entry) error
	PutBlocks(ctx context.Context, blocks []SampleBlock) error
	Commit(ctx context.Context) error
	// Abort discards everything written through the batch. Calling Abort
	// after Commit is a no-op.
	Abort(ctx context.Context) error
}

// Store is a complete index backend.
type Store interface {
	Index
	Sink
	Close() error
}
