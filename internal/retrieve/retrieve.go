// Package retrieve answers lookups by external identifier.
//
// A lookup resolves the identifier with the dataset's scheme, tries an exact
// match when the identifier is full-length and falls back to a bounded
// prefix search otherwise. Records are returned byte for byte as they appear
// in the indexed FASTA file.
package retrieve

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/0xRadioAc7iv/go-seqcask/internal/bulkload"
	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/reader"
	"github.com/0xRadioAc7iv/go-seqcask/internal/scheme"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

const DefaultMaxResults = 1000

// Record is one retrieved FASTA record.
type Record struct {
	ExternalID string
	Sample     string
	SequenceID string
	Kind       seqdb.Kind
	Location   seqdb.Location
	Data       []byte
}

// Result is the answer to one lookup.
type Result struct {
	Dataset string
	Kind    seqdb.Kind
	Query   string
	// Exact is set when the identifier matched one record exactly.
	Exact   bool
	Records []Record
	// Truncated is set when the prefix search hit the result bound.
	Truncated bool
}

// Bytes concatenates the records in order.
func (r Result) Bytes() []byte {
	var n int
	for _, rec := range r.Records {
		n += len(rec.Data)
	}
	out := make([]byte, 0, n)
	for _, rec := range r.Records {
		out = append(out, rec.Data...)
	}
	return out
}

type Service struct {
	index      seqdb.Index
	schemes    *scheme.Registry
	reader     *reader.Reader
	maxResults int
	logger     *log.Logger
}

type Option func(*Service)

// WithMaxResults bounds prefix searches.
func WithMaxResults(n int) Option {
	return func(s *Service) { s.maxResults = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(index seqdb.Index, schemes *scheme.Registry, opts ...Option) *Service {
	s := &Service{
		index:      index,
		schemes:    schemes,
		reader:     reader.New(index),
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxResults < 1 {
		s.maxResults = DefaultMaxResults
	}
	s.logger = logging.OrDiscard(s.logger).With("component", "retrieve")
	return s
}

// Get looks id up exactly when it is full-length and falls back to a prefix
// search when it is not, or when the exact lookup misses.
func (s *Service) Get(ctx context.Context, dataset string, kind seqdb.Kind, id string) (Result, error) {
	sch, res, err := s.resolve(dataset, kind, id)
	if err != nil {
		return Result{}, err
	}

	if res.Full {
		out, ok, err := s.exact(ctx, sch, dataset, kind, id, res)
		if err != nil || ok {
			return out, err
		}
		res.Prefix = res.SequenceID
		s.logger.Debug("exact lookup missed, trying prefix", "dataset", dataset, "id", id)
	}
	return s.prefix(ctx, sch, dataset, kind, id, res)
}

// GetSequence returns the raw record of a full-length identifier. It never
// falls back to a prefix search.
func (s *Service) GetSequence(ctx context.Context, dataset string, kind seqdb.Kind, id string) ([]byte, error) {
	sch, res, err := s.resolve(dataset, kind, id)
	if err != nil {
		return nil, err
	}
	if !res.Full {
		return nil, fmt.Errorf("%w: %q is not a full-length %s identifier", seqdb.ErrInvalidIdentifier, id, sch.Name())
	}
	out, ok, err := s.exact(ctx, sch, dataset, kind, id, res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s %s: %w", dataset, kind, id, seqdb.ErrNotFound)
	}
	return out.Records[0].Data, nil
}

// GetPartial always runs a prefix search, bounded by the configured maximum.
func (s *Service) GetPartial(ctx context.Context, dataset string, kind seqdb.Kind, id string) (Result, error) {
	sch, res, err := s.resolve(dataset, kind, id)
	if err != nil {
		return Result{}, err
	}
	if res.Full {
		res.Prefix = res.SequenceID
	}
	return s.prefix(ctx, sch, dataset, kind, id, res)
}

// GetAll looks id up in the protein and then in the transcript index of the
// dataset. It fails with ErrNotFound only when both miss.
func (s *Service) GetAll(ctx context.Context, dataset, id string) ([]Result, error) {
	var out []Result
	for _, kind := range []seqdb.Kind{seqdb.Protein, seqdb.RNA} {
		res, err := s.Get(ctx, dataset, kind, id)
		if seqdb.Classify(err) == seqdb.CodeNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s %s: %w", dataset, id, seqdb.ErrNotFound)
	}
	return out, nil
}

var sampleRe = regexp.MustCompile(`^[A-Z]{4}$`)

// SampleSequences streams every record of sample to w: the whole file for
// per-sample datasets, the sample's blocks for shared files.
func (s *Service) SampleSequences(ctx context.Context, dataset string, kind seqdb.Kind, sample string, w io.Writer) (int64, error) {
	sch, err := s.schemes.Lookup(dataset)
	if err != nil {
		return 0, err
	}
	if !sampleRe.MatchString(sample) {
		return 0, fmt.Errorf("%w: sample codes are four upper case letters, got %q", seqdb.ErrInvalidIdentifier, sample)
	}

	var total int64
	if sch.Layout() == seqdb.PerSample {
		files, err := s.index.Files(ctx, dataset, kind, sample)
		if err != nil {
			return 0, err
		}
		if len(files) == 0 {
			return 0, fmt.Errorf("%s %s of %s: %w", dataset, kind, sample, seqdb.ErrNotFound)
		}
		for _, f := range files {
			n, err := s.reader.CopyFile(ctx, w, f.ID)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil
	}

	blocks, err := s.index.Blocks(ctx, dataset, kind, sample)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, fmt.Errorf("%s %s of %s: %w", dataset, kind, sample, seqdb.ErrNotFound)
	}
	for _, b := range blocks {
		n, err := s.reader.CopyRange(ctx, w, b.FileID, b.Start, b.End)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Export writes the index entries of sample to w as bulk-load rows, ordered
// by sequence id, and returns the number of rows written.
func (s *Service) Export(ctx context.Context, dataset string, kind seqdb.Kind, sample string, w *bulkload.Writer) (int64, error) {
	if _, err := s.schemes.Lookup(dataset); err != nil {
		return 0, err
	}
	if !sampleRe.MatchString(sample) {
		return 0, fmt.Errorf("%w: sample codes are four upper case letters, got %q", seqdb.ErrInvalidIdentifier, sample)
	}

	entries, err := s.index.GetByPrefix(ctx, seqdb.PrefixQuery{Dataset: dataset, Kind: kind, Sample: sample}, 0)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%s %s of %s: %w", dataset, kind, sample, seqdb.ErrNotFound)
	}

	before := w.Rows()
	if err := w.WriteAll(entries); err != nil {
		return w.Rows() - before, err
	}
	s.logger.Debug("exported entries", "dataset", dataset, "kind", kind, "sample", sample, "rows", len(entries))
	return w.Rows() - before, nil
}

// Summary is the number of indexed records of a sample, per kind.
type Summary struct {
	Dataset string
	Sample  string
	Counts  map[seqdb.Kind]int
}

func (s *Service) Summary(ctx context.Context, dataset, sample string) (Summary, error) {
	if _, err := s.schemes.Lookup(dataset); err != nil {
		return Summary{}, err
	}
	if !sampleRe.MatchString(sample) {
		return Summary{}, fmt.Errorf("%w: sample codes are four upper case letters, got %q", seqdb.ErrInvalidIdentifier, sample)
	}

	sum := Summary{Dataset: dataset, Sample: sample, Counts: make(map[seqdb.Kind]int)}
	for _, kind := range []seqdb.Kind{seqdb.Protein, seqdb.RNA, seqdb.DNA} {
		n, err := s.index.Count(ctx, dataset, kind, sample)
		if err != nil {
			return Summary{}, err
		}
		if n > 0 {
			sum.Counts[kind] = n
		}
	}
	return sum, nil
}

// Generation returns the generation of dataset. Callers holding cached
// results compare it to notice a rebuild.
func (s *Service) Generation(ctx context.Context, dataset string) (uint64, error) {
	if _, err := s.schemes.Lookup(dataset); err != nil {
		return 0, err
	}
	return s.index.Generation(ctx, dataset)
}

// Dataset describes a configured dataset label.
type Dataset struct {
	Label  string
	Scheme string
	Layout seqdb.Layout
}

func (s *Service) Datasets() []Dataset {
	var out []Dataset
	for _, label := range s.schemes.Labels() {
		sch, err := s.schemes.Lookup(label)
		if err != nil {
			continue
		}
		out = append(out, Dataset{Label: label, Scheme: sch.Name(), Layout: sch.Layout()})
	}
	return out
}

func (s *Service) resolve(dataset string, kind seqdb.Kind, id string) (scheme.Scheme, scheme.Resolved, error) {
	sch, err := s.schemes.Lookup(dataset)
	if err != nil {
		return nil, scheme.Resolved{}, err
	}
	res, err := sch.Resolve(id, kind)
	if err != nil {
		return nil, scheme.Resolved{}, err
	}
	return sch, res, nil
}

func (s *Service) exact(ctx context.Context, sch scheme.Scheme, dataset string, kind seqdb.Kind, id string, res scheme.Resolved) (Result, bool, error) {
	key := seqdb.Key{Dataset: dataset, Kind: kind, Sample: res.Sample, SequenceID: res.SequenceID}
	loc, ok, err := s.index.Get(ctx, key)
	if err != nil || !ok {
		return Result{}, false, err
	}
	data, err := s.reader.Read(ctx, loc)
	if err != nil {
		return Result{}, false, fmt.Errorf("read %s: %w", id, err)
	}
	return Result{
		Dataset: dataset,
		Kind:    kind,
		Query:   id,
		Exact:   true,
		Records: []Record{{
			ExternalID: sch.External(res.Sample, res.SequenceID),
			Sample:     res.Sample,
			SequenceID: res.SequenceID,
			Kind:       kind,
			Location:   loc,
			Data:       data,
		}},
	}, true, nil
}

func (s *Service) prefix(ctx context.Context, sch scheme.Scheme, dataset string, kind seqdb.Kind, id string, res scheme.Resolved) (Result, error) {
	q := seqdb.PrefixQuery{Dataset: dataset, Kind: kind, Sample: res.Sample, Prefix: res.Prefix}
	entries, err := s.index.GetByPrefix(ctx, q, s.maxResults+1)
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{}, fmt.Errorf("%s %s %s: %w", dataset, kind, id, seqdb.ErrNotFound)
	}

	out := Result{Dataset: dataset, Kind: kind, Query: id}
	if len(entries) > s.maxResults {
		entries = entries[:s.maxResults]
		out.Truncated = true
		s.logger.Warn("prefix search truncated", "dataset", dataset, "id", id, "max", s.maxResults)
	}

	locs := make([]seqdb.Location, len(entries))
	for i, e := range entries {
		locs[i] = e.Location
	}
	data, err := s.reader.ReadMany(ctx, locs)
	if err != nil {
		return Result{}, fmt.Errorf("read matches of %s: %w", id, err)
	}

	out.Records = make([]Record, len(entries))
	for i, e := range entries {
		out.Records[i] = Record{
			ExternalID: sch.External(e.Key.Sample, e.Key.SequenceID),
			Sample:     e.Key.Sample,
			SequenceID: e.Key.SequenceID,
			Kind:       kind,
			Location:   e.Location,
			Data:       data[i],
		}
	}
	return out, nil
}
