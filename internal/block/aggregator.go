// Package block folds the ordered records of a multi-sample FASTA file into
// one contiguous byte range per sample.
package block

import (
	"fmt"

	"github.com/0xRadioAc7iv/go-seqcask/internal/fasta"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Aggregator builds the sample blocks of a single file. Records must be added
// in file order. An Aggregator is not safe for concurrent use.
//
// Only one block is open at a time. When the sample changes the open block is
// closed for good; seeing that sample again later in the file is a
// contiguity violation.
type Aggregator struct {
	file seqdb.FileRecord

	current *seqdb.SampleBlock
	closed  map[string]struct{}
	blocks  []seqdb.SampleBlock
	last    int64
}

// NewAggregator returns an Aggregator for the records of file.
func NewAggregator(file seqdb.FileRecord) *Aggregator {
	return &Aggregator{
		file:   file,
		closed: make(map[string]struct{}),
		last:   -1,
	}
}

// Add folds one record of sample into the open block, or opens a new one.
func (a *Aggregator) Add(sample string, e fasta.Entry) error {
	if e.Start < a.last {
		return &seqdb.MalformedError{
			Offset: e.Start,
			Reason: fmt.Sprintf("record %s out of order (previous record at %d)", e.ID, a.last),
		}
	}
	a.last = e.Start

	if a.current != nil && a.current.Sample == sample {
		a.current.Count++
		a.current.Start = min(a.current.Start, e.Start)
		a.current.End = max(a.current.End, e.End())
		return nil
	}

	if _, seen := a.closed[sample]; seen {
		cerr := &seqdb.ContiguityError{FileID: a.file.ID, Sample: sample, Offset: e.Start}
		if a.current != nil {
			cerr.Previous = a.current.Sample
		}
		return cerr
	}

	a.closeCurrent()
	a.current = &seqdb.SampleBlock{
		Dataset: a.file.Dataset,
		Kind:    a.file.Kind,
		Sample:  sample,
		FileID:  a.file.ID,
		Count:   1,
		Start:   e.Start,
		End:     e.End(),
	}
	return nil
}

// Blocks closes the open block and returns every block in file order.
func (a *Aggregator) Blocks() []seqdb.SampleBlock {
	a.closeCurrent()
	return a.blocks
}

func (a *Aggregator) closeCurrent() {
	if a.current == nil {
		return
	}
	a.closed[a.current.Sample] = struct{}{}
	a.blocks = append(a.blocks, *a.current)
	a.current = nil
}
