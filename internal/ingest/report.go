package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// State is the ingestion state of one file.
type State uint8

const (
	Pending State = iota
	Scanning
	Committing
	Committed
	Aborted
	// Empty files hold no header at all. They are reported, not indexed.
	Empty
	// Skipped files were already registered in the dataset.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Scanning:
		return "scanning"
	case Committing:
		return "committing"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	case Empty:
		return "empty"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool { return s >= Committed }

// FileSpec names one input file and the kind of sequence it holds.
type FileSpec struct {
	Path string
	Kind seqdb.Kind
}

// FileResult is the outcome of one file.
type FileResult struct {
	Spec     FileSpec
	FileID   uint32
	Sample   string
	State    State
	Entries  int
	Blocks   int
	Err      error
	Duration time.Duration
}

// Report summarises a Run.
type Report struct {
	BatchID string
	Dataset string
	Files   []FileResult
}

// Count returns the number of files that ended in state s.
func (r Report) Count(s State) int {
	n := 0
	for _, f := range r.Files {
		if f.State == s {
			n++
		}
	}
	return n
}

// Entries returns the number of committed entries.
func (r Report) Entries() int {
	n := 0
	for _, f := range r.Files {
		if f.State == Committed {
			n += f.Entries
		}
	}
	return n
}

// Err joins the errors of every aborted file.
func (r Report) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Spec.Path, f.Err))
		}
	}
	return errors.Join(errs...)
}
