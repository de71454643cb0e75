// Package scheme turns the identifiers users type into index keys.
//
// Every dataset label is bound to one Scheme. A scheme knows the identifier
// format of the dataset, how much of an identifier is needed for an exact
// lookup, and how the samples of the dataset are laid out on disk.
package scheme

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Resolved is an external identifier decomposed into index terms.
type Resolved struct {
	Sample     string
	SequenceID string // exact lookup key, valid when Full is set
	Prefix     string // prefix for partial search
	Full       bool
}

// Scheme is the identifier policy of a dataset.
type Scheme interface {
	Name() string
	Layout() seqdb.Layout

	// Validate accepts full-length and truncated identifiers alike.
	Validate(id string) error
	IsFullLength(id string) bool
	// Resolve never falls back from a full to a partial form: a full-length
	// identifier always yields Full, a truncated one never does.
	Resolve(id string, kind seqdb.Kind) (Resolved, error)

	// SampleOf extracts the sample from a header token of a shared file.
	SampleOf(sequenceID string) (string, error)
	// External is the inverse of Resolve.
	External(sample, sequenceID string) string
}

func invalid(s Scheme, id, example string) error {
	return fmt.Errorf("%w: %s dataset expects ids like %s, got %q", seqdb.ErrInvalidIdentifier, s.Name(), example, id)
}

func perSampleOnly(s Scheme) error {
	return fmt.Errorf("%w: %s scheme keeps one file per sample", seqdb.ErrConfiguration, s.Name())
}

var fileSampleRe = regexp.MustCompile(`\b([A-Z]{4})\b`)

// SampleFromPath returns the first standalone four-letter upper case token
// of the file name, e.g. ABCD for ABCD-translated-protein.fa.
func SampleFromPath(path string) (string, error) {
	m := fileSampleRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", fmt.Errorf("%w: no sample code in file name %s", seqdb.ErrInvalidIdentifier, filepath.Base(path))
	}
	return m[1], nil
}
