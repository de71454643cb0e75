// Package seqdb holds the types shared by every part of the sequence index:
// keys, locations, file records, sample blocks, the storage contract and the
// error taxonomy.
package seqdb

import (
	"fmt"
	"strings"
)

// Kind is the type of sequence held by a FASTA file. A file holds exactly one
// kind.
type Kind uint8

const (
	Protein Kind = iota
	RNA
	DNA
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Protein:
		return "protein"
	case RNA:
		return "rna"
	case DNA:
		return "dna"
	default:
		return "unknown"
	}
}

// ParseKind accepts the names printed by Kind.String plus the aliases used by
// the web endpoints ("aa", "transcript").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "protein", "aa", "prot":
		return Protein, nil
	case "rna", "transcript":
		return RNA, nil
	case "dna":
		return DNA, nil
	case "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("%w: unknown sequence kind %q", ErrInvalidIdentifier, s)
}

// Layout describes how samples are spread over the files of a dataset.
type Layout uint8

const (
	// PerSample datasets hold one file per sample and kind.
	PerSample Layout = iota
	// MultiSample datasets concatenate many samples into one shared file.
	MultiSample
)

func (l Layout) String() string {
	if l == MultiSample {
		return "multi-sample"
	}
	return "per-sample"
}

// Key addresses one sequence record.
//
// SequenceID is the header token exactly as it appears in the FASTA file.
// Kind is part of the key because the protein and transcript files of a
// sample may reuse the same identifiers.
type Key struct {
	Dataset    string
	Kind       Kind
	Sample     string
	SequenceID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Dataset, k.Kind, k.Sample, k.SequenceID)
}

// Location is where the bytes of a record live.
type Location struct {
	FileID uint32
	Start  int64 // byte offset of the header line
	Length int64 // header line plus payload lines
}

// End returns the exclusive end offset.
func (l Location) End() int64 { return l.Start + l.Length }

// Entry pairs a key with its location.
type Entry struct {
	Key      Key
	Location Location
}

// FileRecord describes one physical FASTA file registered in the index.
type FileRecord struct {
	ID      uint32
	Path    string
	Dataset string
	Sample  string // empty for multi-sample files
	Kind    Kind
}

// SampleBlock is the contiguous byte range that one sample occupies inside a
// multi-sample file.
type SampleBlock struct {
	Dataset string
	Kind    Kind
	Sample  string
	FileID  uint32
	Count   int
	Start   int64
	End     int64 // exclusive
}

// Location returns the block as a single readable range.
func (b SampleBlock) Location() Location {
	return Location{FileID: b.FileID, Start: b.Start, Length: b.End - b.Start}
}

// PrefixQuery selects the identifiers of one dataset/kind/sample bucket that
// start with Prefix.
type PrefixQuery struct {
	Dataset string
	Kind    Kind
	Sample  string
	Prefix  string
}
