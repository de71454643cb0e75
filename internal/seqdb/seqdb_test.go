package seqdb_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    seqdb.Kind
		wantErr bool
	}{
		{"protein", seqdb.Protein, false},
		{"AA", seqdb.Protein, false},
		{"transcript", seqdb.RNA, false},
		{"rna", seqdb.RNA, false},
		{" dna ", seqdb.DNA, false},
		{"peptide", seqdb.Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := seqdb.ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want seqdb.Code
	}{
		{"nil", nil, seqdb.CodeUnknown},
		{"invalid", fmt.Errorf("resolve: %w", seqdb.ErrInvalidIdentifier), seqdb.CodeInvalid},
		{"not found", seqdb.ErrNotFound, seqdb.CodeNotFound},
		{"short read", &seqdb.ShortReadError{Path: "x", Want: 4, Got: 2}, seqdb.CodeIO},
		{"path error", &os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, seqdb.CodeIO},
		{"contiguity", &seqdb.ContiguityError{Sample: "ABCD"}, seqdb.CodeContiguity},
		{"malformed", &seqdb.MalformedError{Reason: "empty identifier"}, seqdb.CodeMalformed},
		{"config", fmt.Errorf("dataset k99: %w", seqdb.ErrConfiguration), seqdb.CodeConfiguration},
		{"cancel", context.Canceled, seqdb.CodeCancel},
		{"other", errors.New("boom"), seqdb.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seqdb.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSampleBlockLocation(t *testing.T) {
	b := seqdb.SampleBlock{FileID: 3, Start: 100, End: 250}
	loc := b.Location()
	if loc.FileID != 3 || loc.Start != 100 || loc.Length != 150 || loc.End() != 250 {
		t.Errorf("unexpected location %+v", loc)
	}
}
