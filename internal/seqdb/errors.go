package seqdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrMalformedInput marks a FASTA file that cannot be indexed: a header
	// without identifier, payload before the first header, or a repeated
	// identifier.
	ErrMalformedInput = errors.New("malformed fasta input")
	// ErrContiguityViolation marks a shared file in which one sample's records
	// are split over more than one run.
	ErrContiguityViolation = errors.New("sample records are not contiguous")
	// ErrInvalidIdentifier marks an external identifier rejected by the
	// dataset's scheme before any lookup took place.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrNotFound is returned for a well-formed identifier without a match.
	ErrNotFound = errors.New("sequence not found")
	// ErrShortRead marks an index entry that points past the end of its file.
	ErrShortRead = errors.New("short read")
	// ErrIO wraps any other failure to read indexed data.
	ErrIO = errors.New("i/o failure")
	// ErrConfiguration marks an unknown dataset label or scheme.
	ErrConfiguration = errors.New("configuration error")
)

// MalformedError locates a malformed FASTA record.
type MalformedError struct {
	Offset int64
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed fasta at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedInput }

// ContiguityError reports the record at which a sample re-appeared after its
// block had been closed.
type ContiguityError struct {
	FileID   uint32
	Sample   string
	Previous string // sample of the block that was open at the time
	Offset   int64
}

func (e *ContiguityError) Error() string {
	return fmt.Sprintf("sample %s re-appears at offset %d of file %d after %s: records are not contiguous",
		e.Sample, e.Offset, e.FileID, e.Previous)
}

func (e *ContiguityError) Unwrap() error { return ErrContiguityViolation }

// ShortReadError reports a read that returned fewer bytes than indexed.
type ShortReadError struct {
	Path   string
	Offset int64
	Want   int64
	Got    int64
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read from %s at offset %d: want %d bytes, got %d", e.Path, e.Offset, e.Want, e.Got)
}

func (e *ShortReadError) Unwrap() error { return ErrShortRead }

// Code is the coarse category of an error, used for logs and for the wire
// status of the retrieval service.
type Code string

const (
	CodeUnknown       Code = "unknown"
	CodeMalformed     Code = "malformed"
	CodeContiguity    Code = "contiguity"
	CodeInvalid       Code = "invalid_identifier"
	CodeNotFound      Code = "not_found"
	CodeIO            Code = "io"
	CodeConfiguration Code = "configuration"
	CodeCancel        Code = "cancel"
)

// Classify maps err onto a Code using only sentinel errors and standard
// library error types.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, ErrInvalidIdentifier):
		return CodeInvalid
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrMalformedInput):
		return CodeMalformed
	case errors.Is(err, ErrContiguityViolation):
		return CodeContiguity
	case errors.Is(err, ErrShortRead), errors.Is(err, ErrIO):
		return CodeIO
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
