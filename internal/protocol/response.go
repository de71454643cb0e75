package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Status tells the client how to interpret a response body. Failure
// statuses carry an error message as body.
type Status uint8

const (
	StatusOK Status = iota
	StatusNotFound
	StatusInvalidIdentifier
	StatusIOFailure
	StatusConfigurationError
	StatusBadCommand
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusInvalidIdentifier:
		return "invalid identifier"
	case StatusIOFailure:
		return "i/o failure"
	case StatusConfigurationError:
		return "configuration error"
	case StatusBadCommand:
		return "bad command"
	case StatusInternal:
		return "internal error"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ErrBadCommand is reported for unknown commands and wrong arguments.
var ErrBadCommand = errors.New("bad command")

// StatusOf maps an error onto the status sent to the client.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	if errors.Is(err, ErrBadCommand) {
		return StatusBadCommand
	}
	switch seqdb.Classify(err) {
	case seqdb.CodeNotFound:
		return StatusNotFound
	case seqdb.CodeInvalid:
		return StatusInvalidIdentifier
	case seqdb.CodeIO:
		return StatusIOFailure
	case seqdb.CodeConfiguration:
		return StatusConfigurationError
	}
	return StatusInternal
}

// Response is a decoded server response.
type Response struct {
	Status Status
	Body   []byte
}

// Err turns a failure response back into an error that matches the seqdb
// sentinels with errors.Is.
func (r *Response) Err() error {
	var base error
	switch r.Status {
	case StatusOK:
		return nil
	case StatusNotFound:
		base = seqdb.ErrNotFound
	case StatusInvalidIdentifier:
		base = seqdb.ErrInvalidIdentifier
	case StatusIOFailure:
		base = seqdb.ErrIO
	case StatusConfigurationError:
		base = seqdb.ErrConfiguration
	case StatusBadCommand:
		base = ErrBadCommand
	}
	return &RemoteError{Status: r.Status, Message: string(r.Body), base: base}
}

// RemoteError is a failure reported by the server.
type RemoteError struct {
	Status  Status
	Message string
	base    error
}

func (e *RemoteError) Error() string { return "server: " + e.Message }

func (e *RemoteError) Unwrap() error { return e.base }

// EncodeResponse serializes a response as
//
//	<status:uint8><body_len:uint32><body>
func EncodeResponse(status Status, body []byte) ([]byte, error) {
	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("response body of %d bytes exceeds the frame limit", len(body))
	}

	buf := &bytes.Buffer{}
	buf.Grow(5 + len(body))
	buf.WriteByte(byte(status))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(body))); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// EncodeError serializes err with the status StatusOf assigns it.
func EncodeError(err error) ([]byte, error) {
	return EncodeResponse(StatusOf(err), []byte(err.Error()))
}

func DecodeResponse(r io.Reader) (*Response, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[1:])

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, unexpected(err)
	}
	return &Response{Status: Status(hdr[0]), Body: body}, nil
}
