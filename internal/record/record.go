// Package record is the on-disk framing of the index log.
//
// Every change to the index is appended as one DiskRecord. Records of one
// ingested file share a transaction id (the file id) and only take effect
// once a Commit record for that id has been written.
package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Kind tells how a record is replayed.
type Kind uint8

const (
	KindFile     Kind = iota + 1 // opens a transaction, value is a FileRecord
	KindEntry                    // key is a sequence key, value a Location
	KindBlock                    // value is a SampleBlock
	KindCommit                   // makes the transaction visible
	KindAbort                    // discards the transaction
	KindTruncate                 // key is a dataset label
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindEntry:
		return "entry"
	case KindBlock:
		return "block"
	case KindCommit:
		return "commit"
	case KindAbort:
		return "abort"
	case KindTruncate:
		return "truncate"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type DiskRecord struct {
	CRC       uint32 // Checksum of everything after the CRC field
	Timestamp int64  // Unix Timestamp in Nanoseconds
	Kind      Kind
	Txn       uint32 // File id the record belongs to
	KeySize   uint32 // Length of Key in Bytes
	ValueSize uint32 // Length of Value in Bytes
	Key       []byte
	Value     []byte
}

// CRC (4) + Timestamp (8) + Kind (1) + Txn (4) + KeySize (4) + ValueSize (4)
const DiskRecordHeaderSizeBytes = 25

// Upper bound for key and value sizes; anything larger is a torn header.
const maxFieldSize = 64 << 20

var (
	ErrChecksum = errors.New("record checksum mismatch")
	ErrCorrupt  = errors.New("corrupt record header")
)

func CreateRecord(kind Kind, txn uint32, key, value []byte) DiskRecord {
	r := DiskRecord{
		Timestamp: time.Now().UnixNano(),
		Kind:      kind,
		Txn:       txn,
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Key:       key,
		Value:     value,
	}
	r.CRC = CalculateCRC(r.headerTail(), key, value)
	return r
}

// Size returns the encoded size of the record.
func (r *DiskRecord) Size() int64 {
	return DiskRecordHeaderSizeBytes + int64(r.KeySize) + int64(r.ValueSize)
}

// headerTail is the checksummed part of the header.
func (r *DiskRecord) headerTail() []byte {
	b := make([]byte, DiskRecordHeaderSizeBytes-4)
	binary.LittleEndian.PutUint64(b[0:], uint64(r.Timestamp))
	b[8] = byte(r.Kind)
	binary.LittleEndian.PutUint32(b[9:], r.Txn)
	binary.LittleEndian.PutUint32(b[13:], r.KeySize)
	binary.LittleEndian.PutUint32(b[17:], r.ValueSize)
	return b
}

// Valid reports whether the stored checksum matches the record contents.
func (r *DiskRecord) Valid() bool {
	return ValidateCRC(r.CRC, r.headerTail(), r.Key, r.Value)
}

func EncodeRecordToBytes(record *DiskRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(int(record.Size()))

	if err := binary.Write(buf, binary.LittleEndian, record.CRC); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, record.Timestamp); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, record.Kind); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, record.Txn); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, record.KeySize); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, record.ValueSize); err != nil {
		return nil, err
	}
	if _, err := buf.Write(record.Key); err != nil {
		return nil, err
	}
	if _, err := buf.Write(record.Value); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func DecodeRecordFromBytes(data []byte) (*DiskRecord, error) {
	r, err := ReadRecord(bytes.NewReader(data))
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return r, err
}

// ReadRecord reads the next record from r. It returns io.EOF only when r is
// exhausted exactly at a record boundary; a partial record yields
// io.ErrUnexpectedEOF. The checksum is verified.
func ReadRecord(r io.Reader) (*DiskRecord, error) {
	header := make([]byte, DiskRecordHeaderSizeBytes)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	var rec DiskRecord
	buf := bytes.NewReader(header)
	if err := binary.Read(buf, binary.LittleEndian, &rec.CRC); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.LittleEndian, &rec.Timestamp); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.LittleEndian, &rec.Kind); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.LittleEndian, &rec.Txn); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.LittleEndian, &rec.KeySize); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.LittleEndian, &rec.ValueSize); err != nil {
		return nil, err
	}

	if rec.Kind < KindFile || rec.Kind > KindTruncate || rec.KeySize > maxFieldSize || rec.ValueSize > maxFieldSize {
		return nil, ErrCorrupt
	}

	rec.Key = make([]byte, rec.KeySize)
	if _, err := io.ReadFull(r, rec.Key); err != nil {
		return nil, unexpected(err)
	}
	rec.Value = make([]byte, rec.ValueSize)
	if _, err := io.ReadFull(r, rec.Value); err != nil {
		return nil, unexpected(err)
	}

	if !rec.Valid() {
		return nil, ErrChecksum
	}
	return &rec, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
