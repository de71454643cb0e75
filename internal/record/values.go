package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

const keySep = "\x00"

// EncodeKey joins the key fields with NUL bytes, which never appear in a
// FASTA header token.
func EncodeKey(k seqdb.Key) []byte {
	return []byte(strings.Join([]string{k.Dataset, string(rune('0' + k.Kind)), k.Sample, k.SequenceID}, keySep))
}

func DecodeKey(b []byte) (seqdb.Key, error) {
	parts := strings.SplitN(string(b), keySep, 4)
	if len(parts) != 4 || len(parts[1]) != 1 {
		return seqdb.Key{}, fmt.Errorf("%w: bad key %q", ErrCorrupt, b)
	}
	return seqdb.Key{
		Dataset:    parts[0],
		Kind:       seqdb.Kind(parts[1][0] - '0'),
		Sample:     parts[2],
		SequenceID: parts[3],
	}, nil
}

// FileID (4) + Start (8) + Length (8)
const locationSize = 20

func EncodeLocation(loc seqdb.Location) []byte {
	b := make([]byte, locationSize)
	binary.LittleEndian.PutUint32(b[0:], loc.FileID)
	binary.LittleEndian.PutUint64(b[4:], uint64(loc.Start))
	binary.LittleEndian.PutUint64(b[12:], uint64(loc.Length))
	return b
}

func DecodeLocation(b []byte) (seqdb.Location, error) {
	if len(b) != locationSize {
		return seqdb.Location{}, fmt.Errorf("%w: location of %d bytes", ErrCorrupt, len(b))
	}
	return seqdb.Location{
		FileID: binary.LittleEndian.Uint32(b[0:]),
		Start:  int64(binary.LittleEndian.Uint64(b[4:])),
		Length: int64(binary.LittleEndian.Uint64(b[12:])),
	}, nil
}

func EncodeFileRecord(f seqdb.FileRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, f.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, f.Kind); err != nil {
		return nil, err
	}
	for _, s := range []string{f.Dataset, f.Sample, f.Path} {
		if err := writeString(buf, s); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func DecodeFileRecord(b []byte) (seqdb.FileRecord, error) {
	var f seqdb.FileRecord
	buf := bytes.NewReader(b)
	if err := binary.Read(buf, binary.LittleEndian, &f.ID); err != nil {
		return f, corrupt(err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &f.Kind); err != nil {
		return f, corrupt(err)
	}
	for _, dst := range []*string{&f.Dataset, &f.Sample, &f.Path} {
		s, err := readString(buf)
		if err != nil {
			return f, err
		}
		*dst = s
	}
	return f, nil
}

func EncodeSampleBlock(sb seqdb.SampleBlock) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := writeString(buf, sb.Dataset); err != nil {
		return nil, err
	}
	if err := writeString(buf, sb.Sample); err != nil {
		return nil, err
	}
	fields := []any{sb.Kind, sb.FileID, uint32(sb.Count), sb.Start, sb.End}
	for _, v := range fields {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func DecodeSampleBlock(b []byte) (seqdb.SampleBlock, error) {
	var sb seqdb.SampleBlock
	buf := bytes.NewReader(b)

	var err error
	if sb.Dataset, err = readString(buf); err != nil {
		return sb, err
	}
	if sb.Sample, err = readString(buf); err != nil {
		return sb, err
	}

	var count uint32
	for _, v := range []any{&sb.Kind, &sb.FileID, &count, &sb.Start, &sb.End} {
		if err := binary.Read(buf, binary.LittleEndian, v); err != nil {
			return sb, corrupt(err)
		}
	}
	sb.Count = int(count)
	return sb, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", corrupt(err)
	}
	if int64(n) > int64(r.Len()) {
		return "", fmt.Errorf("%w: string of %d bytes exceeds record", ErrCorrupt, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", corrupt(err)
	}
	return string(b), nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}
