// Package fasta streams the byte layout of FASTA files.
//
// The scanner never decodes sequence payload; it only tracks where every record
// starts and how many bytes it spans, so that a record can later be re-read
// with a single seek.
package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

const defaultBufferSize = 1 << 20 // 1 MiB

// Entry is the byte range of one record: the header line and every payload
// line up to, but excluding, the next header.
type Entry struct {
	ID     string
	Start  int64
	Length int64
}

// End returns the exclusive end offset of the record.
func (e Entry) End() int64 { return e.Start + e.Length }

// Scanner yields the records of a FASTA stream in file order. It is single
// pass: to scan again, reopen the input.
//
// Offsets count the bytes actually read, so CRLF line endings and a final line
// without newline produce exact ranges. The last record always ends at the
// total number of bytes consumed.
type Scanner struct {
	r      *bufio.Reader
	offset int64

	cur    Entry
	open   bool
	entry  Entry
	header []byte

	eof  bool
	done bool
	err  error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, defaultBufferSize)}
}

// Scan advances to the next record. It returns false at end of input or on
// the first error; Err tells the two apart.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}

	for {
		if s.eof {
			s.done = true
			if s.open {
				s.open = false
				s.cur.Length = s.offset - s.cur.Start
				s.entry = s.cur
				return true
			}
			return false
		}

		lineStart := s.offset
		line, err := s.readLine()
		s.offset += line.size
		if err == io.EOF {
			s.eof = true
		} else if err != nil {
			return s.fail(err)
		}
		if line.size == 0 {
			continue
		}

		if line.header {
			id := headerID(s.header)
			if id == "" {
				return s.fail(&seqdb.MalformedError{Offset: lineStart, Reason: "header without identifier"})
			}

			prev, hadPrev := s.cur, s.open
			s.cur = Entry{ID: id, Start: lineStart}
			s.open = true
			if hadPrev {
				prev.Length = lineStart - prev.Start
				s.entry = prev
				return true
			}
			continue
		}

		if !s.open && !line.blank {
			return s.fail(&seqdb.MalformedError{Offset: lineStart, Reason: "sequence data before first header"})
		}
	}
}

// Entry returns the record produced by the last successful call to Scan.
func (s *Scanner) Entry() Entry { return s.entry }

// Err returns the first error met while scanning, if any.
func (s *Scanner) Err() error { return s.err }

// Offset returns the number of bytes consumed so far.
func (s *Scanner) Offset() int64 { return s.offset }

func (s *Scanner) fail(err error) bool {
	s.err = err
	s.done = true
	s.open = false
	return false
}

type lineInfo struct {
	size   int64
	header bool
	blank  bool
}

// readLine consumes one line including its terminator. For header lines the
// bytes up to the first whitespace are kept in s.header; payload is only
// counted.
func (s *Scanner) readLine() (lineInfo, error) {
	info := lineInfo{blank: true}
	s.header = s.header[:0]
	first := true
	idDone := false

	for {
		chunk, err := s.r.ReadSlice('\n')
		info.size += int64(len(chunk))

		if first && len(chunk) > 0 {
			info.header = chunk[0] == '>'
			first = false
		}
		if info.blank && len(bytes.TrimSpace(chunk)) > 0 {
			info.blank = false
		}
		if info.header && !idDone {
			s.header = append(s.header, chunk...)
			idDone = bytes.IndexAny(chunk, " \t") >= 0
		}

		if err == bufio.ErrBufferFull {
			continue
		}
		return info, err
	}
}

// headerID returns the header token between '>' and the first whitespace.
func headerID(line []byte) string {
	if len(line) == 0 || line[0] != '>' {
		return ""
	}
	id := bytes.TrimRight(line[1:], "\r\n")
	if i := bytes.IndexAny(id, " \t"); i >= 0 {
		id = id[:i]
	}
	return string(id)
}

// Index scans r to the end and returns every record.
func Index(r io.Reader) ([]Entry, error) {
	sc := NewScanner(r)
	var entries []Entry
	for sc.Scan() {
		entries = append(entries, sc.Entry())
	}
	return entries, sc.Err()
}
