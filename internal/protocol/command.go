package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxArgSize bounds a single command argument. Identifiers and labels are
// short; anything larger is a broken or hostile client.
const MaxArgSize = 64 * 1024

var ErrCommandTooLarge = errors.New("command too large")

// Command represents a decoded client command received by the seqcask
// server.
//
// Cmd is the command name (e.g. "GET", "PARTIAL"); Args are its positional
// arguments, typically a dataset label, a sequence kind and an identifier.
type Command struct {
	Cmd  string
	Args []string
}

// Arg returns argument i, or "" when it is absent.
func (c *Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// EncodeCommand serializes a client command into its wire format.
//
// The command is encoded as:
//
//	<cmd_len:uint8><argc:uint8>{<arg_len:uint32>}*<cmd>{<arg>}*
//
// All integer fields are big-endian. The command name is limited to 255
// bytes, the argument count to 255 and every argument to MaxArgSize bytes.
func EncodeCommand(cmd string, args ...string) ([]byte, error) {
	if len(cmd) > 255 || len(args) > 255 {
		return nil, fmt.Errorf("%w: %d byte name, %d arguments", ErrCommandTooLarge, len(cmd), len(args))
	}

	buf := &bytes.Buffer{}
	buf.WriteByte(uint8(len(cmd)))
	buf.WriteByte(uint8(len(args)))

	for _, a := range args {
		if len(a) > MaxArgSize {
			return nil, fmt.Errorf("%w: %d byte argument", ErrCommandTooLarge, len(a))
		}
		if err := binary.Write(buf, binary.BigEndian, uint32(len(a))); err != nil {
			return nil, err
		}
	}

	buf.WriteString(cmd)
	for _, a := range args {
		buf.WriteString(a)
	}
	return buf.Bytes(), nil
}

// DecodeCommand reads one command from r.
//
// DecodeCommand blocks until the full command has been read or an error
// occurs. A connection closed before the first byte yields io.EOF; a
// connection closed mid-command yields io.ErrUnexpectedEOF.
func DecodeCommand(r io.Reader) (*Command, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	cmdLen, argc := int(hdr[0]), int(hdr[1])

	lens := make([]uint32, argc)
	if argc > 0 {
		if err := binary.Read(r, binary.BigEndian, lens); err != nil {
			return nil, unexpected(err)
		}
	}
	for _, n := range lens {
		if n > MaxArgSize {
			return nil, fmt.Errorf("%w: %d byte argument", ErrCommandTooLarge, n)
		}
	}

	cmdB := make([]byte, cmdLen)
	if _, err := io.ReadFull(r, cmdB); err != nil {
		return nil, unexpected(err)
	}

	cmd := &Command{Cmd: string(cmdB), Args: make([]string, argc)}
	for i, n := range lens {
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, unexpected(err)
		}
		cmd.Args[i] = string(b)
	}
	return cmd, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
