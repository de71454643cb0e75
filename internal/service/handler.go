// Package service exposes the retrieval pipeline over the wire protocol.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/protocol"
	"github.com/0xRadioAc7iv/go-seqcask/internal/retrieve"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

type Handler struct {
	svc    *retrieve.Service
	logger *log.Logger
}

func New(svc *retrieve.Service, logger *log.Logger) *Handler {
	return &Handler{svc: svc, logger: logging.OrDiscard(logger).With("component", "service")}
}

// ServeConn answers commands on conn until the client disconnects or ctx is
// done.
func (h *Handler) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	h.logger.Debug("client connected", "remote", remote)

	for {
		command, err := protocol.DecodeCommand(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				h.logger.Warn("dropping client", "remote", remote, "err", err)
			} else {
				h.logger.Debug("client disconnected", "remote", remote)
			}
			return
		}

		body, err := h.Execute(ctx, command)
		if err != nil {
			status := protocol.StatusOf(err)
			if status == protocol.StatusInternal || status == protocol.StatusIOFailure {
				h.logger.Error("command failed", "cmd", command.Cmd, "args", command.Args, "err", err, "code", seqdb.Classify(err))
			} else {
				h.logger.Debug("command rejected", "cmd", command.Cmd, "status", status, "err", err)
			}
			h.replyError(conn, err)
			continue
		}
		h.reply(conn, body)
	}
}

// Execute runs one command and returns the response body.
func (h *Handler) Execute(ctx context.Context, command *protocol.Command) ([]byte, error) {
	cmd := strings.ToUpper(command.Cmd)

	switch cmd {
	case "PING":
		return []byte("PONG!"), nil
	case "GET":
		return h.handleGet(ctx, command, h.svc.Get)
	case "PARTIAL":
		return h.handleGet(ctx, command, h.svc.GetPartial)
	case "ALL":
		return h.handleAll(ctx, command)
	case "SAMPLE":
		return h.handleSample(ctx, command)
	case "SUMMARY":
		return h.handleSummary(ctx, command)
	case "GENERATION":
		return h.handleGeneration(ctx, command)
	case "DATASETS":
		return h.handleDatasets()
	case "HELP":
		return []byte(strings.TrimSpace(helpText)), nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", protocol.ErrBadCommand, command.Cmd)
}

func arity(command *protocol.Command, n int, usage string) error {
	if len(command.Args) != n {
		return fmt.Errorf("%w: usage: %s", protocol.ErrBadCommand, usage)
	}
	return nil
}

type lookup func(ctx context.Context, dataset string, kind seqdb.Kind, id string) (retrieve.Result, error)

func (h *Handler) handleGet(ctx context.Context, command *protocol.Command, fn lookup) ([]byte, error) {
	if err := arity(command, 3, strings.ToUpper(command.Cmd)+" <dataset> <kind> <id>"); err != nil {
		return nil, err
	}
	kind, err := seqdb.ParseKind(command.Arg(1))
	if err != nil {
		return nil, err
	}
	res, err := fn(ctx, command.Arg(0), kind, command.Arg(2))
	if err != nil {
		return nil, err
	}
	return res.Bytes(), nil
}

func (h *Handler) handleAll(ctx context.Context, command *protocol.Command) ([]byte, error) {
	if err := arity(command, 2, "ALL <dataset> <id>"); err != nil {
		return nil, err
	}
	results, err := h.svc.GetAll(ctx, command.Arg(0), command.Arg(1))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, r := range results {
		buf.Write(r.Bytes())
	}
	return buf.Bytes(), nil
}

func (h *Handler) handleSample(ctx context.Context, command *protocol.Command) ([]byte, error) {
	if err := arity(command, 3, "SAMPLE <dataset> <kind> <sample>"); err != nil {
		return nil, err
	}
	kind, err := seqdb.ParseKind(command.Arg(1))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := h.svc.SampleSequences(ctx, command.Arg(0), kind, command.Arg(2), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Handler) handleSummary(ctx context.Context, command *protocol.Command) ([]byte, error) {
	if err := arity(command, 2, "SUMMARY <dataset> <sample>"); err != nil {
		return nil, err
	}
	sum, err := h.svc.Summary(ctx, command.Arg(0), command.Arg(1))
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, kind := range []seqdb.Kind{seqdb.Protein, seqdb.RNA, seqdb.DNA} {
		if n, ok := sum.Counts[kind]; ok {
			fmt.Fprintf(&b, "%s\t%d\n", kind, n)
		}
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("%s %s: %w", sum.Dataset, sum.Sample, seqdb.ErrNotFound)
	}
	return []byte(b.String()), nil
}

func (h *Handler) handleGeneration(ctx context.Context, command *protocol.Command) ([]byte, error) {
	if err := arity(command, 1, "GENERATION <dataset>"); err != nil {
		return nil, err
	}
	gen, err := h.svc.Generation(ctx, command.Arg(0))
	if err != nil {
		return nil, err
	}
	return []byte(strconv.FormatUint(gen, 10)), nil
}

func (h *Handler) handleDatasets() ([]byte, error) {
	var b strings.Builder
	for _, d := range h.svc.Datasets() {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", d.Label, d.Scheme, d.Layout)
	}
	return []byte(b.String()), nil
}

func (h *Handler) reply(conn net.Conn, body []byte) {
	encoded, err := protocol.EncodeResponse(protocol.StatusOK, body)
	if err != nil {
		h.replyError(conn, err)
		return
	}
	h.write(conn, encoded)
}

func (h *Handler) replyError(conn net.Conn, cause error) {
	encoded, err := protocol.EncodeError(cause)
	if err != nil {
		h.logger.Error("encoding response", "err", err)
		return
	}
	h.write(conn, encoded)
}

func (h *Handler) write(conn net.Conn, b []byte) {
	if _, err := conn.Write(b); err != nil {
		h.logger.Debug("client disconnected", "remote", conn.RemoteAddr().String(), "err", err)
	}
}

const helpText = `
Available Commands:

PING
  Check if the server is alive.
  Response: PONG!

GET <dataset> <kind> <id>
  Retrieve a record by identifier. A truncated identifier, or a full one
  without exact match, returns every record starting with it.
  Response: FASTA records

PARTIAL <dataset> <kind> <id>
  Prefix search only, bounded by the server's result limit.
  Response: FASTA records

ALL <dataset> <id>
  Protein records followed by transcript records for the identifier.
  Response: FASTA records

SAMPLE <dataset> <kind> <sample>
  Every record of a sample (proteome or transcriptome).
  Response: FASTA records

SUMMARY <dataset> <sample>
  Number of indexed records per kind.
  Response: kind<TAB>count lines

GENERATION <dataset>
  Current index generation; it changes on every rebuild.
  Response: integer

DATASETS
  Configured dataset labels.
  Response: label<TAB>scheme<TAB>layout lines

Kinds: protein (aa), rna (transcript), dna.

HELP (cli only)
  Show this help message.

EXIT (cli only)
  Close the client connection.
`
