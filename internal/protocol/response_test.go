package protocol_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/0xRadioAc7iv/go-seqcask/internal/protocol"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

func TestEncodeDecodeResponse(t *testing.T) {
	tests := []struct {
		name   string
		status protocol.Status
		body   string
	}{
		{"record", protocol.StatusOK, ">S1 desc\nAAAA\nCCCC\n"},
		{"empty body", protocol.StatusOK, ""},
		{"not found", protocol.StatusNotFound, "k25 protein ABCD_1: sequence not found"},
		{"multiline body", protocol.StatusOK, ">A\nM\n>B\nQ\n"},
		{"crlf record", protocol.StatusOK, ">S3 last\r\nWWW"},
		{"large body", protocol.StatusOK, string(make([]byte, 2048))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			payload, err := protocol.EncodeResponse(tt.status, []byte(tt.body))
			if err != nil {
				t.Fatalf("EncodeResponse failed: %v", err)
			}

			go func() {
				_, _ = client.Write(payload)
			}()

			resp, err := protocol.DecodeResponse(server)
			if err != nil {
				t.Fatalf("DecodeResponse failed: %v", err)
			}

			if resp.Status != tt.status || string(resp.Body) != tt.body {
				t.Errorf("Response mismatch: got %v %q, want %v %q", resp.Status, resp.Body, tt.status, tt.body)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want protocol.Status
	}{
		{nil, protocol.StatusOK},
		{fmt.Errorf("x: %w", seqdb.ErrNotFound), protocol.StatusNotFound},
		{fmt.Errorf("x: %w", seqdb.ErrInvalidIdentifier), protocol.StatusInvalidIdentifier},
		{&seqdb.ShortReadError{Want: 4}, protocol.StatusIOFailure},
		{fmt.Errorf("%w: open", seqdb.ErrIO), protocol.StatusIOFailure},
		{fmt.Errorf("x: %w", seqdb.ErrConfiguration), protocol.StatusConfigurationError},
		{fmt.Errorf("x: %w", protocol.ErrBadCommand), protocol.StatusBadCommand},
		{context.DeadlineExceeded, protocol.StatusInternal},
		{errors.New("boom"), protocol.StatusInternal},
	}
	for _, tt := range tests {
		if got := protocol.StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestResponseErrKeepsCategory(t *testing.T) {
	for _, want := range []error{seqdb.ErrNotFound, seqdb.ErrInvalidIdentifier, seqdb.ErrIO, seqdb.ErrConfiguration, protocol.ErrBadCommand} {
		payload, err := protocol.EncodeError(fmt.Errorf("lookup: %w", want))
		if err != nil {
			t.Fatal(err)
		}
		resp, err := protocol.DecodeResponse(bytes.NewReader(payload))
		if err != nil {
			t.Fatal(err)
		}
		if got := resp.Err(); !errors.Is(got, want) {
			t.Errorf("Err() = %v, want %v", got, want)
		}
	}

	ok := &protocol.Response{Status: protocol.StatusOK}
	if ok.Err() != nil {
		t.Errorf("Err() of ok response = %v", ok.Err())
	}
}

func TestDecodeResponse_TruncatedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeResponse(protocol.StatusOK, []byte("hello world"))
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	go func() {
		_, _ = client.Write(payload[:len(payload)/2])
		client.Close()
	}()

	if _, err := protocol.DecodeResponse(server); err == nil {
		t.Fatalf("expected error on truncated response, got nil")
	}
}

func TestDecodeResponse_BlocksUntilComplete(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeResponse(protocol.StatusOK, []byte("blocking test"))
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	done := make(chan struct{})

	go func() {
		_, _ = protocol.DecodeResponse(server)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("DecodeResponse returned early")
	case <-time.After(50 * time.Millisecond):
	}

	_, _ = client.Write(payload)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("DecodeResponse did not return after full payload")
	}
}
