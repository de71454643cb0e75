package seqcask_test

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/protocol"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
	"github.com/0xRadioAc7iv/go-seqcask/seqcask"
)

func startTestServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			cmd, err := protocol.DecodeCommand(conn)
			if err != nil {
				return
			}

			status, body := protocol.StatusOK, ""

			switch strings.ToUpper(cmd.Cmd) {
			case "PING":
				body = "PONG!"
			case "GET", "PARTIAL":
				if cmd.Arg(2) == "ABCD_1" {
					status, body = protocol.StatusNotFound, "sequence not found"
				} else {
					body = ">" + cmd.Arg(2) + " " + cmd.Arg(1) + "\nMK\n"
				}
			case "ALL":
				body = ">1\nMK\n>1\nAUG\n"
			case "SAMPLE":
				body = ">1\nMK\n>2\nMV\n"
			case "SUMMARY":
				body = "protein\t2\nrna\t1\n"
			case "GENERATION":
				body = "3"
			case "DATASETS":
				body = "k25\tdirect\tper-sample\nk25s\tassembly\tmulti-sample\n"
			default:
				status, body = protocol.StatusBadCommand, "unknown command"
			}

			encoded, _ := protocol.EncodeResponse(status, []byte(body))
			_, _ = conn.Write(encoded)
		}
	}()

	return ln.Addr().String(), func() {
		_ = ln.Close()
	}
}

func TestConnect(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestClientGet(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	resp, err := client.Get("k25", seqcask.Protein, "ABCD_78577")
	if err != nil {
		t.Fatal(err)
	}

	if string(resp) != ">ABCD_78577 protein\nMK\n" {
		t.Fatalf("unexpected response: %q", resp)
	}
}

func TestClientGetNotFound(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	_, err := client.Get("k25", seqcask.Protein, "ABCD_1")
	if !errors.Is(err, seqcask.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, seqdb.ErrInvalidIdentifier) {
		t.Fatal("not found reported as invalid identifier")
	}

	var remote *seqcask.RemoteError
	if !errors.As(err, &remote) || remote.Status != protocol.StatusNotFound || remote.Message != "sequence not found" {
		t.Fatalf("remote error = %#v", remote)
	}
}

func TestClientSummary(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	sum, err := client.Summary("k39", "FANS")
	if err != nil {
		t.Fatal(err)
	}
	if sum["protein"] != 2 || sum["rna"] != 1 {
		t.Fatalf("unexpected summary: %v", sum)
	}
}

func TestClientGenerationAndDatasets(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	gen, err := client.Generation("k25")
	if err != nil || gen != 3 {
		t.Fatalf("Generation() = %d, %v", gen, err)
	}

	labels, err := client.Datasets()
	if err != nil || !slices.Equal(labels, []string{"k25", "k25s"}) {
		t.Fatalf("Datasets() = %v, %v", labels, err)
	}
}

func TestClientExecute(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	_, err := client.Execute("SET", "a", "b")
	if !errors.Is(err, seqcask.ErrBadCommand) {
		t.Fatalf("error = %v, want ErrBadCommand", err)
	}

	resp, err := client.Execute("sample", "k25", "aa", "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != ">1\nMK\n>2\nMV\n" {
		t.Fatalf("unexpected response: %q", resp)
	}
}

func TestClientConcurrentCommands(t *testing.T) {
	addr, shutdown := startTestServer(t)
	defer shutdown()

	client := mustConnect(t, addr)
	defer client.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("ABCD_%d", 100+i)
			resp, err := client.Partial("k25", seqcask.RNA, id)
			if err != nil {
				errs <- err
				return
			}
			if want := ">" + id + " rna\nMK\n"; string(resp) != want {
				errs <- fmt.Errorf("got %q, want %q", resp, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func mustConnect(t *testing.T, addr string) *seqcask.Client {
	t.Helper()

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	client, err := seqcask.Connect(
		seqcask.WithHost(host),
		seqcask.WithPort(port),
	)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	return client
}
