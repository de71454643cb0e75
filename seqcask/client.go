package seqcask

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/0xRadioAc7iv/go-seqcask/internal/config"
	"github.com/0xRadioAc7iv/go-seqcask/internal/protocol"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Errors returned by the server keep their category and match these with
// errors.Is.
var (
	ErrNotFound          = seqdb.ErrNotFound
	ErrInvalidIdentifier = seqdb.ErrInvalidIdentifier
	ErrIO                = seqdb.ErrIO
	ErrConfiguration     = seqdb.ErrConfiguration
	ErrBadCommand        = protocol.ErrBadCommand
)

// RemoteError is returned for every failure response; its Status carries the
// server's status code.
type RemoteError = protocol.RemoteError

// Sequence kinds accepted by the lookup methods.
const (
	Protein = "protein"
	RNA     = "rna"
	DNA     = "dna"
)

type options struct {
	host    string
	port    int
	timeout time.Duration
}

type Option func(*options)

func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

func WithPort(port int) Option {
	return func(o *options) {
		o.port = port
	}
}

// WithTimeout bounds every round trip. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Client is safe for concurrent use; round trips are serialised over its
// single connection.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

func Connect(opts ...Option) (*Client, error) {
	o := &options{host: config.DefaultHost, port: config.DefaultPort}
	for _, opt := range opts {
		opt(o)
	}

	addr := net.JoinHostPort(o.host, strconv.Itoa(o.port))
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, timeout: o.timeout}, nil
}

func (c *Client) Ping() error {
	_, err := c.Execute("PING")
	return err
}

// Get returns the record of id, or every record starting with id when it is
// truncated or has no exact match.
func (c *Client) Get(dataset, kind, id string) ([]byte, error) {
	return c.Execute("GET", dataset, kind, id)
}

func (c *Client) Partial(dataset, kind, id string) ([]byte, error) {
	return c.Execute("PARTIAL", dataset, kind, id)
}

// All returns the protein records of id followed by its transcript records.
func (c *Client) All(dataset, id string) ([]byte, error) {
	return c.Execute("ALL", dataset, id)
}

// Sample returns the proteome or transcriptome of sample.
func (c *Client) Sample(dataset, kind, sample string) ([]byte, error) {
	return c.Execute("SAMPLE", dataset, kind, sample)
}

// Summary returns the number of indexed records of sample per kind.
func (c *Client) Summary(dataset, sample string) (map[string]int, error) {
	body, err := c.Execute("SUMMARY", dataset, sample)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		kind, n, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("unexpected summary line %q", line)
		}
		count, err := strconv.Atoi(n)
		if err != nil {
			return nil, fmt.Errorf("unexpected summary line %q: %w", line, err)
		}
		out[kind] = count
	}
	return out, nil
}

func (c *Client) Generation(dataset string) (uint64, error) {
	body, err := c.Execute("GENERATION", dataset)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(string(body), 10, 64)
}

// Datasets lists the configured dataset labels.
func (c *Client) Datasets() ([]string, error) {
	body, err := c.Execute("DATASETS")
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if label, _, _ := strings.Cut(line, "\t"); label != "" {
			labels = append(labels, label)
		}
	}
	return labels, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Execute sends any command and returns the body of a successful response.
// A failure response is returned as an error.
func (c *Client) Execute(cmd string, args ...string) ([]byte, error) {
	resp, err := c.sendCommand(cmd, args...)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) sendCommand(cmd string, args ...string) (*protocol.Response, error) {
	payload, err := protocol.EncodeCommand(cmd, args...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	if _, err := c.conn.Write(payload); err != nil {
		return nil, err
	}
	return protocol.DecodeResponse(c.conn)
}
