package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
)

// Handler serves one client connection. It must return once ctx is done or
// the connection is closed.
type Handler func(ctx context.Context, conn net.Conn)

// MaxPortAttempts bounds the search for a free port.
const MaxPortAttempts = 100

// Listen binds host:port. When the port is taken the next one is tried, up
// to MaxPortAttempts times. Port 0 lets the kernel choose.
func Listen(host string, port int, logger *log.Logger) (net.Listener, error) {
	logger = logging.OrDiscard(logger)

	for attempt := 0; ; attempt++ {
		addr := net.JoinHostPort(host, fmt.Sprint(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) || port == 0 || attempt+1 >= MaxPortAttempts {
			return nil, err
		}
		logger.Warn("port in use, trying the next one", "port", port)
		port++
	}
}

// Serve accepts connections on ln until ctx is cancelled. Open connections
// are closed on shutdown and Serve waits for their handlers to return.
func Serve(ctx context.Context, ln net.Listener, handler Handler, logger *log.Logger) error {
	logger = logging.OrDiscard(logger).With("component", "server")

	var (
		mu    sync.Mutex
		conns = make(map[net.Conn]struct{})
		wg    sync.WaitGroup
	)

	// When ctx is cancelled, close listener and connections
	go func() {
		<-ctx.Done()
		ln.Close()
		mu.Lock()
		for c := range conns {
			c.Close()
		}
		mu.Unlock()
	}()

	logger.Info("listening", "addr", ln.Addr().String())

	// Accept Loop
	for {
		conn, err := ln.Accept()
		if err != nil {
			// When ln.Close() is called, Accept() returns an error.
			// This is how we break out of the loop cleanly.
			select {
			case <-ctx.Done():
				wg.Wait()
				logger.Info("server stopped")
				return nil // graceful shutdown
			default:
				if errors.Is(err, net.ErrClosed) {
					wg.Wait()
					return err
				}
				logger.Warn("error accepting connection", "err", err)
				continue
			}
		}

		mu.Lock()
		if ctx.Err() != nil {
			mu.Unlock()
			conn.Close()
			continue
		}
		conns[conn] = struct{}{}
		wg.Add(1)
		mu.Unlock()

		go func() {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(conns, conn)
				mu.Unlock()
			}()
			handler(ctx, conn)
		}()
	}
}

// Start listens on host:port and serves until ctx is cancelled.
func Start(ctx context.Context, host string, port int, handler Handler, logger *log.Logger) error {
	ln, err := Listen(host, port, logger)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler, logger)
}
