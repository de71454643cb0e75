package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xRadioAc7iv/go-seqcask/internal/retrieve"
	"github.com/0xRadioAc7iv/go-seqcask/internal/server"
	"github.com/0xRadioAc7iv/go-seqcask/internal/service"
)

func runServe(args []string) error {
	e, _, err := setup("serve", args, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	// Ctrl+C or kill stops the listener and drains open connections.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := retrieve.New(store, e.schemes,
		retrieve.WithMaxResults(e.cfg.MaxResults),
		retrieve.WithLogger(e.logger),
	)
	h := service.New(svc, e.logger)

	e.logger.Info("press Ctrl+C to exit", "datasets", len(svc.Datasets()), "backend", e.cfg.Backend)
	return server.Start(ctx, e.cfg.Host, e.cfg.Port, h.ServeConn, e.logger)
}
