package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/0xRadioAc7iv/go-seqcask/core"
	"github.com/0xRadioAc7iv/go-seqcask/internal/config"
	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/scheme"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
	"github.com/0xRadioAc7iv/go-seqcask/internal/sqlstore"
)

// env is what every subcommand starts from.
type env struct {
	cfg     config.Config
	logger  *log.Logger
	schemes *scheme.Registry
	closer  io.Closer
}

func (e *env) Close() error { return e.closer.Close() }

// setup loads the config file named by -config, lets the flags of fs
// override it and builds the logger. extra registers command-specific flags.
func setup(name string, args []string, extra func(fs *flag.FlagSet)) (*env, []string, error) {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return nil, nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", config.DefaultConfigFile, "JSON config file")
	cfg.BindFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	schemes, err := cfg.Registry()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return &env{cfg: cfg, logger: logger, schemes: schemes, closer: closer}, fs.Args(), nil
}

// configPath finds -config in args ahead of flag parsing, since the file
// provides the defaults of every other flag.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return config.DefaultConfigFile
}

// openStore opens the configured index backend.
func openStore(ctx context.Context, e *env) (seqdb.Store, error) {
	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	switch e.cfg.Backend {
	case config.BackendSQLite:
		opts := []sqlstore.Option{sqlstore.WithLogger(e.logger)}
		if e.cfg.CompressSpool {
			opts = append(opts, sqlstore.WithCompressedSpool())
		}
		return sqlstore.Open(ctx, e.cfg.DatabasePath(), opts...)
	default:
		sc := &core.SeqCask{
			DirectoryPath:       e.cfg.DataDir,
			MaximumDatafileSize: e.cfg.MaxDatafileMB * core.OneMegabyte,
			SyncInterval:        e.cfg.SyncInterval,
			SizeCheckInterval:   e.cfg.SizeCheckInterval,
			Logger:              e.logger,
		}
		if err := sc.Start(); err != nil {
			return nil, err
		}
		return sc, nil
	}
}

// exitCode maps an error category onto a process exit status.
func exitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	switch seqdb.Classify(err) {
	case seqdb.CodeNotFound:
		return 3
	case seqdb.CodeInvalid:
		return 4
	case seqdb.CodeConfiguration:
		return 2
	}
	return 1
}
