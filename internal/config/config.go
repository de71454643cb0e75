// Package config loads the settings shared by the seqcask binaries.
//
// Settings come from a JSON file, then from command line flags. A missing
// file is not an error: the defaults apply.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/0xRadioAc7iv/go-seqcask/core"
	"github.com/0xRadioAc7iv/go-seqcask/internal/logging"
	"github.com/0xRadioAc7iv/go-seqcask/internal/scheme"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 6969

	DefaultConfigFile = "seqcask.json"
)

// Index backends.
const (
	BackendCask   = "cask"
	BackendSQLite = "sqlite"
)

// Dataset binds a label to an identifier scheme and, optionally, to the
// directory holding its proteomes/ and transcriptomes/.
type Dataset struct {
	Label  string `json:"label"`
	Scheme string `json:"scheme"`
	Root   string `json:"root,omitempty"`
}

type Config struct {
	DataDir       string `json:"data_dir"`
	Backend       string `json:"backend"`
	SQLitePath    string `json:"sqlite_path,omitempty"`
	CompressSpool bool   `json:"compress_spool,omitempty"`

	Host string `json:"host"`
	Port int    `json:"port"`

	MaxDatafileMB     int  `json:"max_datafile_mb"`
	SyncInterval      uint `json:"sync_interval_s"`
	SizeCheckInterval uint `json:"size_check_interval_s"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file,omitempty"`

	Workers         int  `json:"workers,omitempty"`
	CheckpointEvery int  `json:"checkpoint_every"`
	MaxResults      int  `json:"max_results"`
	Progress        bool `json:"progress"`

	Datasets []Dataset `json:"datasets,omitempty"`
}

func Default() Config {
	return Config{
		DataDir:           core.DefaultDirectoryPath,
		Backend:           BackendCask,
		Host:              DefaultHost,
		Port:              DefaultPort,
		MaxDatafileMB:     core.DefaultDataFileSizeMB,
		SyncInterval:      core.DefaultSyncInterval,
		SizeCheckInterval: core.DefaultSizeCheckInterval,
		LogLevel:          "info",
		CheckpointEvery:   10000,
		MaxResults:        1000,
		Progress:          true,
	}
}

// Load reads path over the defaults. Unknown fields are rejected so that a
// typo does not silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %w", seqdb.ErrConfiguration, path, err)
	}
	return cfg, nil
}

// BindFlags registers a flag for every scalar setting, defaulting to the
// current value, so that parsing fs overrides what Load produced.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataDir, "dir", c.DataDir, "Directory Path to be used for this instance")
	fs.StringVar(&c.Backend, "backend", c.Backend, "Index backend: cask or sqlite")
	fs.StringVar(&c.SQLitePath, "sqlite", c.SQLitePath, "SQLite database path (default <dir>/seqcask.db)")
	fs.StringVar(&c.Host, "host", c.Host, "Host to bind the TCP server to")
	fs.IntVar(&c.Port, "port", c.Port, "Port to use for the TCP Server")
	fs.IntVar(&c.MaxDatafileMB, "dfsize", c.MaxDatafileMB, "Max Datafile Size (in MB)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Also append logs to this file")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Files ingested in parallel (0 = one per CPU)")
	fs.IntVar(&c.MaxResults, "max-results", c.MaxResults, "Maximum records returned by a prefix search")
	fs.BoolVar(&c.Progress, "progress", c.Progress, "Draw a progress bar while ingesting")
}

func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	switch c.Backend {
	case BackendCask, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxDatafileMB < core.MinimumDataFileSizeMB || c.MaxDatafileMB > core.MaximumDataFileSizeMB {
		errs = append(errs, fmt.Errorf("max_datafile_mb must be between %d and %d", core.MinimumDataFileSizeMB, core.MaximumDataFileSizeMB))
	}
	if c.SyncInterval < core.MinimumSyncInterval {
		errs = append(errs, fmt.Errorf("sync_interval_s must be at least %d", core.MinimumSyncInterval))
	}
	if c.SizeCheckInterval < core.MinimumSizeCheckInterval {
		errs = append(errs, fmt.Errorf("size_check_interval_s must be at least %d", core.MinimumSizeCheckInterval))
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Workers < 0 || c.CheckpointEvery < 1 || c.MaxResults < 1 {
		errs = append(errs, errors.New("workers, checkpoint_every and max_results must be positive"))
	}

	seen := make(map[string]bool)
	for _, d := range c.Datasets {
		if d.Label == "" {
			errs = append(errs, errors.New("dataset without label"))
			continue
		}
		if seen[d.Label] {
			errs = append(errs, fmt.Errorf("dataset %s declared twice", d.Label))
		}
		seen[d.Label] = true
		if _, err := scheme.ByName(d.Scheme); err != nil {
			errs = append(errs, fmt.Errorf("dataset %s: %w", d.Label, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", seqdb.ErrConfiguration, err)
	}
	return nil
}

// Registry builds the scheme table. Without configured datasets the 1KP
// defaults apply.
func (c *Config) Registry() (*scheme.Registry, error) {
	if len(c.Datasets) == 0 {
		return scheme.DefaultRegistry(), nil
	}
	r := scheme.NewRegistry()
	for _, d := range c.Datasets {
		s, err := scheme.ByName(d.Scheme)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Label, err)
		}
		r.Register(d.Label, s)
	}
	return r, nil
}

// DatasetRoot returns the configured root of label.
func (c *Config) DatasetRoot(label string) (string, bool) {
	for _, d := range c.Datasets {
		if d.Label == label && d.Root != "" {
			return d.Root, true
		}
	}
	return "", false
}

// DatabasePath returns the SQLite file used by the sqlite backend.
func (c *Config) DatabasePath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "seqcask.db")
}

func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, File: c.LogFile}
}
