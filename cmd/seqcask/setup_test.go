package main

import (
	"flag"
	"fmt"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/config"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, config.DefaultConfigFile},
		{[]string{"-port", "7000"}, config.DefaultConfigFile},
		{[]string{"-config", "a.json", "k25"}, "a.json"},
		{[]string{"--config=b.json"}, "b.json"},
		{[]string{"k25", "config"}, config.DefaultConfigFile},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			if got := configPath(tt.args); got != tt.want {
				t.Errorf("configPath(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{flag.ErrHelp, 0},
		{fmt.Errorf("k25: %w", seqdb.ErrNotFound), 3},
		{seqdb.ErrInvalidIdentifier, 4},
		{seqdb.ErrConfiguration, 2},
		{seqdb.ErrIO, 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestSetupAppliesFlags(t *testing.T) {
	dir := t.TempDir()
	var root string
	e, rest, err := setup("ingest", []string{"-dir", dir, "-backend", "sqlite", "-root", "/1kp", "k39"}, func(fs *flag.FlagSet) {
		fs.StringVar(&root, "root", "", "")
	})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if e.cfg.DataDir != dir || e.cfg.Backend != config.BackendSQLite || root != "/1kp" {
		t.Errorf("config = %+v, root %q", e.cfg, root)
	}
	if len(rest) != 1 || rest[0] != "k39" {
		t.Errorf("rest = %v", rest)
	}
	if _, err := e.schemes.Lookup("k39"); err != nil {
		t.Error(err)
	}
}
