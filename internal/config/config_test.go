package config_test

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xRadioAc7iv/go-seqcask/internal/config"
	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "seqcask.json")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != config.DefaultPort || cfg.Backend != config.BackendCask {
		t.Errorf("Load() = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"backend": "sqlite",
		"port": 7000,
		"datasets": [{"label": "k39", "scheme": "oases", "root": "/1kp/k39"}]
	}`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != config.BackendSQLite || cfg.Port != 7000 || cfg.MaxResults != 1000 {
		t.Errorf("Load() = %+v", cfg)
	}
	if root, ok := cfg.DatasetRoot("k39"); !ok || root != "/1kp/k39" {
		t.Errorf("DatasetRoot() = %q, %v", root, ok)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	if labels := reg.Labels(); len(labels) != 1 || labels[0] != "k39" {
		t.Errorf("Registry labels = %v", labels)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `{"prot": 1}`)
	if _, err := config.Load(path); !errors.Is(err, seqdb.ErrConfiguration) {
		t.Errorf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `{"port": 7000, "log_level": "debug"}`))
	if err != nil {
		t.Fatal(err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse([]string{"-port", "8000", "-backend", "sqlite"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8000 || cfg.Backend != config.BackendSQLite || cfg.LogLevel != "debug" {
		t.Errorf("config after flags = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad backend", func(c *config.Config) { c.Backend = "redis" }},
		{"bad port", func(c *config.Config) { c.Port = 70000 }},
		{"datafile too small", func(c *config.Config) { c.MaxDatafileMB = 0 }},
		{"bad level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"bad scheme", func(c *config.Config) { c.Datasets = []config.Dataset{{Label: "k1", Scheme: "bwa"}} }},
		{"duplicate dataset", func(c *config.Config) {
			c.Datasets = []config.Dataset{{Label: "k1", Scheme: "direct"}, {Label: "k1", Scheme: "oases"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, seqdb.ErrConfiguration) {
				t.Errorf("Validate() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = "/var/lib/seqcask"
	if got := cfg.DatabasePath(); got != filepath.Join("/var/lib/seqcask", "seqcask.db") {
		t.Errorf("DatabasePath() = %s", got)
	}
	cfg.SQLitePath = "/tmp/x.db"
	if got := cfg.DatabasePath(); got != "/tmp/x.db" {
		t.Errorf("DatabasePath() = %s", got)
	}
}
