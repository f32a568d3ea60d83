package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/statarb/pairbt/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backtest:
  short_window: 10
  long_window: 60
  entry_z: 1.5
  exit_z: 0.25
  capital_per_leg: 25000
calendar:
  start: "2019-01-01"
  end: "2019-12-31"
pairs:
  - ticker1: KO
    ticker2: PEP
  - ticker1: XOM
    ticker2: CVX
ledger:
  type: sqlite
  db_path: /tmp/trades.db
replay:
  year_scoped: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Backtest.ShortWindow != 10 || cfg.Backtest.LongWindow != 60 {
		t.Errorf("windows = %d/%d, want 10/60", cfg.Backtest.ShortWindow, cfg.Backtest.LongWindow)
	}
	if cfg.Backtest.EntryZ != 1.5 || cfg.Backtest.ExitZ != 0.25 {
		t.Errorf("thresholds = %v/%v, want 1.5/0.25", cfg.Backtest.EntryZ, cfg.Backtest.ExitZ)
	}
	if len(cfg.Pairs) != 2 || cfg.Pairs[1].Ticker1 != "XOM" {
		t.Errorf("pairs = %+v", cfg.Pairs)
	}
	if cfg.Ledger.Type != "sqlite" || cfg.Ledger.DBPath != "/tmp/trades.db" {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if !cfg.Replay.YearScoped {
		t.Error("replay.year_scoped not set")
	}
	// untouched sections keep their defaults
	if cfg.Prices.DBPath != "data/prices.db" {
		t.Errorf("prices.db_path = %q, want default", cfg.Prices.DBPath)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PAIRBT_TEST_BUCKET", "trades-bucket")
	path := writeConfig(t, `
ledger:
  type: s3
  s3:
    bucket: ${PAIRBT_TEST_BUCKET}
    region: us-east-1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.S3.Bucket != "trades-bucket" {
		t.Errorf("bucket = %q, want expanded env value", cfg.Ledger.S3.Bucket)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate(): %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short window not below long", func(c *Config) { c.Backtest.ShortWindow = 30 }},
		{"zero long window", func(c *Config) { c.Backtest.LongWindow = 0 }},
		{"negative capital", func(c *Config) { c.Backtest.CapitalPerLeg = -1 }},
		{"unknown ledger type", func(c *Config) { c.Ledger.Type = "redis" }},
		{"s3 without bucket", func(c *Config) { c.Ledger.Type = "s3" }},
		{"degenerate pair", func(c *Config) { c.Pairs = []PairConfig{{Ticker1: "KO", Ticker2: "KO"}} }},
		{"empty ticker", func(c *Config) { c.Pairs = []PairConfig{{Ticker1: "KO"}} }},
		{"bad calendar date", func(c *Config) { c.Calendar = CalendarConfig{Start: "03/02/2020", End: "2020-12-31"} }},
		{"calendar end before start", func(c *Config) { c.Calendar = CalendarConfig{Start: "2020-12-31", End: "2020-01-01"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, core.ErrConfigInvalid) && !errors.Is(err, core.ErrConfigMissing) {
				t.Errorf("err = %v, want a config error", err)
			}
		})
	}
}

func TestCalendarRange(t *testing.T) {
	start, end, err := CalendarConfig{Start: "2019-01-01", End: "2019-12-31"}.Range()
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if !start.Equal(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s", start)
	}
	if !end.Equal(time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %s", end)
	}
}
