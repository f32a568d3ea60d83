package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/statarb/pairbt/internal/core"
)

// Config is the full configuration surface of a backtest run.
type Config struct {
	Backtest BacktestConfig `mapstructure:"backtest"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Pairs    []PairConfig   `mapstructure:"pairs"`
	Prices   PricesConfig   `mapstructure:"prices"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Results  ResultsConfig  `mapstructure:"results"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// BacktestConfig holds the strategy parameters.
type BacktestConfig struct {
	ShortWindow   int     `mapstructure:"short_window"`
	LongWindow    int     `mapstructure:"long_window"`
	EntryZ        float64 `mapstructure:"entry_z"`
	ExitZ         float64 `mapstructure:"exit_z"`
	CapitalPerLeg float64 `mapstructure:"capital_per_leg"`
}

// CalendarConfig bounds the backtest and replay date range.
type CalendarConfig struct {
	Start string `mapstructure:"start"` // YYYY-MM-DD
	End   string `mapstructure:"end"`   // YYYY-MM-DD
}

// Range parses the calendar bounds.
func (c CalendarConfig) Range() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.Start)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("calendar start %q: %w", c.Start, err))
	}
	end, err := time.Parse("2006-01-02", c.End)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("calendar end %q: %w", c.End, err))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("calendar end %s before start %s", c.End, c.Start))
	}
	return start, end, nil
}

// PairConfig names one instrument pair to trade.
type PairConfig struct {
	Ticker1 string `mapstructure:"ticker1"`
	Ticker2 string `mapstructure:"ticker2"`
}

// PricesConfig locates the daily price store.
type PricesConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LedgerConfig selects and configures the trade ledger store.
type LedgerConfig struct {
	Type   string   `mapstructure:"type"` // "localfs", "s3" or "sqlite"
	Path   string   `mapstructure:"path"` // localfs root
	DBPath string   `mapstructure:"db_path"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config holds S3 ledger storage settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// ReplayConfig holds portfolio replay settings.
type ReplayConfig struct {
	YearScoped bool `mapstructure:"year_scoped"`
}

// ResultsConfig locates the replay output files.
type ResultsConfig struct {
	Dir string `mapstructure:"dir"`
}

// MetricsConfig holds the optional metrics listener settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Load reads configuration from file, with environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a config with the standard study parameters.
func Defaults() *Config {
	return &Config{
		Backtest: BacktestConfig{
			ShortWindow:   5,
			LongWindow:    30,
			EntryZ:        1.0,
			ExitZ:         0.0,
			CapitalPerLeg: 50000.0,
		},
		Prices: PricesConfig{DBPath: "data/prices.db"},
		Ledger: LedgerConfig{
			Type:   "localfs",
			Path:   "data/ledgers",
			DBPath: "data/trades.db",
		},
		Results: ResultsConfig{Dir: "results"},
		Metrics: MetricsConfig{Listen: ":9090"},
	}
}

// Validate checks the parameter invariants.
func (c *Config) Validate() error {
	if c.Backtest.ShortWindow <= 0 || c.Backtest.LongWindow <= 0 ||
		c.Backtest.ShortWindow >= c.Backtest.LongWindow {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(
			"windows must satisfy 0 < short < long, got short=%d long=%d",
			c.Backtest.ShortWindow, c.Backtest.LongWindow))
	}
	if c.Backtest.CapitalPerLeg <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("capital_per_leg must be positive, got %v", c.Backtest.CapitalPerLeg))
	}
	switch c.Ledger.Type {
	case "localfs", "sqlite":
	case "s3":
		if c.Ledger.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("ledger.s3.bucket"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown ledger type %q", c.Ledger.Type))
	}
	if c.Calendar.Start != "" || c.Calendar.End != "" {
		if _, _, err := c.Calendar.Range(); err != nil {
			return err
		}
	}
	for _, p := range c.Pairs {
		if p.Ticker1 == "" || p.Ticker2 == "" || p.Ticker1 == p.Ticker2 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid pair %q/%q", p.Ticker1, p.Ticker2))
		}
	}
	return nil
}
