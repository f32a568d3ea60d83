package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/config"
	"github.com/statarb/pairbt/internal/ledger"
	"github.com/statarb/pairbt/internal/logger"
	"github.com/statarb/pairbt/internal/metrics"
	"github.com/statarb/pairbt/internal/storage/blob"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "pairbt",
	Short: "pairbt - pairs-trading backtest and portfolio replay",
	Long: `pairbt simulates a mean-reversion pairs-trading strategy over
historical price series and reconstructs portfolio-level daily PnL
from the recorded trade ledgers.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newStore builds the configured ledger store. The returned closer is
// a no-op for stores with nothing to release.
func newStore(cfg *config.Config, log *zap.Logger) (ledger.Store, func() error, error) {
	switch cfg.Ledger.Type {
	case "localfs":
		fs, err := blob.NewLocalFS(cfg.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		return ledger.NewBlobStore(fs, log), func() error { return nil }, nil
	case "s3":
		s3, err := blob.NewS3(blob.S3Config{
			Bucket:    cfg.Ledger.S3.Bucket,
			Endpoint:  cfg.Ledger.S3.Endpoint,
			Region:    cfg.Ledger.S3.Region,
			AccessKey: cfg.Ledger.S3.AccessKey,
			SecretKey: cfg.Ledger.S3.SecretKey,
			Prefix:    cfg.Ledger.S3.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return ledger.NewBlobStore(s3, log), func() error { return nil }, nil
	case "sqlite":
		st, err := ledger.NewSQLite(cfg.Ledger.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger type %q", cfg.Ledger.Type)
	}
}

// startMetrics builds the metrics registry and, when enabled, serves
// it on the configured address for scraping during long runs.
func startMetrics(cfg *config.Config, log *zap.Logger) *metrics.Registry {
	if !cfg.Metrics.Enabled {
		return nil
	}
	reg := metrics.NewRegistry()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", reg.Handler())
		if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
			log.Warn("metrics listener stopped", zap.Error(err))
		}
	}()
	return reg
}

func newLogger() *zap.Logger {
	return logger.Must(debug)
}
