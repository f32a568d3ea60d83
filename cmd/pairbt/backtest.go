package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/backtest"
	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/marketdata"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest every configured pair over the calendar range",
	Long: `Run the pair trade state machine over each configured pair's
historical prices and write the closed trades and their daily ledgers
to the configured ledger store.`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Pairs) == 0 {
		return fmt.Errorf("no pairs configured")
	}
	start, end, err := cfg.Calendar.Range()
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()
	reg := startMetrics(cfg, log)

	prices, err := marketdata.Open(cfg.Prices.DBPath)
	if err != nil {
		return err
	}
	defer prices.Close()

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	var pairs []core.PricePair
	for _, p := range cfg.Pairs {
		pair := core.Pair{Ticker1: p.Ticker1, Ticker2: p.Ticker2}
		pp, err := prices.LoadPair(ctx, pair, start, end)
		if err != nil {
			log.Warn("skipping pair", zap.String("pair", pair.String()), zap.Error(err))
			continue
		}
		pairs = append(pairs, pp)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no pair has usable price data in [%s, %s]", cfg.Calendar.Start, cfg.Calendar.End)
	}

	runner, err := backtest.NewRunner(backtest.Config{
		ShortWindow:   cfg.Backtest.ShortWindow,
		LongWindow:    cfg.Backtest.LongWindow,
		UpperZ:        cfg.Backtest.EntryZ,
		LowerZ:        cfg.Backtest.ExitZ,
		CapitalPerLeg: cfg.Backtest.CapitalPerLeg,
	}, store, log, reg)
	if err != nil {
		return err
	}

	rep, err := runner.RunAll(ctx, pairs)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d pairs (%d failed), %d trades in %s\n",
		rep.RunID, rep.Pairs, rep.FailedPairs, rep.Trades, rep.Elapsed.Round(time.Millisecond))
	return nil
}
