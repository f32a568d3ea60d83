package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/replay"
	"github.com/statarb/pairbt/internal/stats"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded trades into a portfolio daily PnL series",
	Long: `Walk the business-day calendar, reconstruct which trades were open
on each day from the master log and per-trade ledgers, and print summary
statistics for the daily series and the raw trade series.`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	start, end, err := cfg.Calendar.Range()
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()
	reg := startMetrics(cfg, log)

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	master, err := store.MasterRows(ctx, start, end)
	if err != nil {
		return err
	}
	if len(master) == 0 {
		return fmt.Errorf("no trades entered in [%s, %s]", cfg.Calendar.Start, cfg.Calendar.End)
	}

	eng := replay.NewEngine(store, replay.Options{
		YearScoped: cfg.Replay.YearScoped,
		Logger:     log,
		Metrics:    reg,
	})
	records, err := eng.Replay(ctx, master, replay.Calendar(start, end))
	if err != nil {
		return err
	}

	tradePnL := make([]float64, len(master))
	for i, m := range master {
		tradePnL[i] = m.TotalPnL
	}

	tradeStats, err := stats.Compute(tradePnL, false)
	if err != nil {
		return err
	}
	printStats("trade", tradeStats)

	dailyStats, err := stats.Compute(replay.DailyPnL(records), true)
	if err != nil {
		if errors.Is(err, core.ErrEmptySeries) {
			fmt.Println("no non-zero daily PnL, skipping daily statistics")
			return writeDaily(cfg.Results.Dir, records)
		}
		return err
	}
	printStats("daily", dailyStats)

	if err := writeDaily(cfg.Results.Dir, records); err != nil {
		return err
	}
	if err := writeStats(cfg.Results.Dir, "model_daily_stats.csv", dailyStats); err != nil {
		return err
	}
	return writeStats(cfg.Results.Dir, "model_trade_stats.csv", tradeStats)
}

func printStats(label string, s stats.Stats) {
	fmt.Printf("=== %s statistics ===\n", label)
	fmt.Printf("Total %ss:       %d\n", label, s.Count)
	fmt.Printf("Winning %ss:     %d\n", label, s.Wins)
	fmt.Printf("Win rate:         %.4f\n", s.WinRate)
	fmt.Printf("Total PnL:        %.2f\n", s.TotalPnL)
	fmt.Printf("Mean PnL:         %.2f\n", s.MeanPnL)
	fmt.Printf("Mean %% notional:  %.4f\n", s.MeanPctNotional)
	fmt.Printf("Max PnL:          %.2f\n", s.MaxPnL)
	fmt.Printf("Min PnL:          %.2f\n", s.MinPnL)
	fmt.Printf("Mean winner:      %.2f\n", s.MeanWinner)
	fmt.Printf("Mean loser:       %.2f\n", s.MeanLoser)
}

func writeDaily(dir string, records []replay.DayRecord) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "daily_results.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "PnL", "TradeCount"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.Date.Format(core.DateLayout),
			strconv.FormatFloat(r.PnL, 'g', -1, 64),
			strconv.Itoa(r.OpenTrades),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeStats(dir, name string, s stats.Stats) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{
		{"Count", strconv.Itoa(s.Count)},
		{"Wins", strconv.Itoa(s.Wins)},
		{"WinRate", strconv.FormatFloat(s.WinRate, 'g', -1, 64)},
		{"TotalPnL", strconv.FormatFloat(s.TotalPnL, 'g', -1, 64)},
		{"MeanPnL", strconv.FormatFloat(s.MeanPnL, 'g', -1, 64)},
		{"MeanPctNotional", strconv.FormatFloat(s.MeanPctNotional, 'g', -1, 64)},
		{"MaxPnL", strconv.FormatFloat(s.MaxPnL, 'g', -1, 64)},
		{"MinPnL", strconv.FormatFloat(s.MinPnL, 'g', -1, 64)},
		{"MeanWinner", strconv.FormatFloat(s.MeanWinner, 'g', -1, 64)},
		{"MeanLoser", strconv.FormatFloat(s.MeanLoser, 'g', -1, 64)},
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}
