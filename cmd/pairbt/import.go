package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/marketdata"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import daily prices into the price store",
	Long: `Load a CSV of daily adjusted closes into the local price store.
Expected columns: ticker, date (YYYYMMDD), adj_close. A header row is
skipped if present.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	byTicker := make(map[string][]core.PricePoint)
	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line++
		if line == 1 && rec[0] == "ticker" {
			continue
		}
		date, err := time.Parse(core.DateLayout, rec[1])
		if err != nil {
			return fmt.Errorf("line %d: date %q: %w", line, rec[1], err)
		}
		price, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return fmt.Errorf("line %d: price %q: %w", line, rec[2], err)
		}
		byTicker[rec[0]] = append(byTicker[rec[0]], core.PricePoint{Date: date, Price: price})
	}

	store, err := marketdata.Open(cfg.Prices.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	var rows int
	for ticker, points := range byTicker {
		if err := store.Upsert(ctx, ticker, points); err != nil {
			return err
		}
		rows += len(points)
		log.Info("imported", zap.String("ticker", ticker), zap.Int("days", len(points)))
	}

	fmt.Printf("imported %d rows across %d tickers into %s\n", rows, len(byTicker), cfg.Prices.DBPath)
	return nil
}
