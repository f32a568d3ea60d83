package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/statarb/pairbt/internal/core"
)

// Column layouts match the legacy research result files so downstream
// tooling can read either.
var (
	ledgerHeader = []string{
		"Date", "Position", "Ticker1", "Ticker2", "ZScore",
		"Ticker1_Shares", "Ticker2_Shares", "Ratio",
		"Ticker1_P", "Ticker2_P", "Days", "PnL",
	}
	masterHeader = []string{
		"TradeId", "EntryDate", "Position", "Ticker1", "Ticker2",
		"Pos1", "Pos2", "EntryRatio", "ExitDate",
		"MeanDailyPnL", "MaxDailyPnL", "MinDailyPnL", "DaysInTrade", "TotalPnL",
	}
)

// EncodeLedger renders a trade's daily rows as CSV with header.
func EncodeLedger(rows []core.LedgerRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format(core.DateLayout),
			string(r.Position),
			r.Ticker1,
			r.Ticker2,
			f(r.ZScore),
			f(r.Shares1),
			f(r.Shares2),
			f(r.Ratio),
			f(r.Price1),
			f(r.Price2),
			strconv.Itoa(r.DaysInTrade),
			f(r.PnL),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DecodeLedger parses a ledger CSV back into rows, in file order.
func DecodeLedger(data []byte) ([]core.LedgerRow, error) {
	recs, err := readAll(data, len(ledgerHeader))
	if err != nil {
		return nil, err
	}
	rows := make([]core.LedgerRow, 0, len(recs))
	for _, rec := range recs {
		date, err := time.Parse(core.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("ledger date %q: %w", rec[0], err)
		}
		days, err := strconv.Atoi(rec[10])
		if err != nil {
			return nil, fmt.Errorf("ledger days %q: %w", rec[10], err)
		}
		vals, err := floats(rec[4], rec[5], rec[6], rec[7], rec[8], rec[9], rec[11])
		if err != nil {
			return nil, err
		}
		rows = append(rows, core.LedgerRow{
			Date:        date,
			Position:    core.Position(rec[1]),
			Ticker1:     rec[2],
			Ticker2:     rec[3],
			ZScore:      vals[0],
			Shares1:     vals[1],
			Shares2:     vals[2],
			Ratio:       vals[3],
			Price1:      vals[4],
			Price2:      vals[5],
			DaysInTrade: days,
			PnL:         vals[6],
		})
	}
	return rows, nil
}

// EncodeMasterRow renders one master-log row without header, the unit
// the blob store keeps per trade.
func EncodeMasterRow(m core.MasterLogRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(masterRecord(m)); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// EncodeMaster renders a full master log as CSV with header.
func EncodeMaster(rows []core.MasterLogRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(masterHeader); err != nil {
		return nil, err
	}
	for _, m := range rows {
		if err := w.Write(masterRecord(m)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func masterRecord(m core.MasterLogRow) []string {
	return []string{
		m.TradeID,
		m.EntryDate.Format(core.DateLayout),
		string(m.Position),
		m.Ticker1,
		m.Ticker2,
		f(m.Pos1),
		f(m.Pos2),
		f(m.EntryRatio),
		m.ExitDate.Format(core.DateLayout),
		f(m.MeanDailyPnL),
		f(m.MaxDailyPnL),
		f(m.MinDailyPnL),
		strconv.Itoa(m.DaysInTrade),
		f(m.TotalPnL),
	}
}

// DecodeMasterRows parses master-log CSV records; a leading header row
// is skipped if present.
func DecodeMasterRows(data []byte) ([]core.MasterLogRow, error) {
	recs, err := readAll(data, len(masterHeader))
	if err != nil {
		return nil, err
	}
	rows := make([]core.MasterLogRow, 0, len(recs))
	for _, rec := range recs {
		entry, err := time.Parse(core.DateLayout, rec[1])
		if err != nil {
			return nil, fmt.Errorf("master entry date %q: %w", rec[1], err)
		}
		exit, err := time.Parse(core.DateLayout, rec[8])
		if err != nil {
			return nil, fmt.Errorf("master exit date %q: %w", rec[8], err)
		}
		days, err := strconv.Atoi(rec[12])
		if err != nil {
			return nil, fmt.Errorf("master days %q: %w", rec[12], err)
		}
		vals, err := floats(rec[5], rec[6], rec[7], rec[9], rec[10], rec[11], rec[13])
		if err != nil {
			return nil, err
		}
		rows = append(rows, core.MasterLogRow{
			TradeID:      rec[0],
			EntryDate:    entry,
			Position:     core.Position(rec[2]),
			Ticker1:      rec[3],
			Ticker2:      rec[4],
			Pos1:         vals[0],
			Pos2:         vals[1],
			EntryRatio:   vals[2],
			ExitDate:     exit,
			MeanDailyPnL: vals[3],
			MaxDailyPnL:  vals[4],
			MinDailyPnL:  vals[5],
			DaysInTrade:  days,
			TotalPnL:     vals[6],
		})
	}
	return rows, nil
}

func readAll(data []byte, fields int) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = fields
	recs, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	// drop the header row when the first field is not data
	if len(recs) > 0 && (recs[0][0] == ledgerHeader[0] || recs[0][0] == masterHeader[0]) {
		recs = recs[1:]
	}
	return recs, nil
}

func floats(ss ...string) ([]float64, error) {
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing float %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// f formats a float with full round-trip precision; daily PnL values
// must sum back to the trade total exactly.
func f(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
