package backtest

import (
	"context"

	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/signal"
)

// Engine runs the pair trade state machine over one aligned price pair.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates an engine with the given parameters. An optional
// logger may be provided; if not, logging is disabled.
func NewEngine(cfg Config, logger ...*zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Engine{cfg: cfg, logger: l}, nil
}

// Run scans the aligned series bar by bar, reading the signal at i-1 to
// decide the action at bar i, and returns every closed trade with its
// daily ledger. A series too short to produce valid signal bars yields
// zero trades, not an error.
func (e *Engine) Run(ctx context.Context, pp core.PricePair) (*Result, error) {
	if err := pp.Validate(); err != nil {
		return nil, err
	}

	sig, err := signal.Compute(pp, e.cfg.ShortWindow, e.cfg.LongWindow)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Pair:    pp.Pair,
		Ledgers: make(map[string][]core.LedgerRow),
	}

	st := State{Position: core.PositionFlat}
	for i := 1; i < pp.Len(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		z, ok := sig.ZScore(i - 1)
		bar := Bar{
			Date:       pp.Dates[i],
			Price1:     pp.P1[i],
			Price2:     pp.P2[i],
			PrevPrice1: pp.P1[i-1],
			PrevPrice2: pp.P2[i-1],
			Ratio:      sig.Ratio[i-1],
			Z:          z,
			ZValid:     ok,
			Last:       i == pp.Len()-1,
		}

		var closed []*Trade
		st, closed = step(st, bar, pp.Pair, e.cfg)
		for _, t := range closed {
			res.Trades = append(res.Trades, t)
			res.Master = append(res.Master, t.MasterRow())
			res.Ledgers[t.ID] = t.Rows
			e.logger.Debug("trade closed",
				zap.String("trade", t.ID),
				zap.String("position", string(t.Position)),
				zap.Int("days", t.DaysInTrade),
				zap.Float64("pnl", t.TotalPnL),
			)
		}
	}

	e.logger.Info("pair backtest complete",
		zap.String("pair", pp.Pair.String()),
		zap.Int("bars", pp.Len()),
		zap.Int("trades", len(res.Trades)),
	)
	return res, nil
}
