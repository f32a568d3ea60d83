package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/ledger"
	"github.com/statarb/pairbt/internal/metrics"
)

// Runner fans one engine configuration out across many pairs. Each
// pair's backtest is independent, so pairs run in parallel; the ledger
// store serializes its own writes. A failed pair aborts only itself.
type Runner struct {
	engine  *Engine
	store   ledger.Store
	logger  *zap.Logger
	metrics *metrics.Registry
	workers int
}

// NewRunner builds a runner over the given store. Metrics may be nil.
func NewRunner(cfg Config, store ledger.Store, logger *zap.Logger, reg *metrics.Registry) (*Runner, error) {
	eng, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		engine:  eng,
		store:   store,
		logger:  logger,
		metrics: reg,
		workers: runtime.GOMAXPROCS(0),
	}, nil
}

// Report summarizes one run across all pairs.
type Report struct {
	RunID       string
	Pairs       int
	FailedPairs int
	Trades      int
	Elapsed     time.Duration
}

// RunAll backtests every pair and persists each closed trade. The
// returned report counts pairs that completed, pairs that failed, and
// trades written.
func (r *Runner) RunAll(ctx context.Context, pairs []core.PricePair) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.New().String(), Pairs: len(pairs)}
	log := r.logger.With(zap.String("run", rep.RunID))
	log.Info("starting backtest run", zap.Int("pairs", len(pairs)))

	work := make(chan core.PricePair)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		trades int
		failed int
	)

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pp := range work {
				n, err := r.runPair(ctx, pp, log)
				mu.Lock()
				if err != nil {
					failed++
				} else {
					trades += n
				}
				mu.Unlock()
			}
		}()
	}

	for _, pp := range pairs {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return rep, ctx.Err()
		case work <- pp:
		}
	}
	close(work)
	wg.Wait()

	rep.FailedPairs = failed
	rep.Trades = trades
	rep.Elapsed = time.Since(start)
	log.Info("backtest run complete",
		zap.Int("pairs", rep.Pairs),
		zap.Int("failed", rep.FailedPairs),
		zap.Int("trades", rep.Trades),
		zap.Duration("elapsed", rep.Elapsed),
	)
	return rep, nil
}

func (r *Runner) runPair(ctx context.Context, pp core.PricePair, log *zap.Logger) (int, error) {
	started := time.Now()
	res, err := r.engine.Run(ctx, pp)
	if err != nil {
		log.Error("pair backtest failed", zap.String("pair", pp.Pair.String()), zap.Error(err))
		r.metrics.RecordPairBacktested("failed")
		return 0, err
	}

	for _, m := range res.Master {
		if err := r.store.WriteTrade(ctx, m, res.Ledgers[m.TradeID]); err != nil {
			log.Error("ledger write failed, aborting pair",
				zap.String("pair", pp.Pair.String()),
				zap.String("trade", m.TradeID),
				zap.Error(err))
			r.metrics.RecordPairBacktested("failed")
			return 0, err
		}
	}

	r.metrics.RecordPairBacktested("ok")
	r.metrics.RecordTradesClosed(len(res.Trades))
	r.metrics.ObserveBacktestDuration(time.Since(started))
	return len(res.Trades), nil
}
