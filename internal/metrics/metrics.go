package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the batch counters the backtest and replay engines
// report into. All record methods are safe on a nil receiver so
// callers can run without metrics.
type Registry struct {
	*prometheus.Registry

	pairsBacktested  *prometheus.CounterVec
	tradesClosed     prometheus.Counter
	backtestDuration prometheus.Histogram
	replayDays       prometheus.Counter
	ledgerGaps       prometheus.Counter
}

// NewRegistry creates a metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		pairsBacktested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairbt_pairs_backtested_total",
				Help: "Total number of pair backtests run",
			},
			[]string{"status"},
		),
		tradesClosed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairbt_trades_closed_total",
				Help: "Total number of trades closed across all pairs",
			},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pairbt_pair_backtest_duration_seconds",
				Help:    "Single-pair backtest duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		replayDays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairbt_replay_days_total",
				Help: "Total number of calendar days replayed",
			},
		),
		ledgerGaps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairbt_ledger_gaps_total",
				Help: "Ledger day lookups that found no row and were zero-filled",
			},
		),
	}

	reg.MustRegister(r.pairsBacktested)
	reg.MustRegister(r.tradesClosed)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.replayDays)
	reg.MustRegister(r.ledgerGaps)

	return r
}

// RecordPairBacktested increments the pair counter with "ok" or "failed".
func (r *Registry) RecordPairBacktested(status string) {
	if r == nil {
		return
	}
	r.pairsBacktested.WithLabelValues(status).Inc()
}

// RecordTradesClosed adds n closed trades.
func (r *Registry) RecordTradesClosed(n int) {
	if r == nil {
		return
	}
	r.tradesClosed.Add(float64(n))
}

// ObserveBacktestDuration records one pair run's wall time.
func (r *Registry) ObserveBacktestDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.backtestDuration.Observe(d.Seconds())
}

// RecordReplayDay counts one replayed calendar day.
func (r *Registry) RecordReplayDay() {
	if r == nil {
		return
	}
	r.replayDays.Inc()
}

// RecordLedgerGap counts a zero-filled missing ledger row.
func (r *Registry) RecordLedgerGap() {
	if r == nil {
		return
	}
	r.ledgerGaps.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
