package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ictscan"

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"symbol", "status"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Pipeline duration including candle fetch",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	SignalsInWindow = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signals_in_window",
			Help:      "Entry signals that passed the output filters in the recent window of the latest run",
		},
		[]string{"symbol", "type", "grade"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed candle fetch attempts",
		},
		[]string{"symbol", "interval"},
	)

	HTFFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "htf_fallbacks_total",
			Help:      "Runs where the higher timeframe series was unavailable",
		},
		[]string{"symbol"},
	)

	NetPnL = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backtest_net_pnl",
			Help:      "Net PnL of the latest backtest",
		},
		[]string{"symbol"},
	)

	WinRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backtest_win_rate",
			Help:      "Win rate (percent) of the latest backtest",
		},
		[]string{"symbol"},
	)

	MaxDrawdown = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backtest_max_drawdown",
			Help:      "Max drawdown of the latest backtest",
		},
		[]string{"symbol"},
	)
)
