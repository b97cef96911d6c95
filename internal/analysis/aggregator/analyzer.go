package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/internal/feed"
	"github.com/skalibog/ictscan/internal/metrics"
	"github.com/skalibog/ictscan/pkg/logger"
	"github.com/skalibog/ictscan/pkg/models"
)

// Fetcher загружает торговую и старшую серии символа
type Fetcher interface {
	Fetch(ctx context.Context, symbol, interval, htfInterval string) (feed.Series, error)
}

// Analyzer прогоняет конвейер по всем отслеживаемым символам
type Analyzer struct {
	cfg     *config.Config
	fetcher Fetcher
	symbols []string
	now     func() time.Time
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(cfg *config.Config, fetcher Fetcher) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		fetcher: fetcher,
		symbols: cfg.Trading.Symbols,
		now:     time.Now,
	}
}

// GenerateReports строит отчеты для всех символов параллельно.
// Ошибка по одному символу логируется и не влияет на остальные
func (a *Analyzer) GenerateReports(ctx context.Context) map[string]*Result {
	runID := uuid.NewString()
	results := make(map[string]*Result, len(a.symbols))

	var wg sync.WaitGroup
	var mutex sync.Mutex

	for _, symbol := range a.symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()

			res, err := a.Analyze(ctx, sym)
			if err != nil {
				logger.Error("Ошибка анализа символа",
					zap.String("run_id", runID),
					zap.String("symbol", sym),
					zap.Error(err))
				return
			}
			res.RunID = runID

			mutex.Lock()
			results[sym] = res
			mutex.Unlock()
		}(symbol)
	}

	wg.Wait()
	logger.Info("Анализ завершен",
		zap.String("run_id", runID),
		zap.Int("symbols", len(a.symbols)),
		zap.Int("reports", len(results)))
	return results
}

// Analyze загружает свечи символа и выполняет расчет
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*Result, error) {
	start := a.now()
	interval := a.cfg.Trading.Interval
	htfInterval := a.cfg.HTFInterval()

	series, err := a.fetcher.Fetch(ctx, symbol, interval, htfInterval)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues(symbol, "error").Inc()
		return nil, fmt.Errorf("загрузка свечей %s: %w", symbol, err)
	}

	res := Compute(a.cfg, Input{
		Symbol:       symbol,
		Timeframe:    interval,
		HTFTimeframe: htfInterval,
		Candles:      series.Candles,
		HTFCandles:   series.HTF,
		Now:          start.Unix(),
	})

	metrics.PipelineRunsTotal.WithLabelValues(symbol, "ok").Inc()
	metrics.PipelineDuration.WithLabelValues(symbol).Observe(a.now().Sub(start).Seconds())
	metrics.NetPnL.WithLabelValues(symbol).Set(res.Stats.NetPnL)
	metrics.WinRate.WithLabelValues(symbol).Set(res.Stats.WinRate)
	metrics.MaxDrawdown.WithLabelValues(symbol).Set(res.Stats.MaxDrawdown)
	recordSignals(symbol, res.Entries)

	logger.Debug("AGGREGATOR: расчет завершен",
		zap.String("symbol", symbol),
		zap.Int("candles", len(series.Candles)),
		zap.Int("htf_candles", len(series.HTF)),
		zap.Int("order_blocks", len(res.OrderBlocks)),
		zap.Int("raw_entries", len(res.RawEntries)),
		zap.Int("entries", len(res.Entries)),
		zap.Float64("net_pnl", res.Stats.NetPnL))

	return res, nil
}

// recordSignals заменяет значения счетчика сигналов символа текущим окном,
// чтобы повторные прогоны не учитывали один сигнал несколько раз
func recordSignals(symbol string, entries []models.EntrySignal) {
	metrics.SignalsInWindow.DeletePartialMatch(prometheus.Labels{"symbol": symbol})
	for _, e := range entries {
		metrics.SignalsInWindow.WithLabelValues(symbol, string(e.Type), e.SetupGrade).Inc()
	}
}
