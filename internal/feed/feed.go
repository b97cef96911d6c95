// Package feed загружает торговую и старшую серии свечей с повторами.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/internal/metrics"
	"github.com/skalibog/ictscan/pkg/logger"
	"github.com/skalibog/ictscan/pkg/models"
)

// ErrNoCandles возвращается, если источник не вернул ни одной свечи
var ErrNoCandles = errors.New("нет свечей")

// Source источник свечей (биржа или хранилище)
type Source interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// Series торговая и старшая серии одного символа.
// HTFErr заполняется, если старшая серия недоступна; HTF тогда пустая
type Series struct {
	Candles []models.Candle
	HTF     []models.Candle
	HTFErr  error
}

// Feed загружает свечи из источника
type Feed struct {
	source  Source
	limit   int
	retries int
	timeout time.Duration
	minWait time.Duration
	maxWait time.Duration
}

// New создает загрузчик свечей
func New(source Source, cfg config.FeedConfig, limit int) *Feed {
	return &Feed{
		source:  source,
		limit:   limit,
		retries: cfg.Retries,
		timeout: cfg.Timeout,
		minWait: cfg.BackoffMin,
		maxWait: cfg.BackoffMax,
	}
}

// Fetch параллельно загружает торговую серию и серию старшего таймфрейма.
// Ошибка старшей серии не прерывает загрузку: она заменяется пустой серией
func (f *Feed) Fetch(ctx context.Context, symbol, interval, htfInterval string) (Series, error) {
	var series Series
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		candles, err := f.fetch(gctx, symbol, interval)
		if err != nil {
			return err
		}
		if len(candles) == 0 {
			return fmt.Errorf("%s %s: %w", symbol, interval, ErrNoCandles)
		}
		series.Candles = candles
		return nil
	})

	if htfInterval != "" {
		g.Go(func() error {
			candles, err := f.fetch(gctx, symbol, htfInterval)
			if err != nil && gctx.Err() != nil {
				// торговая серия уже не загрузилась, символ все равно отброшен
				return nil
			}
			if err != nil {
				logger.Warn("Старший таймфрейм недоступен, используются собственные зоны",
					zap.String("symbol", symbol),
					zap.String("interval", htfInterval),
					zap.Error(err))
				metrics.HTFFallbacks.WithLabelValues(symbol).Inc()
				series.HTFErr = err
				series.HTF = []models.Candle{}
				return nil
			}
			series.HTF = candles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Series{}, err
	}
	if series.HTF == nil {
		series.HTF = []models.Candle{}
	}
	return series, nil
}

func (f *Feed) fetch(ctx context.Context, symbol, interval string) ([]models.Candle, error) {
	b := &backoff.Backoff{Min: f.minWait, Max: f.maxWait, Factor: 2, Jitter: true}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		candles, err := f.once(ctx, symbol, interval)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		metrics.FetchErrors.WithLabelValues(symbol, interval).Inc()

		if attempt == f.retries {
			break
		}
		wait := b.Duration()
		logger.Debug("Повтор загрузки свечей",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("загрузка %s %s: %w", symbol, interval, lastErr)
}

func (f *Feed) once(ctx context.Context, symbol, interval string) ([]models.Candle, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	candles, err := f.source.GetCandles(ctx, symbol, interval, f.limit)
	if err != nil {
		return nil, err
	}
	return models.NormalizeCandles(candles), nil
}
