package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/internal/metrics"
	"github.com/skalibog/ictscan/pkg/logger"
	"github.com/skalibog/ictscan/pkg/models"
)

type fakeSource struct {
	mu       sync.Mutex
	series   map[string][]models.Candle
	failures map[string]int
	calls    map[string]int
	// blocked интервалы, запрос которых ждет отмены контекста
	blocked map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		series:   make(map[string][]models.Candle),
		failures: make(map[string]int),
		calls:    make(map[string]int),
		blocked:  make(map[string]bool),
	}
}

func (s *fakeSource) GetCandles(ctx context.Context, _ string, interval string, _ int) ([]models.Candle, error) {
	s.mu.Lock()
	blocked := s.blocked[interval]
	s.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[interval]++
	if s.failures[interval] != 0 {
		if s.failures[interval] > 0 {
			s.failures[interval]--
		}
		return nil, errors.New("exchange unavailable")
	}
	return s.series[interval], nil
}

func testConfig() config.FeedConfig {
	return config.FeedConfig{Retries: 2, BackoffMin: time.Millisecond, BackoffMax: 2 * time.Millisecond}
}

func candles(times ...int64) []models.Candle {
	out := make([]models.Candle, len(times))
	for i, t := range times {
		out[i] = models.Candle{Time: t, Open: 1, High: 2, Low: 0.5, Close: 1.5}
	}
	return out
}

func TestFetchBoth(t *testing.T) {
	src := newFakeSource()
	src.series["3m"] = candles(360, 180, 0)
	src.series["15m"] = candles(0, 900)

	series, err := New(src, testConfig(), 100).Fetch(context.Background(), "BTCUSDT", "3m", "15m")
	require.NoError(t, err)

	require.Len(t, series.Candles, 3)
	assert.Equal(t, int64(0), series.Candles[0].Time, "candles are normalized")
	assert.Len(t, series.HTF, 2)
	assert.NoError(t, series.HTFErr)
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	src := newFakeSource()
	src.series["15m"] = candles(0, 900)
	src.failures["15m"] = 2

	series, err := New(src, testConfig(), 100).Fetch(context.Background(), "BTCUSDT", "15m", "")
	require.NoError(t, err)
	assert.Len(t, series.Candles, 2)
	assert.Equal(t, 3, src.calls["15m"])
	assert.Empty(t, series.HTF)
}

func TestFetchDegradesHigherTimeframe(t *testing.T) {
	src := newFakeSource()
	src.series["1m"] = candles(0, 60)
	src.failures["15m"] = -1

	series, err := New(src, testConfig(), 100).Fetch(context.Background(), "BTCUSDT", "1m", "15m")
	require.NoError(t, err)
	assert.Len(t, series.Candles, 2)
	assert.NotNil(t, series.HTF)
	assert.Empty(t, series.HTF)
	assert.Error(t, series.HTFErr)
	assert.Equal(t, 3, src.calls["15m"])
}

func TestFetchTradingFailure(t *testing.T) {
	src := newFakeSource()
	src.failures["15m"] = -1

	_, err := New(src, testConfig(), 100).Fetch(context.Background(), "BTCUSDT", "15m", "")
	assert.Error(t, err)
}

func TestFetchNoCandles(t *testing.T) {
	_, err := New(newFakeSource(), testConfig(), 100).Fetch(context.Background(), "BTCUSDT", "15m", "")
	assert.ErrorIs(t, err, ErrNoCandles)
}

func TestFetchHonoursCancellation(t *testing.T) {
	src := newFakeSource()
	src.failures["15m"] = -1

	cfg := config.FeedConfig{Retries: 5, BackoffMin: time.Second, BackoffMax: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, cfg, 100).Fetch(ctx, "BTCUSDT", "15m", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchTradingFailureSkipsHTFFallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(zap.NewNop())

	const symbol = "DOGEUSDT"
	src := newFakeSource()
	src.failures["3m"] = -1
	src.blocked["15m"] = true

	cfg := testConfig()
	cfg.Retries = 0
	_, err := New(src, cfg, 100).Fetch(context.Background(), symbol, "3m", "15m")
	require.Error(t, err)

	assert.Zero(t, logs.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.HTFFallbacks.WithLabelValues(symbol)))
}
