package entry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

var base = time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC).Unix()

func ts(i int) int64 { return base + int64(i)*900 }

// восходящий импульс от ордер-блока [10, 11], откат в зону на свече 7
// и продолжение выше свинга 15.5
func pullbackSeries() []models.Candle {
	ohlc := [][4]float64{
		{10.5, 11, 10, 10.2},
		{10.8, 11, 10, 10.3},
		{10.3, 13, 10.2, 12.8},
		{12.8, 14, 12.5, 13.8},
		{13.8, 15, 13.5, 14.8},
		{14.8, 15.5, 14, 14.2},
		{14.2, 14.3, 12, 12.3},
		{12.3, 12.5, 10.8, 11.5},
		{11.5, 13, 11.2, 12.8},
		{12.8, 14.5, 12.6, 14.2},
		{14.2, 16, 14, 15.8},
	}
	out := make([]models.Candle, len(ohlc))
	for i, v := range ohlc {
		out[i] = models.Candle{Time: ts(i), Open: v[0], High: v[1], Low: v[2], Close: v[3]}
	}
	return out
}

func nativeZone() models.OrderBlock {
	return models.OrderBlock{
		Time: ts(1), PriceHigh: 11, PriceLow: 10,
		Direction: models.Bullish, Subtype: models.Standard, ConfirmedAt: ts(3),
	}
}

func gap() models.FVG {
	return models.FVG{Time: ts(2), PriceHigh: 12.5, PriceLow: 11, Direction: models.Bullish, ConfirmedAt: ts(3)}
}

func newTestGenerator() *Generator {
	return NewGenerator(config.Default().Analysis.Entry, 1)
}

func TestDetectPullbackLong(t *testing.T) {
	signals := newTestGenerator().Detect(pullbackSeries(), []models.OrderBlock{nativeZone()}, []models.FVG{gap()}, models.Timeframe15m)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, ts(7), s.Time)
	assert.Equal(t, models.Long, s.Type)
	assert.Equal(t, 11.5, s.Price)
	assert.InDelta(t, 9.9, s.SL, 1e-9)
	assert.Equal(t, 15.5, s.TP)
	assert.Equal(t, 4, s.Score)
	assert.Equal(t, 60.0, s.WinProbability)
	assert.Equal(t, "B", s.SetupGrade)
	assert.Equal(t, "Order Block Retest", s.SetupName)
	assert.Equal(t, []string{"Order Block Retest", "FVG Confluence", "Discount Zone", "Target: Swing 15.5"}, s.Confluences)
	assert.Equal(t, models.Pending, s.BacktestResult)
	assert.Zero(t, s.BacktestPnL)
}

func TestDetectPrefersHigherScoreOnSameCandle(t *testing.T) {
	htf := nativeZone()
	htf.Time = ts(0)
	htf.ConfirmedAt = ts(0)
	htf.Timeframe = models.Timeframe1h

	signals := newTestGenerator().Detect(pullbackSeries(), []models.OrderBlock{nativeZone(), htf}, []models.FVG{gap()}, models.Timeframe15m)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, 6, s.Score)
	assert.Equal(t, "A+", s.SetupGrade)
	assert.Equal(t, 70.0, s.WinProbability)
	assert.Equal(t, "HTF Order Block Retest", s.SetupName)
	assert.Contains(t, s.Confluences, "HTF Zone (1h)")
}

func TestDetectWaitsForHigherTimeframeClose(t *testing.T) {
	// зона 1h подтверждена на ts(3) и известна только с ts(7): нет свечи для взвода
	htf := nativeZone()
	htf.Timeframe = models.Timeframe1h

	signals := newTestGenerator().Detect(pullbackSeries(), []models.OrderBlock{htf}, nil, models.Timeframe15m)
	assert.Empty(t, signals)
}

func TestDetectSkipsMitigatedZone(t *testing.T) {
	z := nativeZone()
	z.Mitigated = true
	z.MitigatedAt = ts(6)

	signals := newTestGenerator().Detect(pullbackSeries(), []models.OrderBlock{z}, nil, models.Timeframe15m)
	assert.Empty(t, signals)
}

func TestDetectRequiresMatchingBias(t *testing.T) {
	// медвежья зона под свингом: реакция на свече 5 до появления структуры
	bearish := models.OrderBlock{
		Time: ts(1), PriceHigh: 15.6, PriceLow: 15.2,
		Direction: models.Bearish, Subtype: models.Standard, ConfirmedAt: ts(2),
	}
	signals := newTestGenerator().Detect(pullbackSeries(), []models.OrderBlock{bearish}, nil, models.Timeframe15m)
	assert.Empty(t, signals)
}

func TestDetectEmptyInputs(t *testing.T) {
	g := newTestGenerator()
	assert.Empty(t, g.Detect(nil, []models.OrderBlock{nativeZone()}, nil, models.Timeframe15m))
	assert.Empty(t, g.Detect(pullbackSeries(), nil, nil, models.Timeframe15m))
	assert.NotNil(t, g.Detect(nil, nil, nil, models.Timeframe15m))
}

func TestDetectDeterministic(t *testing.T) {
	g := newTestGenerator()
	zones := []models.OrderBlock{nativeZone()}
	fvgs := []models.FVG{gap()}
	first := g.Detect(pullbackSeries(), zones, fvgs, models.Timeframe15m)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Detect(pullbackSeries(), zones, fvgs, models.Timeframe15m))
	}
}

func TestWinProbabilityAndGrade(t *testing.T) {
	cfg := config.Default().Analysis.Entry

	tests := []struct {
		score int
		prob  float64
		grade string
	}{
		{0, 40, ""},
		{1, 45, ""},
		{2, 50, "C"},
		{4, 60, "B"},
		{6, 70, "A+"},
		{8, 80, "A++"},
		{11, 95, "A++"},
		{20, 100, "A++"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.prob, WinProbability(cfg, tt.score), "score %d", tt.score)
		assert.Equal(t, tt.grade, Grade(cfg.Grades, tt.score), "score %d", tt.score)
	}

	cfg.BaseProbability = -50
	assert.Equal(t, 0.0, WinProbability(cfg, 1))
}

func TestSelectZones(t *testing.T) {
	low := []string{models.Timeframe1m, models.Timeframe3m}
	native := []models.OrderBlock{{Time: 1}}
	htf := []models.OrderBlock{{Time: 2, Timeframe: models.Timeframe15m}}

	assert.Equal(t, htf, SelectZones(models.Timeframe1m, native, htf, low))
	assert.Equal(t, native, SelectZones(models.Timeframe1m, native, nil, low))
	assert.Equal(t, native, SelectZones(models.Timeframe15m, native, htf, low))

	gaps := SelectZones(models.Timeframe3m, []models.FVG{{Time: 5}}, []models.FVG{}, low)
	require.Len(t, gaps, 1)
	assert.Equal(t, int64(5), gaps[0].Time)

	out := SelectZones(models.Timeframe15m, native, htf, low)
	out[0].Time = 99
	assert.Equal(t, int64(1), native[0].Time)
}
