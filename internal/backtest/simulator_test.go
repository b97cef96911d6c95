package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

func candle(t int64, o, h, l, c float64) models.Candle {
	return models.Candle{Time: t, Open: o, High: h, Low: l, Close: c}
}

func long(t int64, price, sl, tp float64) models.EntrySignal {
	return models.EntrySignal{Time: t, Type: models.Long, Price: price, SL: sl, TP: tp, BacktestResult: models.Pending}
}

func short(t int64, price, sl, tp float64) models.EntrySignal {
	return models.EntrySignal{Time: t, Type: models.Short, Price: price, SL: sl, TP: tp, BacktestResult: models.Pending}
}

func newTestSimulator() *Simulator {
	return NewSimulator(config.BacktestConfig{AccountBalance: 50000, RiskPercent: 1})
}

func TestRunOutcomes(t *testing.T) {
	candles := []models.Candle{
		candle(1, 100, 101, 99, 100),
		candle(2, 100, 103, 99.5, 102),
		candle(3, 102, 102.5, 97, 98),
		candle(4, 98, 99, 95, 96),
	}

	tests := []struct {
		name    string
		entry   models.EntrySignal
		outcome models.TradeOutcome
		exit    float64
		exitAt  int64
		pnl     float64
	}{
		{"long take profit", long(1, 100, 98, 103), models.Win, 103, 2, 750},
		{"long stop loss", long(2, 102, 98, 110), models.Loss, 98, 3, -500},
		{"short take profit", short(2, 102, 104, 96), models.Win, 96, 4, 1500},
		{"short stop loss", short(3, 98, 98.5, 90), models.Loss, 98.5, 4, -500},
		{"unresolved", long(3, 98, 90, 120), models.Pending, 0, 0, 0},
		{"last candle", long(4, 96, 94, 99), models.Pending, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestSimulator().Run(candles, []models.EntrySignal{tt.entry})
			require.Len(t, res.Entries, 1)
			e := res.Entries[0]
			assert.Equal(t, tt.outcome, e.BacktestResult)
			assert.Equal(t, tt.exit, e.ExitPrice)
			if tt.exitAt != 0 {
				assert.Equal(t, tt.exitAt, e.ExitTime)
			}
			assert.InDelta(t, tt.pnl, e.BacktestPnL, 0.001)
		})
	}
}

func TestRunStopLossWinsTie(t *testing.T) {
	candles := []models.Candle{
		candle(1, 100, 100.5, 99.5, 100),
		candle(2, 100, 110, 90, 100),
	}
	res := newTestSimulator().Run(candles, []models.EntrySignal{
		long(1, 100, 95, 105),
		short(1, 100, 105, 95),
	})
	assert.Equal(t, models.Loss, res.Entries[0].BacktestResult)
	assert.Equal(t, models.Loss, res.Entries[1].BacktestResult)
}

func TestRunIgnoresEntryCandle(t *testing.T) {
	candles := []models.Candle{
		candle(1, 100, 120, 80, 100),
		candle(2, 100, 101, 99, 100),
	}
	res := newTestSimulator().Run(candles, []models.EntrySignal{long(1, 100, 95, 105)})
	assert.Equal(t, models.Pending, res.Entries[0].BacktestResult)
}

func TestRunZeroRiskStaysPending(t *testing.T) {
	candles := []models.Candle{candle(1, 100, 101, 99, 100), candle(2, 100, 120, 80, 100)}
	res := newTestSimulator().Run(candles, []models.EntrySignal{long(1, 100, 100, 105)})
	assert.Equal(t, models.Pending, res.Entries[0].BacktestResult)
	assert.Zero(t, res.Stats.TradeCount)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	candles := []models.Candle{candle(1, 100, 101, 99, 100), candle(2, 100, 106, 99, 105)}
	entries := []models.EntrySignal{long(1, 100, 95, 105)}
	entries[0].Confluences = []string{"Order Block Retest"}

	res := newTestSimulator().Run(candles, entries)
	assert.Equal(t, models.Win, res.Entries[0].BacktestResult)
	assert.Equal(t, models.Pending, entries[0].BacktestResult)

	res.Entries[0].Confluences[0] = "changed"
	assert.Equal(t, "Order Block Retest", entries[0].Confluences[0])
}

func TestComputeStats(t *testing.T) {
	entries := []models.EntrySignal{
		{Time: 1, BacktestResult: models.Win, BacktestPnL: 1000, ExitTime: 10},
		{Time: 2, BacktestResult: models.Loss, BacktestPnL: -500, ExitTime: 11},
		{Time: 3, BacktestResult: models.Loss, BacktestPnL: -500, ExitTime: 12},
		{Time: 4, BacktestResult: models.Win, BacktestPnL: 1500, ExitTime: 13},
		{Time: 5, BacktestResult: models.Pending},
	}

	stats := ComputeStats(entries)
	assert.Equal(t, 1500.0, stats.NetPnL)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 1000.0, stats.MaxDrawdown)
	assert.Equal(t, 4, stats.TradeCount)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 2, stats.Losses)
	assert.Equal(t, 1, stats.Pending)
}

func TestComputeStatsOrdersByExitTime(t *testing.T) {
	// сделка, открытая раньше, закрылась позже
	entries := []models.EntrySignal{
		{Time: 1, BacktestResult: models.Win, BacktestPnL: 2000, ExitTime: 20},
		{Time: 2, BacktestResult: models.Loss, BacktestPnL: -500, ExitTime: 5},
		{Time: 3, BacktestResult: models.Loss, BacktestPnL: -500, ExitTime: 6},
	}
	stats := ComputeStats(entries)
	assert.Equal(t, 1000.0, stats.MaxDrawdown)
	assert.Equal(t, 1000.0, stats.NetPnL)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.NetPnL)
	assert.Zero(t, stats.MaxDrawdown)

	stats = ComputeStats([]models.EntrySignal{{BacktestResult: models.Pending}})
	assert.Zero(t, stats.WinRate)
	assert.Equal(t, 1, stats.Pending)
}
