// Package backtest прогоняет сигналы по истории свечей и считает статистику.
package backtest

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

// Simulator определяет исход сигналов по последующим свечам
type Simulator struct {
	riskAmount decimal.Decimal
}

// Result результат прогона: копии сигналов с заполненным исходом и статистика
type Result struct {
	Entries []models.EntrySignal `json:"entries"`
	Stats   models.BacktestStats `json:"stats"`
}

// NewSimulator создает симулятор. Риск на сделку задается долей баланса в процентах
func NewSimulator(cfg config.BacktestConfig) *Simulator {
	risk := decimal.NewFromFloat(cfg.AccountBalance).
		Mul(decimal.NewFromFloat(cfg.RiskPercent)).
		Div(decimal.NewFromInt(100))
	return &Simulator{riskAmount: risk}
}

// Run возвращает исходы сигналов. Свечи должны быть упорядочены по времени.
// Проверка начинается со свечи строго после сигнала; если в одной свече
// задеты и стоп, и тейк, засчитывается стоп
func (s *Simulator) Run(candles []models.Candle, entries []models.EntrySignal) Result {
	out := make([]models.EntrySignal, len(entries))
	for i, e := range entries {
		out[i] = s.resolve(candles, e.Clone())
	}
	return Result{Entries: out, Stats: ComputeStats(out)}
}

func (s *Simulator) resolve(candles []models.Candle, e models.EntrySignal) models.EntrySignal {
	e.BacktestResult = models.Pending
	e.BacktestPnL = 0
	e.ExitTime = 0
	e.ExitPrice = 0

	if e.Risk() <= 0 {
		return e
	}

	start := sort.Search(len(candles), func(i int) bool { return candles[i].Time > e.Time })
	for _, c := range candles[start:] {
		outcome, exit := check(e, c)
		if outcome == models.Pending {
			continue
		}
		e.BacktestResult = outcome
		e.ExitTime = c.Time
		e.ExitPrice = exit
		e.BacktestPnL = s.pnl(e, exit)
		return e
	}
	return e
}

func check(e models.EntrySignal, c models.Candle) (models.TradeOutcome, float64) {
	if e.Type == models.Long {
		if c.Low <= e.SL {
			return models.Loss, e.SL
		}
		if c.High >= e.TP {
			return models.Win, e.TP
		}
		return models.Pending, 0
	}
	if c.High >= e.SL {
		return models.Loss, e.SL
	}
	if c.Low <= e.TP {
		return models.Win, e.TP
	}
	return models.Pending, 0
}

// pnl: размер позиции подбирается так, чтобы стоп стоил riskAmount
func (s *Simulator) pnl(e models.EntrySignal, exit float64) float64 {
	entry := decimal.NewFromFloat(e.Price)
	move := decimal.NewFromFloat(exit).Sub(entry)
	if e.Type == models.Short {
		move = move.Neg()
	}
	risk := decimal.NewFromFloat(e.Risk())
	return s.riskAmount.Mul(move).Div(risk).Round(2).InexactFloat64()
}

// ComputeStats считает статистику по закрытым сделкам; PENDING не учитываются.
// Просадка считается по кумулятивному PnL в порядке времени выхода
func ComputeStats(entries []models.EntrySignal) models.BacktestStats {
	var (
		stats  models.BacktestStats
		closed []models.EntrySignal
	)
	for _, e := range entries {
		switch e.BacktestResult {
		case models.Win:
			stats.Wins++
			closed = append(closed, e)
		case models.Loss:
			stats.Losses++
			closed = append(closed, e)
		default:
			stats.Pending++
		}
	}
	stats.TradeCount = len(closed)
	if len(closed) == 0 {
		return stats
	}

	sort.SliceStable(closed, func(i, j int) bool {
		if closed[i].ExitTime != closed[j].ExitTime {
			return closed[i].ExitTime < closed[j].ExitTime
		}
		return closed[i].Time < closed[j].Time
	})

	var cum, peak, maxDD decimal.Decimal
	for _, e := range closed {
		cum = cum.Add(decimal.NewFromFloat(e.BacktestPnL))
		if cum.GreaterThan(peak) {
			peak = cum
		}
		if dd := peak.Sub(cum); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}

	stats.NetPnL = cum.Round(2).InexactFloat64()
	stats.MaxDrawdown = maxDD.Round(2).InexactFloat64()
	stats.WinRate = float64(stats.Wins) / float64(len(closed)) * 100
	return stats
}
