// Package entry формирует торговые сигналы из реакций цены на ордер-блоки
// и оценивает их по набору конфлюенций.
package entry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/skalibog/ictscan/internal/analysis/session"
	"github.com/skalibog/ictscan/internal/analysis/structure"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

// Generator генерирует сигналы входа
type Generator struct {
	cfg         config.EntryConfig
	swingLength int
}

// NewGenerator создает генератор сигналов
func NewGenerator(cfg config.EntryConfig, swingLength int) *Generator {
	if cfg.PDLookback < 1 {
		cfg.PDLookback = 100
	}
	if cfg.DefaultRiskReward <= 0 {
		cfg.DefaultRiskReward = 2
	}
	return &Generator{cfg: cfg, swingLength: swingLength}
}

// Detect строит структуру серии и возвращает сигналы по зонам
func (g *Generator) Detect(candles []models.Candle, orderBlocks []models.OrderBlock, fvgs []models.FVG, timeframe string) []models.EntrySignal {
	return g.DetectWithStructure(candles, structure.Detect(candles, g.swingLength), orderBlocks, fvgs, timeframe)
}

type zoneState struct {
	zone      models.OrderBlock
	available int64
	known     int64
	armed     bool
	dead      bool
}

// DetectWithStructure как Detect, но с уже посчитанной структурой.
// Сигналы упорядочены по времени, на свечу не более одного сигнала каждой стороны
func (g *Generator) DetectWithStructure(candles []models.Candle, points []models.StructurePoint, orderBlocks []models.OrderBlock, fvgs []models.FVG, timeframe string) []models.EntrySignal {
	signals := []models.EntrySignal{}
	if len(candles) == 0 || len(orderBlocks) == 0 {
		return signals
	}

	native := models.TimeframeSeconds(timeframe)
	states := make([]*zoneState, len(orderBlocks))
	for k, z := range orderBlocks {
		d := native
		if z.Timeframe != "" {
			d = models.TimeframeSeconds(z.Timeframe)
		}
		states[k] = &zoneState{
			zone:      z,
			available: z.ConfirmedAt + d,
			known:     z.MitigatedAt + d,
		}
	}

	for i, c := range candles {
		best := make(map[models.SignalType]models.EntrySignal, 2)

		for _, st := range states {
			if st.dead || c.Time <= st.zone.ConfirmedAt || c.Time < st.available {
				continue
			}
			if st.zone.Mitigated && st.known <= c.Time {
				st.dead = true
				continue
			}

			z := st.zone
			if st.armed && reacts(c, z) {
				st.armed = false
				if bias, ok := structure.BiasAt(points, c.Time); ok && bias == z.Direction {
					sig, ok := g.build(candles, i, points, z, fvgs, timeframe)
					if ok {
						if cur, exists := best[sig.Type]; !exists || sig.Score > cur.Score {
							best[sig.Type] = sig
						}
					}
				}
			}

			if closedThrough(c, z) {
				st.dead = true
				continue
			}
			if !st.armed && beyond(c, z) {
				st.armed = true
			}
		}

		for _, typ := range []models.SignalType{models.Long, models.Short} {
			if sig, ok := best[typ]; ok {
				signals = append(signals, sig)
			}
		}
	}

	sort.SliceStable(signals, func(i, j int) bool { return signals[i].Time < signals[j].Time })
	return signals
}

// beyond: свеча целиком за ближней границей зоны
func beyond(c models.Candle, z models.OrderBlock) bool {
	if z.Direction == models.Bullish {
		return c.Low > z.PriceHigh
	}
	return c.High < z.PriceLow
}

// reacts: свеча зашла в зону и закрылась за ее ближней границей
func reacts(c models.Candle, z models.OrderBlock) bool {
	if z.Direction == models.Bullish {
		return c.Low <= z.PriceHigh && c.Close > z.PriceHigh
	}
	return c.High >= z.PriceLow && c.Close < z.PriceLow
}

// closedThrough: закрытие за дальней границей зоны
func closedThrough(c models.Candle, z models.OrderBlock) bool {
	if z.Direction == models.Bullish {
		return c.Close < z.PriceLow
	}
	return c.Close > z.PriceHigh
}

func (g *Generator) build(candles []models.Candle, i int, points []models.StructurePoint, z models.OrderBlock, fvgs []models.FVG, timeframe string) (models.EntrySignal, bool) {
	c := candles[i]
	typ := models.SignalTypeFor(z.Direction)
	entry := c.Close
	buffer := (z.PriceHigh - z.PriceLow) * g.cfg.SLBufferRatio

	var sl, risk float64
	if typ == models.Long {
		sl = z.PriceLow - buffer
		risk = entry - sl
	} else {
		sl = z.PriceHigh + buffer
		risk = sl - entry
	}
	if risk <= 0 {
		return models.EntrySignal{}, false
	}

	var (
		score       int
		confluences []string
	)
	add := func(pts int, name string) {
		score += pts
		confluences = append(confluences, name)
	}

	add(pointsRetest, "Order Block Retest")
	if z.Subtype == models.Breaker {
		add(pointsBreaker, "Breaker Block")
	}
	htf := z.Timeframe != "" && z.Timeframe != timeframe
	if htf {
		add(pointsHTF, "HTF Zone ("+z.Timeframe+")")
	}
	if hasFVG(fvgs, z, c.Time, timeframe) {
		add(pointsFVG, "FVG Confluence")
	}

	var flow string
	if brk, ok := structure.LatestBreak(points, c.Time); ok && brk.Direction == z.Direction {
		if brk.Type == models.BOS {
			flow = "Continuation"
			add(pointsContinuation, "BOS Continuation")
		} else {
			flow = "Reversal"
			add(pointsReversal, "CHoCH Reversal")
		}
	}

	switch kz := session.KillzoneAt(c.Time); kz {
	case session.London, session.NewYork:
		add(pointsKillzone, string(kz)+" Killzone")
	}
	if session.SilverBullet(c.Time) {
		add(pointsSilverBullet, "Silver Bullet")
	}

	mid := g.equilibrium(candles, i)
	if typ == models.Long && entry < mid {
		add(pointsPremium, "Discount Zone")
	}
	if typ == models.Short && entry > mid {
		add(pointsPremium, "Premium Zone")
	}

	tp, target := g.target(points, c.Time, entry, risk, z.Direction)
	confluences = append(confluences, target)

	return models.EntrySignal{
		Time:           c.Time,
		Type:           typ,
		Price:          entry,
		SL:             sl,
		TP:             tp,
		Score:          score,
		WinProbability: WinProbability(g.cfg, score),
		SetupGrade:     Grade(g.cfg.Grades, score),
		SetupName:      setupName(z, htf, flow),
		Confluences:    confluences,
		BacktestResult: models.Pending,
	}, true
}

// target возвращает тейк: ближайший по времени свинг за ценой входа, если он
// дает достаточный R:R, иначе фиксированный множитель риска
func (g *Generator) target(points []models.StructurePoint, t int64, entry, risk float64, dir models.Direction) (float64, string) {
	if swing, ok := structure.TargetSwing(points, t, entry, dir); ok {
		reward := swing.Price - entry
		if dir == models.Bearish {
			reward = entry - swing.Price
		}
		if reward >= g.cfg.MinRiskReward*risk {
			return swing.Price, "Target: Swing " + strconv.FormatFloat(swing.Price, 'f', -1, 64)
		}
	}
	rr := g.cfg.DefaultRiskReward
	if dir == models.Bullish {
		return entry + rr*risk, fmt.Sprintf("Target: %gR", rr)
	}
	return entry - rr*risk, fmt.Sprintf("Target: %gR", rr)
}

// equilibrium середина диапазона последних PDLookback свечей до индекса i включительно
func (g *Generator) equilibrium(candles []models.Candle, i int) float64 {
	from := max(0, i-g.cfg.PDLookback+1)
	high, low := candles[from].High, candles[from].Low
	for _, c := range candles[from+1 : i+1] {
		high = max(high, c.High)
		low = min(low, c.Low)
	}
	return (high + low) / 2
}

func hasFVG(fvgs []models.FVG, z models.OrderBlock, t int64, timeframe string) bool {
	native := models.TimeframeSeconds(timeframe)
	for _, f := range fvgs {
		if f.Direction != z.Direction {
			continue
		}
		d := native
		if f.Timeframe != "" {
			d = models.TimeframeSeconds(f.Timeframe)
		}
		if t <= f.ConfirmedAt || t < f.ConfirmedAt+d {
			continue
		}
		if f.PriceLow <= z.PriceHigh && z.PriceLow <= f.PriceHigh {
			return true
		}
	}
	return false
}

func setupName(z models.OrderBlock, htf bool, flow string) string {
	var b strings.Builder
	if htf {
		b.WriteString("HTF ")
	}
	if z.Subtype == models.Breaker {
		b.WriteString("Breaker Retest")
	} else {
		b.WriteString("Order Block Retest")
	}
	if flow != "" {
		b.WriteString(" (" + flow + ")")
	}
	return b.String()
}
