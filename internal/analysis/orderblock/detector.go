// Package orderblock находит ордер-блоки: последнюю противоположную свечу
// перед импульсом и отслеживает их отработку.
package orderblock

import (
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

// Detector ищет ордер-блоки по импульсным свечам
type Detector struct {
	avgRangePeriod int
	originLookback int
	minBodyRatio   float64
}

// NewDetector создает детектор ордер-блоков
func NewDetector(cfg config.OrderBlockConfig) *Detector {
	d := &Detector{
		avgRangePeriod: cfg.AvgRangePeriod,
		originLookback: cfg.OriginLookback,
		minBodyRatio:   cfg.MinBodyRatio,
	}
	if d.avgRangePeriod < 1 {
		d.avgRangePeriod = 14
	}
	if d.originLookback < 1 {
		d.originLookback = 5
	}
	return d
}

// Detect возвращает ордер-блоки серии. Импульсом считается свеча с телом больше
// threshold средних диапазонов (ATR), долей тела в диапазоне не ниже minBodyRatio
// и продолжением следующей свечой.
// Поле Mitigated не заполняется, для этого есть Mitigate
func (d *Detector) Detect(candles []models.Candle, threshold float64) []models.OrderBlock {
	zones := []models.OrderBlock{}
	n := len(candles)
	if threshold <= 0 || n < d.avgRangePeriod+3 {
		return zones
	}

	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, c := range candles {
		high[i], low[i], closes[i] = c.High, c.Low, c.Close
	}
	atr := talib.Atr(high, low, closes, d.avgRangePeriod)

	var (
		failedAt []int
		seen     = make(map[int]struct{})
	)

	for i := d.avgRangePeriod + 1; i < n-1; i++ {
		avg := atr[i-1]
		c := candles[i]
		if avg <= 0 || c.Range() <= 0 || c.Body() <= threshold*avg {
			continue
		}
		if c.Body()/c.Range() < d.minBodyRatio {
			continue
		}

		next := candles[i+1]
		var dir models.Direction
		switch {
		case c.Bullish() && next.Close > c.Close:
			dir = models.Bullish
		case c.Bearish() && next.Close < c.Close:
			dir = models.Bearish
		default:
			continue
		}

		origin := d.findOrigin(candles, i, dir)
		if origin < 0 {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}

		o := candles[origin]
		zone := models.OrderBlock{
			Time:        o.Time,
			PriceHigh:   o.High,
			PriceLow:    o.Low,
			Direction:   dir,
			Subtype:     models.Standard,
			ConfirmedAt: next.Time,
		}

		for k, prev := range zones {
			if prev.Direction == dir || failedAt[k] < 0 || failedAt[k] > i+1 {
				continue
			}
			if overlaps(prev.PriceLow, prev.PriceHigh, zone.PriceLow, zone.PriceHigh) {
				zone.Subtype = models.Breaker
				break
			}
		}

		zones = append(zones, zone)
		failedAt = append(failedAt, mitigationIndex(candles, zone, origin+1))
	}

	sort.SliceStable(zones, func(i, j int) bool { return zones[i].Time < zones[j].Time })
	return zones
}

// findOrigin возвращает индекс последней свечи противоположного цвета
// в пределах originLookback перед импульсом, либо -1
func (d *Detector) findOrigin(candles []models.Candle, i int, dir models.Direction) int {
	for j := i - 1; j >= 0 && j >= i-d.originLookback; j-- {
		if dir == models.Bullish && candles[j].Bearish() {
			return j
		}
		if dir == models.Bearish && candles[j].Bullish() {
			return j
		}
	}
	return -1
}

// mitigationIndex возвращает индекс первой свечи начиная с from, закрывшейся
// за дальней границей зоны, либо -1
func mitigationIndex(candles []models.Candle, zone models.OrderBlock, from int) int {
	for k := from; k < len(candles); k++ {
		c := candles[k]
		if zone.Direction == models.Bullish && c.Close < zone.PriceLow {
			return k
		}
		if zone.Direction == models.Bearish && c.Close > zone.PriceHigh {
			return k
		}
	}
	return -1
}

func overlaps(aLow, aHigh, bLow, bHigh float64) bool {
	return aLow <= bHigh && bLow <= aHigh
}

// Mitigate возвращает копии зон с отметкой отработки: первая свеча после
// якоря, закрывшаяся за дальней границей. Отработанная зона не возвращается
// в исходное состояние
func Mitigate(candles []models.Candle, zones []models.OrderBlock) []models.OrderBlock {
	out := make([]models.OrderBlock, len(zones))
	copy(out, zones)

	for i := range out {
		if out[i].Mitigated {
			continue
		}
		start := sort.Search(len(candles), func(k int) bool { return candles[k].Time > out[i].Time })
		if k := mitigationIndex(candles, out[i], start); k >= 0 {
			out[i].Mitigated = true
			out[i].MitigatedAt = candles[k].Time
		}
	}
	return out
}

// Tag возвращает копии зон с указанием таймфрейма происхождения
func Tag(zones []models.OrderBlock, timeframe string) []models.OrderBlock {
	out := make([]models.OrderBlock, len(zones))
	for i, z := range zones {
		z.Timeframe = timeframe
		out[i] = z
	}
	return out
}

// Active возвращает неотработанные зоны
func Active(zones []models.OrderBlock) []models.OrderBlock {
	out := []models.OrderBlock{}
	for _, z := range zones {
		if !z.Mitigated {
			out = append(out, z)
		}
	}
	return out
}
