// Package structure находит свинги (HH/HL/LH/LL) и слом структуры (BOS/CHoCH).
package structure

import (
	"sort"

	"github.com/skalibog/ictscan/pkg/models"
)

type swing struct {
	idx       int
	confirmed int
	price     float64
	high      bool
}

// Detect возвращает точки структуры серии, упорядоченные по времени.
// Свинг на индексе i подтверждается свечой i+swingLength
func Detect(candles []models.Candle, swingLength int) []models.StructurePoint {
	points := []models.StructurePoint{}
	n := len(candles)
	if swingLength < 1 || n < 2*swingLength+1 {
		return points
	}

	swings := alternate(candles, findPivots(candles, swingLength), swingLength)
	points = append(points, classify(candles, swings)...)
	points = append(points, detectBreaks(candles, swings)...)

	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
	return points
}

type pivot struct {
	idx  int
	high bool
}

// findPivots ищет локальные экстремумы: строго больше левых соседей и не меньше правых
func findPivots(candles []models.Candle, length int) []pivot {
	var pivots []pivot
	for i := length; i < len(candles)-length; i++ {
		isHigh, isLow := true, true
		for j := i - length; j < i && (isHigh || isLow); j++ {
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		for j := i + 1; j <= i+length && (isHigh || isLow); j++ {
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			pivots = append(pivots, pivot{idx: i, high: true})
		}
		if isLow {
			pivots = append(pivots, pivot{idx: i, high: false})
		}
	}
	return pivots
}

// alternate строит чередующуюся последовательность максимумов и минимумов
func alternate(candles []models.Candle, pivots []pivot, length int) []swing {
	var out []swing

	for k := 0; k < len(pivots); k++ {
		// внешний бар: первым идет вид, противоположный последнему свингу
		if k+1 < len(pivots) && pivots[k+1].idx == pivots[k].idx && len(out) > 0 && out[len(out)-1].high == pivots[k].high {
			pivots[k], pivots[k+1] = pivots[k+1], pivots[k]
		}
		p := pivots[k]

		s := swing{idx: p.idx, confirmed: p.idx + length, high: p.high, price: candles[p.idx].Low}
		if p.high {
			s.price = candles[p.idx].High
		}

		if len(out) == 0 || out[len(out)-1].high != s.high {
			out = append(out, s)
			continue
		}

		last := out[len(out)-1]
		if (s.high && s.price <= last.price) || (!s.high && s.price >= last.price) {
			continue
		}
		if between, ok := oppositeExtreme(candles, last.idx, s.idx, s.high); ok {
			between.confirmed = s.confirmed
			out = append(out, between)
		}
		out = append(out, s)
	}
	return out
}

// oppositeExtreme находит самый низкий минимум (или самый высокий максимум)
// строго между двумя однотипными свингами; при равенстве берется более ранний
func oppositeExtreme(candles []models.Candle, from, to int, high bool) (swing, bool) {
	best := -1
	for i := from + 1; i < to; i++ {
		if best < 0 {
			best = i
			continue
		}
		if high && candles[i].Low < candles[best].Low {
			best = i
		}
		if !high && candles[i].High > candles[best].High {
			best = i
		}
	}
	if best < 0 {
		return swing{}, false
	}
	if high {
		return swing{idx: best, price: candles[best].Low, high: false}, true
	}
	return swing{idx: best, price: candles[best].High, high: true}, true
}

func classify(candles []models.Candle, swings []swing) []models.StructurePoint {
	out := make([]models.StructurePoint, 0, len(swings))
	prevHigh, prevLow := candles[0].High, candles[0].Low

	for _, s := range swings {
		var typ models.StructureType
		if s.high {
			typ = models.LowerHigh
			if s.price > prevHigh {
				typ = models.HigherHigh
			}
			prevHigh = s.price
		} else {
			typ = models.HigherLow
			if s.price < prevLow {
				typ = models.LowerLow
			}
			prevLow = s.price
		}

		out = append(out, models.StructurePoint{
			Time:        candles[s.idx].Time,
			Price:       s.price,
			Type:        typ,
			Direction:   swingDirection(typ),
			ConfirmedAt: candles[s.confirmed].Time,
		})
	}
	return out
}

func swingDirection(t models.StructureType) models.Direction {
	if t == models.HigherHigh || t == models.HigherLow {
		return models.Bullish
	}
	return models.Bearish
}

// detectBreaks отмечает закрытия за последним несломанным свингом.
// Первый слом задает тренд и считается BOS, слом против тренда считается CHoCH
func detectBreaks(candles []models.Candle, swings []swing) []models.StructurePoint {
	var (
		out        []models.StructurePoint
		trend      models.Direction
		activeHigh *swing
		activeLow  *swing
		next       int
	)

	for k := range candles {
		for next < len(swings) && swings[next].confirmed < k {
			s := swings[next]
			if s.high {
				activeHigh = &s
			} else {
				activeLow = &s
			}
			next++
		}

		c := candles[k]
		if activeHigh != nil && c.Close > activeHigh.price {
			out = append(out, breakPoint(c, activeHigh.price, models.Bullish, trend))
			trend = models.Bullish
			activeHigh = nil
		}
		if activeLow != nil && c.Close < activeLow.price {
			out = append(out, breakPoint(c, activeLow.price, models.Bearish, trend))
			trend = models.Bearish
			activeLow = nil
		}
	}
	return out
}

func breakPoint(c models.Candle, level float64, dir, trend models.Direction) models.StructurePoint {
	typ := models.BOS
	if trend != "" && trend != dir {
		typ = models.CHoCH
	}
	return models.StructurePoint{
		Time:        c.Time,
		Price:       level,
		Type:        typ,
		Direction:   dir,
		ConfirmedAt: c.Time,
	}
}
