// Package fvg находит разрывы справедливой стоимости на тройках свечей.
package fvg

import "github.com/skalibog/ictscan/pkg/models"

// Detect возвращает разрывы серии. Разрыв привязан к средней свече тройки
// и становится известен на закрытии третьей
func Detect(candles []models.Candle) []models.FVG {
	gaps := []models.FVG{}
	for i := 1; i+1 < len(candles); i++ {
		prev, mid, next := candles[i-1], candles[i], candles[i+1]

		switch {
		case prev.High < next.Low:
			gaps = append(gaps, models.FVG{
				Time:        mid.Time,
				PriceHigh:   next.Low,
				PriceLow:    prev.High,
				Direction:   models.Bullish,
				ConfirmedAt: next.Time,
			})
		case prev.Low > next.High:
			gaps = append(gaps, models.FVG{
				Time:        mid.Time,
				PriceHigh:   prev.Low,
				PriceLow:    next.High,
				Direction:   models.Bearish,
				ConfirmedAt: next.Time,
			})
		}
	}
	return gaps
}

// Tag возвращает копии разрывов с указанием таймфрейма происхождения
func Tag(gaps []models.FVG, timeframe string) []models.FVG {
	out := make([]models.FVG, len(gaps))
	for i, g := range gaps {
		g.Timeframe = timeframe
		out[i] = g
	}
	return out
}
