package models

import (
	"sort"
)

// Candle представляет свечу. Time хранит время открытия в секундах Unix (UTC)
type Candle struct {
	Symbol   string  `json:"symbol,omitempty"`
	Interval string  `json:"interval,omitempty"`
	Time     int64   `json:"time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Valid проверяет инвариант low <= open, close <= high
func (c Candle) Valid() bool {
	if c.High < c.Low {
		return false
	}
	return c.Low <= c.Open && c.Open <= c.High && c.Low <= c.Close && c.Close <= c.High
}

// Bullish сообщает, закрылась ли свеча выше открытия
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish сообщает, закрылась ли свеча ниже открытия
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Body возвращает размер тела свечи
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range возвращает диапазон свечи high-low
func (c Candle) Range() float64 { return c.High - c.Low }

// NormalizeCandles возвращает новую серию, упорядоченную по времени,
// без дубликатов (побеждает последняя свеча) и без некорректных свечей
func NormalizeCandles(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if c.Valid() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time == c.Time {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}
