package models

import "time"

// Поддерживаемые таймфреймы
const (
	Timeframe1m  = "1m"
	Timeframe3m  = "3m"
	Timeframe5m  = "5m"
	Timeframe15m = "15m"
	Timeframe30m = "30m"
	Timeframe1h  = "1h"
	Timeframe4h  = "4h"
	Timeframe1d  = "1d"
)

var timeframeDurations = map[string]time.Duration{
	Timeframe1m:  time.Minute,
	Timeframe3m:  3 * time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe1d:  24 * time.Hour,
}

var higherTimeframes = map[string]string{
	Timeframe1m:  Timeframe15m,
	Timeframe3m:  Timeframe15m,
	Timeframe5m:  Timeframe1h,
	Timeframe15m: Timeframe4h,
	Timeframe30m: Timeframe4h,
	Timeframe1h:  Timeframe4h,
	Timeframe4h:  Timeframe1d,
}

// ValidTimeframe сообщает, поддерживается ли таймфрейм
func ValidTimeframe(tf string) bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// TimeframeSeconds возвращает длительность свечи в секундах (0 для неизвестного таймфрейма)
func TimeframeSeconds(tf string) int64 {
	return int64(timeframeDurations[tf] / time.Second)
}

// HigherTimeframe возвращает старший таймфрейм, с которого берутся зоны.
// Для 1d старшего таймфрейма нет, возвращается пустая строка
func HigherTimeframe(tf string) string {
	return higherTimeframes[tf]
}
