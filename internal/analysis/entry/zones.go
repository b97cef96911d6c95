package entry

import "slices"

// SelectZones выбирает источник зон для таймфрейма: на младших таймфреймах
// используются зоны старшего, а если их нет, собственные
func SelectZones[T any](timeframe string, native, htf []T, lowTimeframes []string) []T {
	src := native
	if IsLowTimeframe(timeframe, lowTimeframes) && len(htf) > 0 {
		src = htf
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

// IsLowTimeframe сообщает, входит ли таймфрейм в список младших
func IsLowTimeframe(timeframe string, lowTimeframes []string) bool {
	return slices.Contains(lowTimeframes, timeframe)
}
