package structure

import "github.com/skalibog/ictscan/pkg/models"

// LatestBreak возвращает последний BOS/CHoCH, известный к моменту t
func LatestBreak(points []models.StructurePoint, t int64) (models.StructurePoint, bool) {
	return latest(points, t, func(p models.StructurePoint) bool { return !p.Type.IsSwing() })
}

// LatestSwing возвращает последний свинг, подтвержденный к моменту t
func LatestSwing(points []models.StructurePoint, t int64) (models.StructurePoint, bool) {
	return latest(points, t, func(p models.StructurePoint) bool { return p.Type.IsSwing() })
}

// BiasAt возвращает преобладающее направление на момент t:
// по последнему слому структуры, иначе по последнему свингу
func BiasAt(points []models.StructurePoint, t int64) (models.Direction, bool) {
	if p, ok := LatestBreak(points, t); ok {
		return p.Direction, true
	}
	if p, ok := LatestSwing(points, t); ok {
		return p.Direction, true
	}
	return "", false
}

// TargetSwing возвращает последний подтвержденный к моменту t свинговый
// максимум выше price (для лонга) или минимум ниже price (для шорта)
func TargetSwing(points []models.StructurePoint, t int64, price float64, dir models.Direction) (models.StructurePoint, bool) {
	return latest(points, t, func(p models.StructurePoint) bool {
		if !p.Type.IsSwing() {
			return false
		}
		if dir == models.Bullish {
			return p.Type.IsHigh() && p.Price > price
		}
		return !p.Type.IsHigh() && p.Price < price
	})
}

func latest(points []models.StructurePoint, t int64, match func(models.StructurePoint) bool) (models.StructurePoint, bool) {
	var (
		best  models.StructurePoint
		found bool
	)
	for _, p := range points {
		if p.ConfirmedAt > t || !match(p) {
			continue
		}
		if !found || p.ConfirmedAt > best.ConfirmedAt || (p.ConfirmedAt == best.ConfirmedAt && p.Time >= best.Time) {
			best, found = p, true
		}
	}
	return best, found
}
