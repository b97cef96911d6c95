package entry

import (
	"github.com/skalibog/ictscan/internal/config"
)

// Баллы конфлюенций
const (
	pointsRetest       = 2
	pointsBreaker      = 1
	pointsHTF          = 2
	pointsFVG          = 1
	pointsContinuation = 2
	pointsReversal     = 1
	pointsKillzone     = 1
	pointsSilverBullet = 1
	pointsPremium      = 1
)

// WinProbability переводит балл в вероятность, ограниченную [0, 100]
func WinProbability(cfg config.EntryConfig, score int) float64 {
	p := cfg.BaseProbability + float64(score)*cfg.ProbabilityPerPoint
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Grade возвращает оценку по таблице (первая строка, чей порог не выше балла).
// Пустая строка означает отсутствие оценки
func Grade(rules []config.GradeRule, score int) string {
	for _, r := range rules {
		if score >= r.MinScore {
			return r.Grade
		}
	}
	return ""
}
