// Package session определяет торговые сессии (killzones) по времени UTC.
package session

import "time"

// Killzone торговая сессия
type Killzone string

const (
	None    Killzone = ""
	Asia    Killzone = "Asia"
	London  Killzone = "London"
	NewYork Killzone = "New York"
)

var silverBulletHours = map[int]struct{}{3: {}, 9: {}, 14: {}}

// KillzoneAt возвращает сессию для времени t (секунды Unix)
func KillzoneAt(t int64) Killzone {
	hour := time.Unix(t, 0).UTC().Hour()
	switch {
	case hour < 8:
		return Asia
	case hour < 16:
		return London
	case hour < 21:
		return NewYork
	}
	return None
}

// SilverBullet сообщает, попадает ли t в час silver bullet
func SilverBullet(t int64) bool {
	_, ok := silverBulletHours[time.Unix(t, 0).UTC().Hour()]
	return ok
}

// MacroWindow сообщает, попадает ли t в макро-окно около начала часа
func MacroWindow(t int64) bool {
	minute := time.Unix(t, 0).UTC().Minute()
	return minute >= 50 || minute <= 10
}
