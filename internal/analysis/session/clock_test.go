package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) int64 {
	return time.Date(2024, 3, 12, hour, minute, 0, 0, time.UTC).Unix()
}

func TestKillzoneAt(t *testing.T) {
	tests := []struct {
		hour     int
		expected Killzone
	}{
		{0, Asia},
		{7, Asia},
		{8, London},
		{15, London},
		{16, NewYork},
		{20, NewYork},
		{21, None},
		{23, None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, KillzoneAt(at(tt.hour, 30)), "hour %d", tt.hour)
	}
}

func TestSilverBullet(t *testing.T) {
	assert.True(t, SilverBullet(at(3, 15)))
	assert.True(t, SilverBullet(at(9, 0)))
	assert.True(t, SilverBullet(at(14, 59)))
	assert.False(t, SilverBullet(at(10, 0)))
}

func TestMacroWindow(t *testing.T) {
	assert.True(t, MacroWindow(at(12, 50)))
	assert.True(t, MacroWindow(at(12, 5)))
	assert.True(t, MacroWindow(at(12, 10)))
	assert.False(t, MacroWindow(at(12, 30)))
}
