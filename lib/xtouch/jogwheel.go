package xtouch

import "time"

const (
	maxJogMultiplier = 20.0
	maxTaps          = 20
)

// JogWheel scales jog ticks by how fast the wheel is spun.
type JogWheel struct {
	last time.Time
}

func (j *JogWheel) Multiplier(now time.Time) float64 {
	dt := now.Sub(j.last).Seconds()
	j.last = now
	if dt <= 0 {
		return maxJogMultiplier
	}
	m := 1 + (1/dt-10)/100
	switch {
	case m < 1:
		return 1
	case m > maxJogMultiplier:
		return maxJogMultiplier
	}
	return m
}
