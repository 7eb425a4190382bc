package tui

import "math"

// Ratio returns how much of [0, upper] value covers, clamped to [0, 1]
func Ratio(value, upper float64) float64 {
	if upper <= 0 || math.IsNaN(value) {
		return 0
	}
	return clampUnit(value / upper)
}

// ValueAt returns the value at ratio along [0, upper].
// Unless step is 1 the value is rounded down to a multiple of step.
func ValueAt(ratio, upper, step float64) float64 {
	if upper <= 0 {
		return 0
	}
	v := upper * clampUnit(ratio)
	if step > 0 && step != 1 {
		v = math.Floor(v/step) * step
	}
	return v
}

// RatioAt maps column x of a track width cells wide to a ratio.
// The first cell is 0 and the last is 1.
func RatioAt(x, width int) float64 {
	if width <= 1 {
		return 0
	}
	return clampUnit(float64(x) / float64(width-1))
}

func clampUnit(r float64) float64 {
	switch {
	case math.IsNaN(r), r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
