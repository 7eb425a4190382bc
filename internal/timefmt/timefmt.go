// Package timefmt renders playback positions as the player's clock labels.
package timefmt

import (
	"fmt"
	"math"
)

// Fraction splits whole seconds into hours, minutes within the hour and seconds
func Fraction(s int) (hours, minutes, seconds int) {
	return s / 3600, (s % 3600) / 60, (s % 3600) % 60
}

// FormatElapsed renders the forward label, e.g. "1:05".
// The hour is folded into the minutes: 3661s renders as "61:01".
func FormatElapsed(seconds float64) string {
	return clock(wholeSeconds(seconds))
}

// FormatRemaining renders the backward label, total minus seconds, never below "0:00"
func FormatRemaining(seconds, total float64) string {
	return clock(wholeSeconds(total - seconds))
}

func clock(s int) string {
	hours, minutes, secs := Fraction(s)
	return fmt.Sprintf("%01d:%02d", hours*60+minutes, secs)
}

// wholeSeconds floors s and clamps it at zero
func wholeSeconds(s float64) int {
	if math.IsNaN(s) || s <= 0 {
		return 0
	}
	if s >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(s))
}
