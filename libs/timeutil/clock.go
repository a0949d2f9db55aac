package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Minutes parses a wall-clock string ("HH:mm" or "HH:mm:ss") into the minute
// offset since midnight. Seconds, when present, are ignored. The second return
// value reports whether the input was well formed; callers treat a malformed
// operand as "never matches" rather than an error, since schedule data is
// validated server-side before it reaches comparisons.
func Minutes(clock string) (int, bool) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Within reports whether point falls inside the half-open interval [start, end).
// A booking that ends exactly at the probe time does not occupy it. Any
// malformed operand yields false.
func Within(point, start, end string) bool {
	p, ok := Minutes(point)
	if !ok {
		return false
	}
	s, ok := Minutes(start)
	if !ok {
		return false
	}
	e, ok := Minutes(end)
	if !ok {
		return false
	}
	return s <= p && p < e
}

// FormatMinutes renders a minute offset since midnight as "HH:mm".
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", (mins/60)%24, mins%60)
}
