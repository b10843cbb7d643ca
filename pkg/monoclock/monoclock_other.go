//go:build !linux

package monoclock

import "time"

var start = time.Now()

// Now returns nanoseconds since process start. time.Since uses Go's
// monotonic reading, so the ordering guarantee still holds; only the
// CLOCK_MONOTONIC_RAW slew exclusion is Linux-specific.
func Now() int64 {
	return time.Since(start).Nanoseconds()
}
