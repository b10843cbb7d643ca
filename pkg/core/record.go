package core

import (
	"strconv"
	"strings"
)

// AnnotationPrefix is the literal prefix of a receive-timestamp line in a
// capture file. The integer that follows is nanoseconds on the monotonic raw
// clock, so values are only comparable within a single process run.
const AnnotationPrefix = "RPI_rx_ts_nanosec:"

// Record is one framed line as captured from the device.
type Record struct {
	// Line holds the text exactly as received, trailing EOL included.
	Line string `json:"line"`
	// RxNanos is the monotonic receive timestamp. Set only when Marked.
	RxNanos int64 `json:"rx_ts_nanosec,omitempty"`
	Marked  bool  `json:"marked"`
}

// Annotation renders the timestamp line written after a marked device line.
func Annotation(nanos int64) string {
	return AnnotationPrefix + strconv.FormatInt(nanos, 10) + "\n"
}

// ParseAnnotation extracts the nanosecond value from an annotation line.
// A trailing EOL is tolerated. Returns false for anything else, including
// annotation lines with trailing garbage after the integer.
func ParseAnnotation(line string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), AnnotationPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
