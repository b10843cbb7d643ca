// Package report analyzes capture files offline: counts, inter-annotation
// deltas, and consistency checks for correlating device-reported timing
// against host receive timing.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/openuwb/dwcap/pkg/core"
)

// Summary aggregates one capture file.
type Summary struct {
	Lines       int   // device lines, annotations excluded
	Marked      int   // well-formed annotations
	FirstNanos  int64 // first annotation value
	LastNanos   int64 // last annotation value
	MinDeltaNs  int64 // smallest gap between successive annotations
	MaxDeltaNs  int64
	MeanDeltaNs int64
	Backwards   int // annotations whose value decreased (clock misuse upstream)
	Glued       int // annotation lines with device data fused on (missing EOL upstream)
}

// Analyze reads a capture file and summarizes it. Lines are classified by
// the annotation prefix; everything else counts as device data.
func Analyze(r io.Reader) (Summary, error) {
	var s Summary
	var prev int64
	var haveTS bool
	var deltaSum, deltaCount int64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		ts, ok := core.ParseAnnotation(line)
		if !ok && strings.HasPrefix(line, core.AnnotationPrefix) {
			// The original capture script wrote annotations without a
			// trailing newline, gluing the next device line onto the
			// number. Salvage the leading integer so old files still
			// produce deltas.
			s.Glued++
			salvaged := leadingInt(line)
			ts, ok = core.ParseAnnotation(salvaged)
			if ok && len(line) > len(salvaged) {
				s.Lines++ // the fused device data is still a device line
			}
		}
		if !ok {
			s.Lines++
			continue
		}

		s.Marked++
		if haveTS {
			delta := ts - prev
			if delta < 0 {
				s.Backwards++
			} else {
				deltaSum += delta
				deltaCount++
				if s.MinDeltaNs == 0 || delta < s.MinDeltaNs {
					s.MinDeltaNs = delta
				}
				if delta > s.MaxDeltaNs {
					s.MaxDeltaNs = delta
				}
			}
		} else {
			s.FirstNanos = ts
			haveTS = true
		}
		s.LastNanos = ts
		prev = ts
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("scan capture: %w", err)
	}

	if deltaCount > 0 {
		s.MeanDeltaNs = deltaSum / deltaCount
	}
	return s, nil
}

func leadingInt(line string) string {
	rest := line[len(core.AnnotationPrefix):]
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	return core.AnnotationPrefix + rest[:i]
}

// String renders the summary the way `dwcap stat` prints it.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "device lines:    %d\n", s.Lines)
	fmt.Fprintf(&b, "marked lines:    %d\n", s.Marked)
	if s.Marked > 0 {
		fmt.Fprintf(&b, "span:            %.3f s\n", float64(s.LastNanos-s.FirstNanos)/1e9)
	}
	if s.Marked > 1 {
		fmt.Fprintf(&b, "delta min/mean/max: %d / %d / %d ns\n", s.MinDeltaNs, s.MeanDeltaNs, s.MaxDeltaNs)
	}
	if s.Backwards > 0 {
		fmt.Fprintf(&b, "backwards timestamps: %d\n", s.Backwards)
	}
	if s.Glued > 0 {
		fmt.Fprintf(&b, "glued annotations: %d\n", s.Glued)
	}
	return b.String()
}
