package capture

import (
	"context"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/openuwb/dwcap/pkg/core"
)

// Property: for any stream of newline-terminated lines and any marker, the
// sink receives every line verbatim in order, with exactly one annotation
// immediately after each line that has the marker prefix and none anywhere
// else, and annotation timestamps never decrease.
func TestProperty_ForwardingAndAnnotation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lineGen := rapid.StringMatching(`[ -~]{0,20}`) // printable ASCII, no EOL
		lines := rapid.SliceOfN(lineGen, 0, 50).Draw(rt, "lines")
		marker := rapid.StringMatching(`[ -~]{0,3}`).Draw(rt, "marker")

		var input strings.Builder
		for _, l := range lines {
			input.WriteString(l)
			input.WriteByte('\n')
		}

		sink := &memSink{}
		loop := NewLoop(strings.NewReader(input.String()), sink, marker, WithClock(fakeClock()))
		if err := loop.Run(context.Background()); err != nil {
			rt.Fatalf("run: %v", err)
		}

		if len(sink.recs) != len(lines) {
			rt.Fatalf("got %d records, want %d", len(sink.recs), len(lines))
		}

		var prev int64
		for i, rec := range sink.recs {
			want := lines[i] + "\n"
			if rec.Line != want {
				rt.Fatalf("record %d: got %q, want %q", i, rec.Line, want)
			}
			if rec.Marked != strings.HasPrefix(want, marker) {
				rt.Fatalf("record %d: marked=%v for line %q, marker %q", i, rec.Marked, want, marker)
			}
			if rec.Marked {
				if rec.RxNanos < prev {
					rt.Fatalf("record %d: timestamp %d < %d", i, rec.RxNanos, prev)
				}
				prev = rec.RxNanos
			} else if rec.RxNanos != 0 {
				rt.Fatalf("record %d: unmarked line carries timestamp %d", i, rec.RxNanos)
			}
		}
	})
}

// Property: a rendered capture stream splits back into the input lines with
// annotations interleaved only after marked lines (the capture-file grammar
// report.Analyze relies on).
func TestProperty_CaptureFileGrammar(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		recs := make([]core.Record, n)
		for i := range recs {
			line := rapid.StringMatching(`[0-9A-Za-z ]{0,12}`).Draw(rt, "line")
			marked := rapid.Bool().Draw(rt, "marked")
			recs[i] = core.Record{Line: line + "\n", Marked: marked}
			if marked {
				recs[i].RxNanos = int64(i + 1)
			}
		}

		var out strings.Builder
		for _, rec := range recs {
			out.WriteString(rec.Line)
			if rec.Marked {
				out.WriteString(core.Annotation(rec.RxNanos))
			}
		}

		got := strings.Split(out.String(), "\n")
		got = got[:len(got)-1] // trailing empty element from final \n
		idx := 0
		for _, rec := range recs {
			if got[idx]+"\n" != rec.Line {
				rt.Fatalf("line %d: got %q, want %q", idx, got[idx], rec.Line)
			}
			idx++
			if rec.Marked {
				ts, ok := core.ParseAnnotation(got[idx])
				if !ok || ts != rec.RxNanos {
					rt.Fatalf("annotation after %q: got %q", rec.Line, got[idx])
				}
				idx++
			}
		}
		if idx != len(got) {
			rt.Fatalf("trailing output: %v", got[idx:])
		}
	})
}
