package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openuwb/dwcap/pkg/core"
)

// memSink records writes in order.
type memSink struct {
	recs   []core.Record
	closed bool
	err    error
}

func (m *memSink) Write(rec core.Record) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

// fakeClock returns 1, 2, 3, ... on successive reads.
func fakeClock() Clock {
	n := int64(0)
	return func() int64 {
		n++
		return n
	}
}

func runLoop(t *testing.T, input, marker string, sink Sink) {
	t.Helper()
	loop := NewLoop(strings.NewReader(input), sink, marker, WithClock(fakeClock()))
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestLoopEndToEndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.txt")
	sink, err := OpenFileSink(path, false)
	if err != nil {
		t.Fatal(err)
	}

	runLoop(t, "R123\nX456\nR789\n", "R", sink)
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "R123\n" +
		"RPI_rx_ts_nanosec:1\n" +
		"X456\n" +
		"R789\n" +
		"RPI_rx_ts_nanosec:2\n"
	if string(data) != want {
		t.Errorf("capture file:\ngot  %q\nwant %q", data, want)
	}
}

func TestLoopForwardsVerbatimInOrder(t *testing.T) {
	sink := &memSink{}
	runLoop(t, "a 1\nb 2\nc 3\n", "zzz", sink)

	if len(sink.recs) != 3 {
		t.Fatalf("got %d records, want 3", len(sink.recs))
	}
	for i, want := range []string{"a 1\n", "b 2\n", "c 3\n"} {
		if sink.recs[i].Line != want {
			t.Errorf("record %d: got %q, want %q", i, sink.recs[i].Line, want)
		}
		if sink.recs[i].Marked {
			t.Errorf("record %d: unexpected mark", i)
		}
	}
}

func TestLoopEmptyMarkerMatchesEveryLine(t *testing.T) {
	sink := &memSink{}
	runLoop(t, "R1\nX2\n\n", "", sink)

	if len(sink.recs) != 3 {
		t.Fatalf("got %d records, want 3", len(sink.recs))
	}
	for i, rec := range sink.recs {
		if !rec.Marked {
			t.Errorf("record %d: want marked", i)
		}
		if rec.RxNanos != int64(i+1) {
			t.Errorf("record %d: timestamp %d, want %d", i, rec.RxNanos, i+1)
		}
	}
}

func TestLoopMarkerIsPrefixNotSubstring(t *testing.T) {
	sink := &memSink{}
	runLoop(t, "xR1\nR2\n", "R", sink)

	if sink.recs[0].Marked {
		t.Error("mid-line occurrence must not match")
	}
	if !sink.recs[1].Marked {
		t.Error("prefix occurrence must match")
	}
}

func TestLoopMatchesBeforeEOLStripping(t *testing.T) {
	// The comparison runs against the raw line, EOL included, so a marker
	// ending in \n only matches a line that is exactly the marker.
	sink := &memSink{}
	runLoop(t, "R\nR1\n", "R\n", sink)

	if !sink.recs[0].Marked {
		t.Error("exact line must match")
	}
	if sink.recs[1].Marked {
		t.Error("longer line must not match a \\n-terminated marker")
	}
}

func TestLoopTimestampsNonDecreasing(t *testing.T) {
	sink := &memSink{}
	loop := NewLoop(strings.NewReader("R1\nR2\nR3\nR4\n"), sink, "R")
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var prev int64
	for i, rec := range sink.recs {
		if rec.RxNanos < prev {
			t.Fatalf("record %d: timestamp %d < %d", i, rec.RxNanos, prev)
		}
		prev = rec.RxNanos
	}
}

func TestLoopDropsUnterminatedTail(t *testing.T) {
	sink := &memSink{}
	runLoop(t, "R1\npartia", "R", sink)

	if len(sink.recs) != 1 {
		t.Fatalf("got %d records, want 1", len(sink.recs))
	}
	if sink.recs[0].Line != "R1\n" {
		t.Errorf("got %q", sink.recs[0].Line)
	}
}

func TestLoopSinkErrorPropagates(t *testing.T) {
	boom := errors.New("disk full")
	sink := &memSink{err: boom}
	loop := NewLoop(strings.NewReader("R1\n"), sink, "R", WithClock(fakeClock()))
	err := loop.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped %v", err, boom)
	}
}

func TestLoopCleanShutdownOnSourceClose(t *testing.T) {
	pr, pw := io.Pipe()
	sink := &memSink{}
	loop := NewLoop(pr, sink, "R", WithClock(fakeClock()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	if _, err := pw.Write([]byte("R1\n")); err != nil {
		t.Fatal(err)
	}

	// Controlled shutdown: cancel, then close the source to unblock the read.
	cancel()
	pw.CloseWithError(errors.New("device gone"))

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	if len(sink.recs) != 1 || sink.recs[0].Line != "R1\n" {
		t.Errorf("records: %+v", sink.recs)
	}
}

func TestLoopReadErrorIsFault(t *testing.T) {
	pr, pw := io.Pipe()
	sink := &memSink{}
	loop := NewLoop(pr, sink, "R", WithClock(fakeClock()))

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	pw.CloseWithError(errors.New("io error"))

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected read fault to propagate")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
