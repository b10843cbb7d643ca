// Package capture implements the timestamped capture loop: it frames a byte
// stream into newline-delimited lines, forwards each line verbatim to a sink,
// and annotates lines that start with a configured marker with a monotonic
// raw receive timestamp.
package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openuwb/dwcap/pkg/core"
	"github.com/openuwb/dwcap/pkg/monoclock"
)

// Clock returns the current monotonic time in nanoseconds.
type Clock func() int64

// Loop bridges a line-oriented byte source and a Sink. Reads block until a
// full line is available; there is no polling. Exactly one goroutine runs
// the loop, which is what guarantees that every annotation lands in the sink
// immediately after the line that triggered it.
type Loop struct {
	reader *bufio.Reader
	sink   Sink
	marker string
	clock  Clock
	logger *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock substitutes the timestamp source. Tests use this; everything
// else should take the default monotonic raw clock.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithLogger sets the loop's logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loop) { l.logger = lg }
}

// NewLoop creates a capture loop reading from src.
//
// The marker comparison runs against the raw framed line, before any EOL
// stripping, so the match is byte-for-byte against what the sink receives.
// An empty marker matches every line.
func NewLoop(src io.Reader, sink Sink, marker string, opts ...Option) *Loop {
	l := &Loop{
		reader: bufio.NewReader(src),
		sink:   sink,
		marker: marker,
		clock:  monoclock.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run forwards lines until the source is exhausted or ctx is cancelled.
//
// The clock is sampled immediately after each read returns, before any
// write. Cancelling ctx does not interrupt a blocked read by itself: the
// caller must also close the source, at which point the resulting read error
// is reported as a clean shutdown. io.EOF is likewise clean (the source
// ended); any other read or sink error is returned.
//
// Bytes buffered without a terminating newline when the source closes are
// dropped, never written: the sink only ever contains complete lines.
func (l *Loop) Run(ctx context.Context) error {
	for {
		line, err := l.reader.ReadString('\n')
		now := l.clock()

		if strings.HasSuffix(line, "\n") {
			rec := core.Record{Line: line, Marked: strings.HasPrefix(line, l.marker)}
			if rec.Marked {
				rec.RxNanos = now
			}
			if werr := l.sink.Write(rec); werr != nil {
				return fmt.Errorf("sink write: %w", werr)
			}
		} else if line != "" {
			l.logger.Debug("dropping unterminated data", "bytes", len(line))
		}

		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
