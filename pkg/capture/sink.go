package capture

import (
	"fmt"
	"os"

	"github.com/openuwb/dwcap/pkg/core"
)

// Sink receives framed records in capture order.
type Sink interface {
	// Write persists one record: the line verbatim, then the annotation
	// when the record is marked.
	Write(rec core.Record) error
	Close() error
}

// FileSink writes records straight to a single file. Writes are unbuffered;
// there is deliberately no flushing policy beyond what *os.File provides.
type FileSink struct {
	f    *os.File
	path string
}

// OpenFileSink opens (creating if absent) the capture file. By default the
// file is truncated; appendMode positions writes at the end instead, for
// resumed sessions.
func OpenFileSink(path string, appendMode bool) (*FileSink, error) {
	flags := os.O_CREATE | os.O_RDWR
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &FileSink{f: f, path: path}, nil
}

// Path returns the capture file path.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(rec core.Record) error {
	if _, err := s.f.WriteString(rec.Line); err != nil {
		return err
	}
	if rec.Marked {
		if _, err := s.f.WriteString(core.Annotation(rec.RxNanos)); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the file to durable storage and releases the handle.
func (s *FileSink) Close() error {
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// TeeSink forwards each record to a primary sink and then to a notify
// callback. The primary write happens first so that the file ordering
// invariant never depends on observers.
type TeeSink struct {
	primary Sink
	notify  func(core.Record)
}

// NewTeeSink wraps primary with a post-write callback.
func NewTeeSink(primary Sink, notify func(core.Record)) *TeeSink {
	return &TeeSink{primary: primary, notify: notify}
}

func (t *TeeSink) Write(rec core.Record) error {
	if err := t.primary.Write(rec); err != nil {
		return err
	}
	if t.notify != nil {
		t.notify(rec)
	}
	return nil
}

func (t *TeeSink) Close() error { return t.primary.Close() }
