// Package journallog adapts log/slog to the systemd journal, for dwcapd
// runs supervised by systemd. Records become journal entries with slog
// attributes as journal fields.
package journallog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// Available reports whether the journal socket is usable.
func Available() bool {
	return journal.Enabled()
}

// Handler is a slog.Handler writing to the systemd journal. Groups are
// flattened into field-name prefixes.
type Handler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// New creates a journal handler filtering below level.
func New(level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{level: level}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	vars := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		vars[fieldName(h.prefix, a.Key)] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		vars[fieldName(h.prefix, a.Key)] = a.Value.String()
		return true
	})
	return journal.Send(r.Message, priority(r.Level), vars)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.prefix = h.prefix + name + "_"
	return &nh
}

func priority(l slog.Level) journal.Priority {
	switch {
	case l >= slog.LevelError:
		return journal.PriErr
	case l >= slog.LevelWarn:
		return journal.PriWarning
	case l >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// fieldName maps an attr key to a valid journal field: uppercase, [A-Z0-9_],
// not starting with a digit or underscore.
func fieldName(prefix, key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(prefix + key) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_0123456789")
	if name == "" {
		name = "FIELD"
	}
	return name
}
