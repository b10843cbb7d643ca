package journallog

import (
	"log/slog"
	"testing"
)

func TestFieldName(t *testing.T) {
	cases := map[string]string{
		"device":     "DEVICE",
		"rx-nanos":   "RX_NANOS",
		"_private":   "PRIVATE",
		"9lives":     "LIVES",
		"":           "FIELD",
		"cfg.output": "CFG_OUTPUT",
	}
	for in, want := range cases {
		if got := fieldName("", in); got != want {
			t.Errorf("fieldName(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestFieldNameGroupPrefix(t *testing.T) {
	if got := fieldName("capture_", "lines"); got != "CAPTURE_LINES" {
		t.Errorf("got %q", got)
	}
}

func TestEnabledRespectsLevel(t *testing.T) {
	h := New(slog.LevelWarn)
	if h.Enabled(nil, slog.LevelInfo) {
		t.Error("info should be filtered at warn level")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Error("error should pass at warn level")
	}
}

func TestPriorityMapping(t *testing.T) {
	if priority(slog.LevelError) == priority(slog.LevelDebug) {
		t.Error("levels must map to distinct priorities")
	}
}
