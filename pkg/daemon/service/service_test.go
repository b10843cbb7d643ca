package service

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestUnitContents(t *testing.T) {
	unit := UnitContents("/usr/local/bin/dwcapd", "/etc/dwcap/dwcap.yaml")
	for _, want := range []string{
		"ExecStart=/usr/local/bin/dwcapd --manifest /etc/dwcap/dwcap.yaml",
		"Type=notify",
		"Description=Decawave UWB serial capture daemon",
		"WantedBy=default.target",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q:\n%s", want, unit)
		}
	}
	// No retry logic: the unit must not restart a faulted capture.
	if !strings.Contains(unit, "Restart=no") {
		t.Errorf("unit should not restart:\n%s", unit)
	}
}

func TestUnitPath(t *testing.T) {
	p, err := UnitPath()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	if filepath.Base(p) != "dwcapd.service" {
		t.Errorf("got %q", p)
	}
}

func TestStatusInactiveSocket(t *testing.T) {
	out := Status(filepath.Join(t.TempDir(), "absent.sock"))
	if !strings.Contains(out, "socket: inactive") {
		t.Errorf("got %q", out)
	}
}
