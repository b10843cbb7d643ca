package serialport

import "testing"

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.Device != "/dev/ttyACM0" {
		t.Errorf("device: got %q", c.Device)
	}
	if c.Baud != 115200 {
		t.Errorf("baud: got %d", c.Baud)
	}
	if c.ReadTimeout != 0 {
		t.Errorf("read timeout: got %v, want blocking", c.ReadTimeout)
	}
}

func TestConfigOverrides(t *testing.T) {
	c := Config{Device: "/dev/ttyUSB1", Baud: 9600}.withDefaults()
	if c.Device != "/dev/ttyUSB1" || c.Baud != 9600 {
		t.Errorf("got %+v", c)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open(Config{Device: "/dev/nonexistent-dwcap-test"}); err == nil {
		t.Error("expected error for missing device node")
	}
}
