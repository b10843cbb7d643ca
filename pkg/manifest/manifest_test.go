package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseValidManifest(t *testing.T) {
	yaml := `
version: 1
session: lab-bench
dir: /data/uwb
device: /dev/ttyACM1
baud: 115200
marker: "R"
output: "${dir}/${session}.txt"
socket: "/tmp/dwcapd-${session}.sock"
append: true
`
	c, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if c.Version != 1 {
		t.Errorf("version: got %d", c.Version)
	}
	if c.Device != "/dev/ttyACM1" {
		t.Errorf("device: got %q", c.Device)
	}
	if c.Output != "/data/uwb/lab-bench.txt" {
		t.Errorf("output interpolation: got %q", c.Output)
	}
	if c.Socket != "/tmp/dwcapd-lab-bench.sock" {
		t.Errorf("socket interpolation: got %q", c.Socket)
	}
	if !c.Append {
		t.Error("append flag lost")
	}
	if errs := Validate(c); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("version: 1\nmarker: R\noutput: cap.txt\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Device != "/dev/ttyACM0" {
		t.Errorf("device default: got %q", c.Device)
	}
	if c.Baud != 115200 {
		t.Errorf("baud default: got %d", c.Baud)
	}
	if c.Socket != DefaultSocket {
		t.Errorf("socket default: got %q", c.Socket)
	}
}

func TestValidateReportsMissingFields(t *testing.T) {
	c := &Config{Version: 2, Baud: -1}
	errs := Validate(c)
	// version, device, baud, marker, output, socket
	if len(errs) != 6 {
		t.Fatalf("got %d errors: %v", len(errs), errs)
	}
}

func TestValidateVersionMustBe1(t *testing.T) {
	c := &Config{Version: 2, Device: "/dev/ttyACM0", Baud: 115200, Marker: "R", Output: "x.txt", Socket: "/tmp/s.sock"}
	errs := Validate(c)
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "version") {
		t.Errorf("got %v", errs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestTemplateParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dwcap.yaml")
	if err := os.WriteFile(path, []byte(Template("bench")), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if errs := Validate(c); len(errs) != 0 {
		t.Errorf("template does not validate: %v", errs)
	}
	if c.Output != "./bench.txt" {
		t.Errorf("template output: got %q", c.Output)
	}
}
