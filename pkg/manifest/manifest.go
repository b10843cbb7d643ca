// Package manifest loads and validates dwcap.yaml capture manifests.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents a dwcap.yaml file describing one capture session.
type Config struct {
	Version int    `yaml:"version" json:"version"`
	Session string `yaml:"session" json:"session"`
	Dir     string `yaml:"dir"     json:"dir"`
	Device  string `yaml:"device"  json:"device"`
	Baud    int    `yaml:"baud"    json:"baud"`
	Marker  string `yaml:"marker"  json:"marker"`
	Output  string `yaml:"output"  json:"output"`
	Socket  string `yaml:"socket"  json:"socket"`
	Append  bool   `yaml:"append"  json:"append"`
}

// DefaultSocket is where dwcapd listens when the manifest does not say.
const DefaultSocket = "/tmp/dwcapd.sock"

// Parse decodes a manifest and applies defaults. ${dir} and ${session}
// placeholders in the output and socket paths are interpolated.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if c.Device == "" {
		c.Device = "/dev/ttyACM0"
	}
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.Socket == "" {
		c.Socket = DefaultSocket
	}

	c.Output = interpolate(c.Output, &c)
	c.Socket = interpolate(c.Socket, &c)
	return &c, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

func interpolate(s string, c *Config) string {
	s = strings.ReplaceAll(s, "${dir}", c.Dir)
	s = strings.ReplaceAll(s, "${session}", c.Session)
	return s
}

// Template returns a starter manifest for the given session name, written by
// `dwcap config init`.
func Template(session string) string {
	return fmt.Sprintf(`version: 1
session: %s
dir: .
device: /dev/ttyACM0
baud: 115200
marker: "R"
output: "${dir}/${session}.txt"
socket: /tmp/dwcapd.sock
append: false
`, session)
}
