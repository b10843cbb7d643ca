// Package serialport opens the Decawave module's serial device node for
// line-oriented capture.
package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Defaults for the DWM1001 dev board on a Raspberry Pi.
const (
	DefaultDevice = "/dev/ttyACM0"
	DefaultBaud   = 115200
)

// Port is what the capture loop needs from a serial connection. Close from
// another goroutine unblocks a pending Read, which is the shutdown path.
type Port interface {
	io.ReadCloser
}

// Config describes the device node to capture from.
type Config struct {
	Device string
	Baud   int
	// ReadTimeout of zero means reads block until data arrives.
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	return c
}

// Open opens the device for blocking reads.
func Open(cfg Config) (Port, error) {
	cfg = cfg.withDefaults()
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return p, nil
}
