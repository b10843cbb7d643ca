// Package daemon runs one capture session behind a Unix domain socket:
// serial device in, annotated capture file out, with live record events and
// status for observers.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/openuwb/dwcap/pkg/capture"
	"github.com/openuwb/dwcap/pkg/core"
	"github.com/openuwb/dwcap/pkg/manifest"
	"github.com/openuwb/dwcap/pkg/serialport"
	"github.com/openuwb/dwcap/pkg/transport/uds"
)

// Daemon owns the serial source, the capture sink, the loop, and the control
// socket for one session.
type Daemon struct {
	cfg    *manifest.Config
	server *uds.Server
	logger *slog.Logger

	lines   atomic.Uint64
	marked  atomic.Uint64
	started time.Time

	// openPort is swappable so tests can capture from a pipe.
	openPort func(serialport.Config) (serialport.Port, error)
	// notify is sd_notify; a no-op outside systemd either way.
	notify func(state string)
}

// New creates a daemon for the given manifest.
func New(cfg *manifest.Config, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		cfg:      cfg,
		server:   uds.NewServer(cfg.Socket, logger),
		logger:   logger,
		openPort: serialport.Open,
		notify: func(state string) {
			_, _ = sd.SdNotify(false, state)
		},
	}
	d.server.Handle(uds.MethodPing, d.handlePing)
	d.server.Handle(uds.MethodStatus, d.handleStatus)
	return d
}

// Run captures until ctx is cancelled or the session faults. The capture
// file is closed (flushed) on every exit path.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	port, err := d.openPort(serialport.Config{Device: d.cfg.Device, Baud: d.cfg.Baud})
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	// Cancelling ctx closes the port, which unblocks the capture read.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	sink, err := capture.OpenFileSink(d.cfg.Output, d.cfg.Append)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	d.logger.Info("capture file opened", "path", d.cfg.Output)
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			d.logger.Error("closing capture file", "path", d.cfg.Output, "err", cerr)
		} else {
			d.logger.Info("capture file closed", "path", d.cfg.Output)
		}
	}()

	// Status handlers read d.started, so set it before the server accepts.
	d.started = time.Now()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- d.server.Start(ctx)
	}()
	select {
	case serr := <-serveErr:
		if serr == nil || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("control socket: %w", serr)
	case <-d.server.Ready():
	}
	defer d.server.Shutdown()

	// The unit is Type=notify: READY means the control socket is accepting.
	d.notify(sd.SdNotifyReady)
	defer d.notify(sd.SdNotifyStopping)

	d.logger.Info("capturing", "device", d.cfg.Device, "baud", d.cfg.Baud, "marker", d.cfg.Marker)
	tee := capture.NewTeeSink(sink, d.publish)
	loop := capture.NewLoop(port, tee, d.cfg.Marker, capture.WithLogger(d.logger))
	return loop.Run(ctx)
}

// publish counts a record and broadcasts it to connected observers. Runs on
// the capture goroutine, after the file write.
func (d *Daemon) publish(rec core.Record) {
	d.lines.Add(1)
	if rec.Marked {
		d.marked.Add(1)
	}
	evt, err := uds.NewEvent(uds.EventRecord, rec)
	if err != nil {
		d.logger.Error("encode record event", "err", err)
		return
	}
	d.server.Broadcast(evt)
}

func (d *Daemon) handlePing(_ context.Context, _ uds.Message) (any, error) {
	return uds.PingResponse{Pong: true}, nil
}

func (d *Daemon) handleStatus(_ context.Context, _ uds.Message) (any, error) {
	return core.Status{
		Session:   d.cfg.Session,
		Device:    d.cfg.Device,
		Baud:      d.cfg.Baud,
		Marker:    d.cfg.Marker,
		Output:    d.cfg.Output,
		Lines:     d.lines.Load(),
		Marked:    d.marked.Load(),
		UptimeSec: uint64(time.Since(d.started).Seconds()),
	}, nil
}
