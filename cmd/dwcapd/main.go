package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openuwb/dwcap/internal/buildinfo"
	"github.com/openuwb/dwcap/pkg/daemon"
	"github.com/openuwb/dwcap/pkg/journallog"
	"github.com/openuwb/dwcap/pkg/manifest"
)

func main() {
	manifestPath := flag.String("manifest", "dwcap.yaml", "capture manifest path")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("dwcapd %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		return
	}

	var handler slog.Handler
	if journallog.Available() {
		handler = journallog.New(slog.LevelInfo)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)

	cfg, err := manifest.Load(*manifestPath)
	if err != nil {
		logger.Error("manifest", "path", *manifestPath, "err", err)
		os.Exit(1)
	}
	if errs := manifest.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("manifest validation", "path", *manifestPath, "err", e)
		}
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting dwcapd", "version", buildinfo.Version, "manifest", *manifestPath)
	d := daemon.New(cfg, logger)
	if err := d.Run(ctx); err != nil {
		logger.Error("capture failed", "err", err)
		os.Exit(1)
	}
}
