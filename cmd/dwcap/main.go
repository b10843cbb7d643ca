package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/openuwb/dwcap/internal/buildinfo"
	"github.com/openuwb/dwcap/pkg/capture"
	"github.com/openuwb/dwcap/pkg/core"
	"github.com/openuwb/dwcap/pkg/daemon/service"
	"github.com/openuwb/dwcap/pkg/manifest"
	"github.com/openuwb/dwcap/pkg/report"
	"github.com/openuwb/dwcap/pkg/serialport"
	"github.com/openuwb/dwcap/pkg/transport/uds"
	tuimodel "github.com/openuwb/dwcap/pkg/tui/model"
)

var socketPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dwcap",
	Short: "Timestamped serial capture for Decawave UWB ranging modules",
	Long: "dwcap records newline-delimited output from a Decawave module to a file,\n" +
		"annotating marker lines with a monotonic nanosecond receive timestamp.\n" +
		"Run with no arguments to watch a running dwcapd live.",
	RunE: runTail,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", manifest.DefaultSocket, "daemon socket path")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

func dialDaemon() (*uds.Client, error) {
	client, err := uds.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to dwcapd at %s: %w", socketPath, err)
	}
	return client, nil
}

// --- Capture ---

var (
	captureDevice string
	captureBaud   int
	captureAppend bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <output-file> <marker>",
	Short: "Capture from the serial device in the foreground until interrupted",
	Args:  cobra.ExactArgs(2),
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().StringVar(&captureDevice, "device", serialport.DefaultDevice, "serial device node")
	captureCmd.Flags().IntVar(&captureBaud, "baud", serialport.DefaultBaud, "baud rate")
	captureCmd.Flags().BoolVar(&captureAppend, "append", false, "append to the output file instead of truncating")
}

func runCapture(cmd *cobra.Command, args []string) error {
	outputPath, marker := args[0], args[1]
	if marker == "" {
		return fmt.Errorf("marker must not be empty")
	}

	port, err := serialport.Open(serialport.Config{Device: captureDevice, Baud: captureBaud})
	if err != nil {
		return err
	}

	sink, err := capture.OpenFileSink(outputPath, captureAppend)
	if err != nil {
		port.Close()
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s opened\n", outputPath)
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "closing %s: %v\n", outputPath, cerr)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s closed\n", outputPath)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// Closing the port unblocks the pending read when interrupted.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	loop := capture.NewLoop(port, sink, marker, capture.WithLogger(logger))
	return loop.Run(ctx)
}

// --- Tail (TUI) ---

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Watch a running dwcapd's record stream live",
	RunE:  runTail,
}

func runTail(_ *cobra.Command, _ []string) error {
	app := tuimodel.New(socketPath)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// --- Ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if dwcapd is running",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		resp, err := client.Request(ctx, uds.MethodPing, nil)
		if err != nil {
			return err
		}
		var pong uds.PingResponse
		if err := resp.UnmarshalData(&pong); err != nil {
			return err
		}
		if pong.Pong {
			fmt.Fprintln(cmd.OutOrStdout(), "pong ✓")
		}
		return nil
	},
}

// --- Status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running capture session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dialDaemon()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		resp, err := client.Request(ctx, uds.MethodStatus, nil)
		if err != nil {
			return err
		}
		var st core.Status
		if err := resp.UnmarshalData(&st); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if st.Session != "" {
			fmt.Fprintf(out, "session: %s\n", st.Session)
		}
		fmt.Fprintf(out, "device:  %s @ %d\n", st.Device, st.Baud)
		fmt.Fprintf(out, "marker:  %q\n", st.Marker)
		fmt.Fprintf(out, "output:  %s\n", st.Output)
		fmt.Fprintf(out, "lines:   %d (%d marked)\n", st.Lines, st.Marked)
		fmt.Fprintf(out, "uptime:  %ds\n", st.UptimeSec)
		return nil
	},
}

// --- Stat ---

var statCmd = &cobra.Command{
	Use:   "stat <capture-file>",
	Short: "Summarize a capture file: counts and inter-annotation deltas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		summary, err := report.Analyze(f)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), summary.String())
		return nil
	},
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dwcap.yaml capture manifests",
}

var configInitOutput string

var configInitCmd = &cobra.Command{
	Use:   "init [session-name]",
	Short: "Write a starter manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := "capture"
		if len(args) == 1 {
			session = args[0]
		}
		if _, err := os.Stat(configInitOutput); err == nil {
			return fmt.Errorf("%s already exists", configInitOutput)
		}
		if err := os.WriteFile(configInitOutput, []byte(manifest.Template(session)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configInitOutput)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <manifest>",
	Short: "Check a manifest for errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		errs := manifest.Validate(cfg)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", e)
		}
		return fmt.Errorf("%d validation error(s)", len(errs))
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitOutput, "output", "dwcap.yaml", "manifest path to write")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}

// --- Service ---

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the dwcapd systemd user service",
}

var serviceManifest string

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start dwcapd as a systemd user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Install(serviceManifest); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "dwcapd service installed and started")
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the dwcapd systemd user service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := service.Uninstall(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "dwcapd service removed")
		return nil
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dwcapd service state",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), service.Status(socketPath))
	},
}

func init() {
	serviceInstallCmd.Flags().StringVar(&serviceManifest, "manifest", "dwcap.yaml", "manifest the service should run with")
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dwcap %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}
