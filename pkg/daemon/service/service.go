// Package service manages the dwcapd systemd user service unit, so captures
// survive logout and start with the session.
package service

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const unitName = "dwcapd.service"

// UnitContents returns the systemd unit file contents for the given binary
// and manifest paths.
func UnitContents(binaryPath, manifestPath string) string {
	return fmt.Sprintf(`[Unit]
Description=Decawave UWB serial capture daemon
Documentation=https://github.com/openuwb/dwcap

[Service]
Type=notify
ExecStart=%s --manifest %s
Restart=no

[Install]
WantedBy=default.target
`, binaryPath, manifestPath)
}

// UnitPath returns the path to the systemd user unit file.
func UnitPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "systemd", "user", unitName), nil
}

// Install writes the unit file, reloads systemd, and enables+starts the
// service pointing at manifestPath.
func Install(manifestPath string) error {
	binaryPath, err := exec.LookPath("dwcapd")
	if err != nil {
		return fmt.Errorf("dwcapd not found in PATH: %w", err)
	}
	binaryPath, err = filepath.Abs(binaryPath)
	if err != nil {
		return fmt.Errorf("cannot resolve dwcapd path: %w", err)
	}
	manifestPath, err = filepath.Abs(manifestPath)
	if err != nil {
		return fmt.Errorf("cannot resolve manifest path: %w", err)
	}

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(UnitContents(binaryPath, manifestPath)), 0o644); err != nil {
		return fmt.Errorf("cannot write unit file: %w", err)
	}

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", unitName)
}

// Uninstall stops+disables the service, removes the unit file, and reloads
// systemd.
func Uninstall() error {
	// Best-effort stop and disable; ignore errors if not running.
	_ = systemctl("stop", unitName)
	_ = systemctl("disable", unitName)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove unit file: %w", err)
	}
	return systemctl("daemon-reload")
}

// Status returns a human-readable status string.
func Status(socketPath string) string {
	var lines []string

	if _, err := os.Stat(socketPath); err == nil {
		lines = append(lines, "socket: active ("+socketPath+")")
	} else {
		lines = append(lines, "socket: inactive ("+socketPath+")")
	}

	unitPath, err := UnitPath()
	if err == nil {
		if _, statErr := os.Stat(unitPath); statErr == nil {
			out, runErr := exec.Command("systemctl", "--user", "is-active", unitName).Output()
			state := strings.TrimSpace(string(out))
			if runErr != nil && state == "" {
				state = "unknown"
			}
			lines = append(lines, "systemd user service: "+state)
		} else {
			lines = append(lines, "systemd user service: not installed")
		}
	}

	return strings.Join(lines, "\n")
}

func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
