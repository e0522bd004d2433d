// Package android wraps the adb and Gradle command-line tools for device
// management and app bundle builds.
package android

// adb specific functionality.

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// Runner executes an external command in dir and returns its combined
// output. An empty dir runs in the current directory.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %v: %s", name, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// Device is one entry of the adb device list.
type Device struct {
	ID          string
	State       string
	Description string
}

// ADB wraps the adb binary at Path.
type ADB struct {
	Path string
	run  Runner
}

// NewADB creates an adb wrapper. An empty path falls back to "adb" on PATH.
func NewADB(path string) *ADB {
	if path == "" {
		path = "adb"
	}
	return &ADB{Path: path, run: runCommand}
}

// ConnectWiFi connects to a device over the network and returns the adb
// status line. An empty port falls back to 5555. adb connect exits with
// status 0 even when the connection fails, so the output decides.
func (a *ADB) ConnectWiFi(ctx context.Context, ip, port string) (string, error) {
	if port == "" {
		port = "5555"
	}
	addr := net.JoinHostPort(ip, port)

	out, err := a.run(ctx, "", a.Path, "connect", addr)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(out))
	if !strings.Contains(msg, "connected") {
		return "", fmt.Errorf("connect to %s failed: %s", addr, msg)
	}

	applog.Info(applog.Fields{"addr": addr}, "adb device connected")
	return msg, nil
}

// Devices lists the devices known to adb with their state and description.
func (a *ADB) Devices(ctx context.Context) ([]Device, error) {
	out, err := a.run(ctx, "", a.Path, "devices", "-l")
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 0 {
		lines = lines[1:] // drop the "List of devices attached" header
	}

	var devices []Device
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{
			ID:          fields[0],
			State:       fields[1],
			Description: strings.Join(fields[2:], " "),
		})
	}
	return devices, nil
}

// Disconnect removes a device from adb and returns the adb status line.
func (a *ADB) Disconnect(ctx context.Context, deviceID string) (string, error) {
	out, err := a.run(ctx, "", a.Path, "disconnect", deviceID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Uninstall removes an app by package name. A non-empty deviceID narrows the
// target when several devices are attached. adb uninstall reports failure
// with exit status 0, so the output decides.
func (a *ADB) Uninstall(ctx context.Context, pkg, deviceID string) error {
	var args []string
	if deviceID != "" {
		args = append(args, "-s", deviceID)
	}
	args = append(args, "uninstall", pkg)

	out, err := a.run(ctx, "", a.Path, args...)
	if err != nil {
		return err
	}
	if !strings.Contains(string(out), "Success") {
		return fmt.Errorf("uninstall of %q failed: %s", pkg, strings.TrimSpace(string(out)))
	}

	applog.Info(applog.Fields{"package": pkg, "device": deviceID}, "app uninstalled")
	return nil
}
