// Package devtools installs common developer tooling through the platform
// package manager and removes installed applications.
package devtools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %v: %s", name, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// catalog maps tool name to the install command per GOOS.
var catalog = map[string]map[string][]string{
	"git": {
		"windows": {"winget", "install", "--id", "Git.Git", "-e"},
		"linux":   {"sudo", "apt-get", "install", "-y", "git"},
		"darwin":  {"brew", "install", "git"},
	},
	"vscode": {
		"windows": {"winget", "install", "--id", "Microsoft.VisualStudioCode", "-e"},
		"linux":   {"sudo", "snap", "install", "code", "--classic"},
		"darwin":  {"brew", "install", "--cask", "visual-studio-code"},
	},
	"node": {
		"windows": {"winget", "install", "--id", "OpenJS.NodeJS", "-e"},
		"linux":   {"sudo", "apt-get", "install", "-y", "nodejs", "npm"},
		"darwin":  {"brew", "install", "node"},
	},
	"python": {
		"windows": {"winget", "install", "--id", "Python.Python.3.11", "-e"},
		"linux":   {"sudo", "apt-get", "install", "-y", "python3", "python3-pip"},
		"darwin":  {"brew", "install", "python"},
	},
	"docker": {
		"windows": {"winget", "install", "--id", "Docker.DockerDesktop", "-e"},
		"linux":   {"sudo", "apt-get", "install", "-y", "docker.io", "docker-compose"},
		"darwin":  {"brew", "install", "--cask", "docker"},
	},
}

// Tools returns the supported tool names, sorted.
func Tools() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result reports the outcome of one tool installation.
type Result struct {
	Tool string
	Err  error
}

// Manager resolves tools to package manager commands for one OS.
type Manager struct {
	goos string
	run  Runner
}

// NewManager creates a manager for the current OS.
func NewManager() *Manager {
	return &Manager{goos: runtime.GOOS, run: runCommand}
}

// PackageManager names the package manager of the manager's OS.
func (m *Manager) PackageManager() (string, error) {
	switch m.goos {
	case "windows":
		return "winget", nil
	case "linux":
		return "apt-get", nil
	case "darwin":
		return "brew", nil
	}
	return "", fmt.Errorf("no package manager known for %s", m.goos)
}

// CheckPackageManager verifies the platform package manager responds.
func (m *Manager) CheckPackageManager(ctx context.Context) error {
	pm, err := m.PackageManager()
	if err != nil {
		return err
	}
	if _, err := m.run(ctx, pm, "--version"); err != nil {
		return fmt.Errorf("%s is not available: %v", pm, err)
	}
	return nil
}

// Install installs the named tools one by one and reports each outcome.
func (m *Manager) Install(ctx context.Context, tools ...string) []Result {
	results := make([]Result, 0, len(tools))
	for _, tool := range tools {
		results = append(results, Result{Tool: tool, Err: m.installOne(ctx, tool)})
	}
	return results
}

func (m *Manager) installOne(ctx context.Context, tool string) error {
	platforms, ok := catalog[tool]
	if !ok {
		return fmt.Errorf("unsupported tool %q", tool)
	}
	cmd, ok := platforms[m.goos]
	if !ok {
		return fmt.Errorf("%q is not supported on %s", tool, m.goos)
	}

	if _, err := m.run(ctx, cmd[0], cmd[1:]...); err != nil {
		return err
	}

	applog.Info(applog.Fields{"tool": tool, "goos": m.goos}, "dev tool installed")
	return nil
}

// UninstallApp removes an installed application through the platform
// package manager.
func (m *Manager) UninstallApp(ctx context.Context, name string) error {
	var cmd []string
	switch m.goos {
	case "windows":
		cmd = []string{"wmic", "product", "where", fmt.Sprintf("name='%s'", name), "call", "uninstall", "/nointeractive"}
	case "linux":
		cmd = []string{"sudo", "apt-get", "remove", "-y", name}
	case "darwin":
		cmd = []string{"brew", "uninstall", name}
	default:
		return fmt.Errorf("uninstall is not supported on %s", m.goos)
	}

	if _, err := m.run(ctx, cmd[0], cmd[1:]...); err != nil {
		return err
	}

	applog.Info(applog.Fields{"app": name}, "application uninstalled")
	return nil
}
