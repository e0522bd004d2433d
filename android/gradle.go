package android

// Gradle build specific functionality.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// Supported app bundle build types.
const (
	BuildRelease = "release"
	BuildDebug   = "debug"
)

// Gradle drives a project through its checked-in Gradle wrapper.
type Gradle struct {
	run Runner
}

// NewGradle creates a Gradle wrapper driver.
func NewGradle() *Gradle {
	return &Gradle{run: runCommand}
}

// BuildAAB builds an Android App Bundle and returns its path. An empty
// buildType falls back to release. A non-empty outPath is where the bundle
// is moved after the build.
func (g *Gradle) BuildAAB(ctx context.Context, projectDir, buildType, outPath string) (string, error) {
	switch buildType {
	case BuildRelease, BuildDebug:
	case "":
		buildType = BuildRelease
	default:
		return "", fmt.Errorf("unknown build type %q", buildType)
	}

	wrapper, err := wrapperPath(projectDir)
	if err != nil {
		return "", err
	}

	task := "bundleRelease"
	if buildType == BuildDebug {
		task = "bundleDebug"
	}
	if _, err := g.run(ctx, projectDir, wrapper, task); err != nil {
		return "", fmt.Errorf("bundle build failed: %v", err)
	}

	bundleDir := filepath.Join(projectDir, "app", "build", "outputs", "bundle", buildType)
	matches, err := filepath.Glob(filepath.Join(bundleDir, "*.aab"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no .aab produced under %q", bundleDir)
	}
	aab := matches[0]

	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %v", err)
		}
		if err := os.Rename(aab, outPath); err != nil {
			return "", fmt.Errorf("failed to move %q: %v", aab, err)
		}
		aab = outPath
	}

	applog.Info(applog.Fields{
		"project": projectDir,
		"type":    buildType,
		"aab":     aab,
	}, "app bundle built")

	return aab, nil
}

// Clean removes a project's build outputs via the Gradle wrapper.
func (g *Gradle) Clean(ctx context.Context, projectDir string) error {
	wrapper, err := wrapperPath(projectDir)
	if err != nil {
		return err
	}
	if _, err := g.run(ctx, projectDir, wrapper, "clean"); err != nil {
		return fmt.Errorf("clean failed: %v", err)
	}
	return nil
}

// wrapperPath locates a project's Gradle wrapper script and makes sure it is
// executable.
func wrapperPath(projectDir string) (string, error) {
	name := "gradlew"
	if runtime.GOOS == "windows" {
		name = "gradlew.bat"
	}
	wrapper := filepath.Join(projectDir, name)
	if _, err := os.Stat(wrapper); err != nil {
		return "", fmt.Errorf("gradle wrapper not found in %q", projectDir)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(wrapper, 0755); err != nil {
			return "", fmt.Errorf("failed to make %q executable: %v", wrapper, err)
		}
	}
	return wrapper, nil
}
