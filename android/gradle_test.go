package android

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProject creates a project skeleton with a Gradle wrapper script.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gradlew"), []byte("#!/bin/sh\n"), 0755))
	return dir
}

// buildingRun fakes a successful bundle build by dropping an .aab into the
// project's output directory.
func buildingRun(t *testing.T, project, buildType string, dir *string, name *string, args *[]string) Runner {
	t.Helper()
	return func(ctx context.Context, cmdDir, cmdName string, cmdArgs ...string) ([]byte, error) {
		*dir = cmdDir
		*name = cmdName
		*args = cmdArgs

		out := filepath.Join(project, "app", "build", "outputs", "bundle", buildType)
		require.NoError(t, os.MkdirAll(out, 0755))
		aab := filepath.Join(out, "app-"+buildType+".aab")
		require.NoError(t, os.WriteFile(aab, []byte("aab"), 0644))
		return nil, nil
	}
}

func TestBuildAAB(t *testing.T) {
	project := newProject(t)

	var dir, name string
	var args []string
	g := NewGradle()
	g.run = buildingRun(t, project, BuildRelease, &dir, &name, &args)

	aab, err := g.BuildAAB(context.Background(), project, BuildRelease, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "app", "build", "outputs", "bundle", "release", "app-release.aab"), aab)
	assert.Equal(t, project, dir)
	assert.Equal(t, filepath.Join(project, "gradlew"), name)
	assert.Equal(t, []string{"bundleRelease"}, args)

	t.Run("empty build type is release", func(t *testing.T) {
		project := newProject(t)
		g := NewGradle()
		g.run = buildingRun(t, project, BuildRelease, &dir, &name, &args)

		_, err := g.BuildAAB(context.Background(), project, "", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"bundleRelease"}, args)
	})

	t.Run("debug build", func(t *testing.T) {
		project := newProject(t)
		g := NewGradle()
		g.run = buildingRun(t, project, BuildDebug, &dir, &name, &args)

		aab, err := g.BuildAAB(context.Background(), project, BuildDebug, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"bundleDebug"}, args)
		assert.Contains(t, aab, filepath.Join("bundle", "debug"))
	})

	t.Run("moves bundle to outPath", func(t *testing.T) {
		project := newProject(t)
		g := NewGradle()
		g.run = buildingRun(t, project, BuildRelease, &dir, &name, &args)

		out := filepath.Join(t.TempDir(), "dist", "app.aab")
		aab, err := g.BuildAAB(context.Background(), project, BuildRelease, out)
		require.NoError(t, err)
		assert.Equal(t, out, aab)

		_, err = os.Stat(out)
		assert.NoError(t, err)
	})

	t.Run("unknown build type", func(t *testing.T) {
		_, err := g.BuildAAB(context.Background(), project, "nightly", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown build type "nightly"`)
	})

	t.Run("missing wrapper", func(t *testing.T) {
		_, err := g.BuildAAB(context.Background(), t.TempDir(), BuildRelease, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gradle wrapper not found")
	})

	t.Run("build produced no bundle", func(t *testing.T) {
		project := newProject(t)
		g := NewGradle()
		g.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			return nil, nil
		}

		_, err := g.BuildAAB(context.Background(), project, BuildRelease, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no .aab produced")
	})
}

func TestClean(t *testing.T) {
	project := newProject(t)

	var dir, name string
	var args []string
	g := NewGradle()
	g.run = func(ctx context.Context, cmdDir, cmdName string, cmdArgs ...string) ([]byte, error) {
		dir, name, args = cmdDir, cmdName, cmdArgs
		return nil, nil
	}

	require.NoError(t, g.Clean(context.Background(), project))
	assert.Equal(t, project, dir)
	assert.Equal(t, filepath.Join(project, "gradlew"), name)
	assert.Equal(t, []string{"clean"}, args)

	t.Run("missing wrapper", func(t *testing.T) {
		err := g.Clean(context.Background(), t.TempDir())
		assert.Error(t, err)
	})
}
