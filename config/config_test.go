package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ROBOFLOW_API_KEY", "")
	t.Setenv("ROBOFLOW_WORKSPACE", "")
	t.Setenv("HF_TOKEN", "")
}

func TestLoadDefaults(t *testing.T) {
	clearSecrets(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.roboflow.com", cfg.Roboflow.BaseURL)
	assert.Equal(t, "https://huggingface.co", cfg.HuggingFace.BaseURL)
	assert.Equal(t, "ffmpeg", cfg.Tools.FFmpeg)
	assert.Equal(t, "adb", cfg.Tools.ADB)
	assert.Equal(t, "127.0.0.1:8941", cfg.ReqLog.ListenAddr)
	assert.NotEmpty(t, cfg.LogDir)
	assert.Empty(t, cfg.Roboflow.APIKey)

	// Load("") creates the per-user config directory.
	home := os.Getenv("HOME")
	info, err := os.Stat(filepath.Join(home, ".termi_tool"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadFile(t *testing.T) {
	clearSecrets(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_dir: /var/log/termitool
roboflow:
  base_url: https://api.roboflow.com
  workspace: acme
tools:
  ffmpeg: /opt/ffmpeg/bin/ffmpeg
request_logger:
  listen_addr: 0.0.0.0:9000
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/log/termitool", cfg.LogDir)
	assert.Equal(t, "acme", cfg.Roboflow.Workspace)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Tools.FFmpeg)
	assert.Equal(t, "0.0.0.0:9000", cfg.ReqLog.ListenAddr)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "ffprobe", cfg.Tools.FFprobe)
	assert.Equal(t, "https://huggingface.co", cfg.HuggingFace.BaseURL)
}

func TestLoadEnvSecrets(t *testing.T) {
	t.Setenv("ROBOFLOW_API_KEY", "rf_key")
	t.Setenv("ROBOFLOW_WORKSPACE", "env-space")
	t.Setenv("HF_TOKEN", "hf_tok")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roboflow:\n  workspace: file-space\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rf_key", cfg.Roboflow.APIKey)
	assert.Equal(t, "hf_tok", cfg.HuggingFace.Token)
	// The environment wins over the file.
	assert.Equal(t, "env-space", cfg.Roboflow.Workspace)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	clearSecrets(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.roboflow.com", cfg.Roboflow.BaseURL)
}

func TestLoadMalformedFile(t *testing.T) {
	clearSecrets(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools: ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse config file")
}

func TestLoadValidation(t *testing.T) {
	clearSecrets(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roboflow:\n  base_url: not a url\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestDefaultLogDirUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	assert.Equal(t, filepath.Join(home, ".termi_tool", "logs"), cfg.LogDir)
}
