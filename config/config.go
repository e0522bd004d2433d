// Package config loads the application configuration.
//
// Secrets come from the environment, optionally seeded from a .env file in
// the working directory. Everything else lives in ~/.termi_tool/config.yaml;
// a missing file yields the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	LogDir string `yaml:"log_dir" validate:"required"`

	Roboflow    RoboflowConfig `yaml:"roboflow"`
	HuggingFace HFConfig       `yaml:"huggingface"`
	Tools       ToolsConfig    `yaml:"tools"`
	ReqLog      ReqLogConfig   `yaml:"request_logger"`
}

// RoboflowConfig configures the Roboflow API client. The API key is taken
// from the ROBOFLOW_API_KEY environment variable and is never written to the
// config file.
type RoboflowConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	Workspace string `yaml:"workspace"`
	APIKey    string `yaml:"-"`
}

// HFConfig configures the Hugging Face hub client. The access token is taken
// from the HF_TOKEN environment variable.
type HFConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Token   string `yaml:"-"`
}

// ToolsConfig names the external binaries the tool wrappers invoke.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg" validate:"required"`
	FFprobe string `yaml:"ffprobe" validate:"required"`
	ADB     string `yaml:"adb" validate:"required"`
	Git     string `yaml:"git" validate:"required"`
}

// ReqLogConfig configures the HTTP request logger.
type ReqLogConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required,hostname_port"`
}

// Dir returns the per-user configuration directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine the home directory: %v", err)
	}
	dir := filepath.Join(home, ".termi_tool")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory %q: %v", dir, err)
	}
	return dir, nil
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Roboflow: RoboflowConfig{
			BaseURL: "https://api.roboflow.com",
		},
		HuggingFace: HFConfig{
			BaseURL: "https://huggingface.co",
		},
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			ADB:     "adb",
			Git:     "git",
		},
		ReqLog: ReqLogConfig{
			ListenAddr: "127.0.0.1:8941",
		},
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.LogDir = filepath.Join(home, ".termi_tool", "logs")
	} else {
		cfg.LogDir = filepath.Join(os.TempDir(), "termi_tool", "logs")
	}
	return cfg
}

// Load reads the configuration from path. An empty path selects
// ~/.termi_tool/config.yaml. A missing file is not an error; a malformed or
// invalid one is.
//
// Load also loads a .env file from the working directory when present and
// then captures the secret environment variables.
func Load(path string) (Config, error) {
	// Missing .env files are expected; the environment may be set directly.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		dir, err := Dir()
		if err != nil {
			return Config{}, err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return Config{}, fmt.Errorf("cannot read config file %q: %v", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cannot parse config file %q: %v", path, err)
		}
	}

	cfg.Roboflow.APIKey = os.Getenv("ROBOFLOW_API_KEY")
	if ws := os.Getenv("ROBOFLOW_WORKSPACE"); ws != "" {
		cfg.Roboflow.Workspace = ws
	}
	cfg.HuggingFace.Token = os.Getenv("HF_TOKEN")

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %v", err)
	}

	return cfg, nil
}
