// Package config loads the optional .whitelabel.yaml file and resolves the
// paths the server and CLI work with.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root.
const FileName = ".whitelabel.yaml"

// Defaults. Relative paths are resolved against the project root.
const (
	DefaultAddr      = "127.0.0.1:3000"
	DefaultScript    = "../whitelabel.sh"
	DefaultShell     = "bash"
	DefaultEnvFile   = "../.env"
	DefaultIconDir   = "../assets/icon"
	DefaultHistory   = 20
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// Environment variables that override the file.
const (
	EnvAddr    = "WHITELABEL_ADDR"
	EnvScript  = "WHITELABEL_SCRIPT"
	EnvEnvFile = "WHITELABEL_ENV_FILE"
)

// Config holds the parsed .whitelabel.yaml.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version    int             `yaml:"version" json:"version,omitempty"`
	RawAddr    string          `yaml:"addr" json:"addr,omitempty" jsonschema:"description=Listen address of whitelabel serve."`
	RawScript  string          `yaml:"script" json:"script,omitempty" jsonschema:"description=Path to whitelabel.sh relative to the project root."`
	Shell      *string         `yaml:"shell" json:"shell,omitempty"` // empty string runs the script directly
	RawEnvFile string          `yaml:"env_file" json:"env_file,omitempty"`
	RawIconDir string          `yaml:"icon_dir" json:"icon_dir,omitempty"`
	RawTimeout string          `yaml:"timeout" json:"timeout,omitempty" jsonschema:"description=Go duration after which a run is terminated."` // e.g. "10m"; empty means no timeout
	RawHistory int             `yaml:"history" json:"history,omitempty" jsonschema:"minimum=0"`
	Intro      string          `yaml:"intro" json:"intro,omitempty"` // markdown shown above the form
	IconS3     S3Config        `yaml:"icon_s3" json:"icon_s3,omitempty"`
	Telemetry  TelemetryConfig `yaml:"telemetry" json:"telemetry,omitempty"`
}

// S3Config enables mirroring uploaded icons to a bucket.
type S3Config struct {
	Bucket   string `yaml:"bucket" json:"bucket,omitempty"`
	Key      string `yaml:"key" json:"key,omitempty"`
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
	Region   string `yaml:"region" json:"region,omitempty"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// TelemetryConfig holds OTLP/HTTP endpoints. Empty disables the signal.
type TelemetryConfig struct {
	MetricsURL string `yaml:"metrics_url" json:"metrics_url,omitempty"`
	LogsURL    string `yaml:"logs_url" json:"logs_url,omitempty"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	if v := os.Getenv(EnvAddr); v != "" {
		return v
	}
	if c.RawAddr != "" {
		return c.RawAddr
	}
	return DefaultAddr
}

// ShellName returns the interpreter for the script.
func (c *Config) ShellName() string {
	if c.Shell != nil {
		return *c.Shell
	}
	return DefaultShell
}

// Timeout returns the configured run timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// History returns how many run transcripts are kept in memory.
func (c *Config) History() int {
	if c.RawHistory > 0 {
		return c.RawHistory
	}
	return DefaultHistory
}

// LoadResult holds the parsed config and the project root it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory holding .whitelabel.yaml; falls back to the start dir
}

// ScriptPath returns the absolute path of whitelabel.sh.
func (r *LoadResult) ScriptPath() string {
	return r.resolve(os.Getenv(EnvScript), r.Config.RawScript, DefaultScript)
}

// EnvFilePath returns the absolute path of the .env file read by load-env.
func (r *LoadResult) EnvFilePath() string {
	return r.resolve(os.Getenv(EnvEnvFile), r.Config.RawEnvFile, DefaultEnvFile)
}

// EnvFileDisplay returns the env file path as configured, for messages.
func (r *LoadResult) EnvFileDisplay() string {
	for _, v := range []string{os.Getenv(EnvEnvFile), r.Config.RawEnvFile} {
		if v != "" {
			return v
		}
	}
	return DefaultEnvFile
}

// IconDir returns the absolute directory uploaded icons are written to.
func (r *LoadResult) IconDir() string {
	return r.resolve("", r.Config.RawIconDir, DefaultIconDir)
}

func (r *LoadResult) resolve(values ...string) string {
	for _, v := range values {
		if v == "" {
			continue
		}
		if filepath.IsAbs(v) {
			return filepath.Clean(v)
		}
		return filepath.Join(r.Root, v)
	}
	return r.Root
}

// Load reads .whitelabel.yaml from the project root. The root is found by
// walking upward from dir; without a config file, dir itself is the root
// and a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	root, err := findRoot(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: dir}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if cfg.RawTimeout != "" {
		if _, err := time.ParseDuration(cfg.RawTimeout); err != nil {
			return nil, fmt.Errorf("parsing %s: timeout: %w", FileName, err)
		}
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findRoot walks upward from dir looking for a directory containing the
// config file.
func findRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
