// Package config loads and validates the optional .bamrun YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bamchoh/bamrun/internal/invoke"
	"github.com/bamchoh/bamrun/internal/runner"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".bamrun"

// Default values used when a field is left unset.
const (
	DefaultExecutable = invoke.DefaultExecutable
	DefaultWaitDelay  = runner.DefaultWaitDelay
	DefaultMaxOutput  = 1 << 20 // 1 MB per stream
	DefaultCacheSize  = 16
	DefaultLogLevel   = "info"
	DefaultS3Prefix   = "runs/"
)

// Config holds the parsed .bamrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int           `yaml:"version"`
	Executable   string        `yaml:"executable"` // default ./bam-weather
	Dir          string        `yaml:"dir"`        // working directory for the child
	RawTimeout   string        `yaml:"timeout"`    // e.g. "30s"; unset means none
	RawWaitDelay string        `yaml:"wait_delay"` // stream drain grace after exit
	RawMaxOutput int           `yaml:"max_output"` // bytes per stream
	Log          LogConfig     `yaml:"log"`
	Records      RecordsConfig `yaml:"records"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	Format     string `yaml:"format"`     // text (default) or json
	Timestamps bool   `yaml:"timestamps"` // prefix lines with the time
}

// RecordsConfig controls where invocation records are kept.
type RecordsConfig struct {
	Cache int      `yaml:"cache"` // in-memory entries (default: 16)
	Dir   string   `yaml:"dir"`   // directory for JSON records; unset disables disk
	S3    S3Config `yaml:"s3"`
}

// S3Config names the bucket invocation records are archived to.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"` // default: runs/
}

// Enabled reports whether an S3 archive is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// KeyPrefix returns the configured object key prefix or the default.
func (c S3Config) KeyPrefix() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return DefaultS3Prefix
}

// ExecutablePath returns the executable to launch.
func (c *Config) ExecutablePath() string {
	if c.Executable != "" {
		return c.Executable
	}
	return DefaultExecutable
}

// Timeout returns the configured timeout, or zero when none is set.
// The hosting platform enforces its own deadline through the context.
func (c *Config) Timeout() time.Duration {
	return parsePositive(c.RawTimeout, 0)
}

// WaitDelay returns the configured stream drain grace period or the default.
func (c *Config) WaitDelay() time.Duration {
	return parsePositive(c.RawWaitDelay, DefaultWaitDelay)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// CacheSize returns the number of records kept in memory.
func (c *Config) CacheSize() int {
	if c.Records.Cache > 0 {
		return c.Records.Cache
	}
	return DefaultCacheSize
}

// LevelName returns the configured log level or the default.
func (c LogConfig) LevelName() string {
	if c.Level != "" {
		return c.Level
	}
	return DefaultLogLevel
}

// Validate reports settings that are present but unusable.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"timeout": c.RawTimeout, "wait_delay": c.RawWaitDelay} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if c.Records.S3.Enabled() && c.Records.S3.Region == "" {
		return fmt.Errorf("records.s3.region is required when a bucket is set")
	}
	return nil
}

func parsePositive(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// LoadResult holds the parsed config and where it came from.
type LoadResult struct {
	Config *Config
	Path   string // file that was read; empty when defaults are used
}

// Load reads the .bamrun file from dir. If no file exists, a default
// Config is returned.
func Load(dir string) (*LoadResult, error) {
	return load(filepath.Join(dir, FileName), false)
}

// LoadFile reads an explicitly named configuration file, which must exist.
func LoadFile(path string) (*LoadResult, error) {
	return load(path, true)
}

func load(path string, required bool) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &LoadResult{Config: &Config{}}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}
