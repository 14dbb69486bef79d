// Package config assembles detector and logging settings from a YAML file,
// an optional .env file and APRILTAG_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/apriltag-tools/internal/apriltag"
)

// Environment variables read by ApplyEnv.
const (
	EnvLibrary  = "APRILTAG_LIBRARY"
	EnvFamilies = "APRILTAG_FAMILIES"
	EnvThreads  = "APRILTAG_NTHREADS"
	EnvDecimate = "APRILTAG_DECIMATE"
	EnvBlur     = "APRILTAG_BLUR"
	EnvLogLevel = "APRILTAG_LOG_LEVEL"
	EnvLogFile  = "APRILTAG_LOG_FILE"
)

var validate = validator.New()

// Config is the complete tool configuration. Detector options sit at the top
// level of the YAML document:
//
//	library_path: /usr/local/lib/libapriltag.so
//	families: [tag36h11, tag25h9]
//	nthreads: 2
//	quad_decimate: 2.0
//	log_level: debug
type Config struct {
	LibraryPath string `yaml:"library_path"`
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	LogFile     string `yaml:"log_file"`

	Detector apriltag.Options `yaml:",inline" validate:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Detector: apriltag.DefaultOptions(),
	}
}

// Load builds a Config: defaults, then the YAML file at path (skipped when
// path is empty), then .env, then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files without overriding ones
// already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from APRILTAG_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLibrary); ok && v != "" {
		c.LibraryPath = v
	}
	if v, ok := lookup(EnvFamilies); ok && v != "" {
		c.Detector.Families = apriltag.FamilyString(v)
	}
	if v, ok := lookup(EnvThreads); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreads, err)
		}
		c.Detector.Threads = n
	}
	if v, ok := lookup(EnvDecimate); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDecimate, err)
		}
		c.Detector.QuadDecimate = f
	}
	if v, ok := lookup(EnvBlur); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBlur, err)
		}
		c.Detector.QuadBlur = f
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		c.LogFile = v
	}
	return nil
}

// Validate checks the logging fields and the detector options.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Detector.Validate()
}
