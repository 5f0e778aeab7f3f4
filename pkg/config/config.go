// Package config provides configuration loading and management for cryorestore.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/patch"
	"cryorestore/pkg/resample"
	"cryorestore/pkg/snr"
)

// Config represents the configuration loaded from YAML
type Config struct {
	// Fourier resampling parameters
	Resample struct {
		// PixelSize is the sampling of the input micrographs in Ångström per pixel
		PixelSize float64 `yaml:"pixelSize"`

		// Cutoff is the target spatial frequency in 1/Ångström
		Cutoff float64 `yaml:"cutoff"`

		// LowPass enables the Butterworth filter while binning
		LowPass bool `yaml:"lowPass"`

		// ButterworthOrder controls the steepness of the filter
		ButterworthOrder int `yaml:"butterworthOrder"`
	} `yaml:"resample"`

	// Soft mask parameters
	Mask struct {
		// Width is the length of the sine fall-off in pixels
		Width int `yaml:"width"`
	} `yaml:"mask"`

	// SNR and SSNR estimation parameters
	Estimation struct {
		// PatchSize is the edge length of the patches averaged for SNR
		PatchSize int `yaml:"patchSize"`

		// SpectralWindow is the edge length of the SSNR windows
		SpectralWindow int `yaml:"spectralWindow"`
	} `yaml:"estimation"`

	// Logging parameters
	Logging struct {
		// Level is a zerolog level name such as "debug" or "warn"
		Level string `yaml:"level"`

		// Console switches from JSON lines to human readable output
		Console bool `yaml:"console"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Resample.PixelSize = 1.0
	cfg.Resample.Cutoff = 0.25
	cfg.Resample.LowPass = true
	cfg.Resample.ButterworthOrder = resample.DefaultButterworthOrder

	cfg.Mask.Width = 10

	cfg.Estimation.PatchSize = patch.DefaultSize
	cfg.Estimation.SpectralWindow = snr.DefaultSpectralWindow

	cfg.Logging.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// Keys missing from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errdefs.Formatf("error parsing config file %s: %v", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks every parameter for a usable value
func (c *Config) Validate() error {
	switch {
	case !(c.Resample.PixelSize > 0):
		return errdefs.InvalidArgumentf("resample.pixelSize %g must be positive", c.Resample.PixelSize)
	case !(c.Resample.Cutoff > 0):
		return errdefs.InvalidArgumentf("resample.cutoff %g must be positive", c.Resample.Cutoff)
	case c.Resample.Cutoff > 1/(2*c.Resample.PixelSize):
		return errdefs.InvalidArgumentf("resample.cutoff %g exceeds Nyquist %g", c.Resample.Cutoff, 1/(2*c.Resample.PixelSize))
	case c.Resample.ButterworthOrder < 1:
		return errdefs.InvalidArgumentf("resample.butterworthOrder %d must be at least 1", c.Resample.ButterworthOrder)
	case c.Mask.Width < 2:
		return errdefs.InvalidArgumentf("mask.width %d must be at least 2", c.Mask.Width)
	}
	if err := c.EstimationOptions().Validate(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return errdefs.InvalidArgumentf("logging.level: %v", err)
	}
	return nil
}

// ResampleOptions returns the binning options described by c
func (c *Config) ResampleOptions() resample.Options {
	return resample.Options{
		LowPass:          c.Resample.LowPass,
		ButterworthOrder: c.Resample.ButterworthOrder,
	}
}

// EstimationOptions returns the SNR and SSNR options described by c
func (c *Config) EstimationOptions() snr.Options {
	return snr.Options{
		PatchSize:      c.Estimation.PatchSize,
		SpectralWindow: c.Estimation.SpectralWindow,
	}
}

// ApplyLogging installs the logger described by c as the package-level logger
func (c *Config) ApplyLogging() error {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return errdefs.InvalidArgumentf("logging.level: %v", err)
	}
	if c.Logging.Console {
		logger.Set(logger.NewConsole(level))
	} else {
		logger.Set(logger.New(os.Stderr, level))
	}
	return nil
}
