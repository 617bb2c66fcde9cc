// Package config holds the tool configuration: device address, scan
// defaults, and output settings, loadable from a YAML file.
package config

import (
	"errors"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName is used for XDG directory paths.
	AppName = "hpscan"

	// DefaultResolution in dpi when the config does not set one.
	DefaultResolution = 300

	// DefaultListenAddr for the local status web UI.
	DefaultListenAddr = "127.0.0.1:8404"
)

// Validation errors.
var (
	ErrNoHost            = errors.New("no device host configured: set host in the config file or pass --host")
	ErrInvalidPort       = errors.New("invalid port: must be between 1 and 65535")
	ErrInvalidResolution = errors.New("invalid resolution: must be positive")
	ErrInvalidFormat     = errors.New("invalid format: must be \"pdf\" or \"jpeg\"")
	ErrInvalidSource     = errors.New("invalid source: must be \"platen\" or \"adf\"")
)

// Config is the full tool configuration. Zero values mean "use the
// default"; Normalize fills them in before validation.
type Config struct {
	// Host is the device address, name or IP.
	Host string `yaml:"host"`
	// Port is the management port. Defaults to 80.
	Port int `yaml:"port,omitempty"`
	// ScanPort is the scan job port. Defaults to 8080.
	ScanPort int `yaml:"scanPort,omitempty"`

	// DestinationName is the label shown on the device front panel.
	// Defaults to the local hostname.
	DestinationName string `yaml:"destinationName,omitempty"`

	// Scan defaults.
	Resolution int    `yaml:"resolution,omitempty"` // dpi
	ColorSpace string `yaml:"colorSpace,omitempty"` // "color" or "gray"
	Source     string `yaml:"source,omitempty"`     // "platen" or "adf"
	Format     string `yaml:"format,omitempty"`     // "pdf" or "jpeg"

	// OutputDir receives finished scans. Defaults to the XDG data dir.
	OutputDir string `yaml:"outputDir,omitempty"`

	// ListenAddr for the status web UI. Empty disables it.
	ListenAddr string `yaml:"listenAddr,omitempty"`

	// Debug enables request/response logging.
	Debug bool `yaml:"debug,omitempty"`
}

// Default returns a Config with every optional field filled in.
func Default() Config {
	c := Config{}
	c.Normalize()
	return c
}

// Normalize fills defaulted fields in place.
func (c *Config) Normalize() {
	if c.Port == 0 {
		c.Port = 80
	}
	if c.ScanPort == 0 {
		c.ScanPort = 8080
	}
	if c.Resolution == 0 {
		c.Resolution = DefaultResolution
	}
	if c.ColorSpace == "" {
		c.ColorSpace = "color"
	}
	if c.Source == "" {
		c.Source = "platen"
	}
	if c.Format == "" {
		c.Format = "pdf"
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(xdg.UserDirs.Documents, "Scans")
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrNoHost
	}
	if c.Port < 1 || c.Port > 65535 || c.ScanPort < 1 || c.ScanPort > 65535 {
		return ErrInvalidPort
	}
	if c.Resolution <= 0 {
		return ErrInvalidResolution
	}
	switch c.Format {
	case "pdf", "jpeg":
	default:
		return ErrInvalidFormat
	}
	switch c.Source {
	case "platen", "adf":
	default:
		return ErrInvalidSource
	}
	return nil
}

// ConfigDir returns the XDG config directory for the tool.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the XDG data directory for the tool.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
