package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"dualfm/internal/engine"
	"dualfm/internal/logging"
	"dualfm/pkg/fileops"
)

const APP_NAME = "dualfm" // application name used for config directory

// Config holds user configuration for dualfm.
type Config struct {
	// Security tunes the archive and path-validation limits.
	Security SecurityLimits `yaml:"security"`
	// ChunkSize is the copy unit for chunked operations, in bytes.
	ChunkSize int    `yaml:"chunk_size"`
	Version   string `yaml:"version"`   // Track config version
	InitTime  int64  `yaml:"init_time"` // Unix timestamp of first setup
}

// SecurityLimits mirrors the tunable fields of fileops.SecurityConfig so
// operators can adjust them in the config file. A value of zero or below
// disables the corresponding limit, matching the fileops semantics.
type SecurityLimits struct {
	MaxCompressionRatio int64 `yaml:"max_compression_ratio"`
	MaxExtractedSize    int64 `yaml:"max_extracted_size"`
	MaxArchiveFiles     int   `yaml:"max_archive_files"`
}

// ConfigPath returns the standard config file paths for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// Load loads the config from the standard location
// If no config exists, it returns an error indicating first run is needed
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	logging.Debug("Loading config from", "path", configPath)
	if !exists {
		return nil, fmt.Errorf("no configuration found, first-time setup required")
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path. Decoding starts from the
// defaults, so fields absent from the file keep their default values while
// explicit zeros in the file are honored.
func LoadFrom(path string) (*Config, error) {
	logging.Info("Reading config file from: ", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	// Check primary location first
	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	// Return primary path for new config
	return primary, false
}

// IsFirstRun checks if this is the first time the application is run
func IsFirstRun() bool {
	_, exists := FindConfigFile()
	return !exists
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Security: SecurityLimits{
			MaxCompressionRatio: fileops.DefaultMaxCompressionRatio,
			MaxExtractedSize:    fileops.DefaultMaxExtractedSize,
			MaxArchiveFiles:     fileops.DefaultMaxArchiveFiles,
		},
		ChunkSize: engine.DefaultChunkSize,
		Version:   "1.0",
		InitTime:  0, // Will be set during first save
	}
}

// SecurityConfig materializes the limits as a fileops configuration. Every
// call builds a fresh value on top of the default forbidden-name set, so
// callers may adjust their copy without affecting anyone else; there is no
// process-wide shared instance.
func (c *Config) SecurityConfig() *fileops.SecurityConfig {
	sec := fileops.DefaultSecurityConfig()
	sec.MaxCompressionRatio = c.Security.MaxCompressionRatio
	sec.MaxExtractedSize = c.Security.MaxExtractedSize
	sec.MaxArchiveFiles = c.Security.MaxArchiveFiles
	return sec
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Set init time if this is the first save
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600) for security
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
