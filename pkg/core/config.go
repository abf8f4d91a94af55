// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds rcpr configuration
type Config struct {
	// Arch is the default target architecture; empty means autodetect
	Arch string `yaml:"arch"`

	// Patchelf is an explicit path to the patchelf executable; empty means
	// search the default candidate directories
	Patchelf string `yaml:"patchelf"`

	// Excludelist overrides the embedded shared-library excludelist
	Excludelist string `yaml:"excludelist"`

	// CachePath is where pulled images are stored
	CachePath string `yaml:"cache_path"`

	// RegistryURL overrides the image registry
	RegistryURL string `yaml:"registry_url"`

	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		CachePath: filepath.Join(xdg.CacheHome, "rcpr"),
	}
}

// LoadConfig loads configuration from file, falling back to defaults when
// no config file exists
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(xdg.ConfigHome, "rcpr", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(xdg.ConfigHome, "rcpr", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
