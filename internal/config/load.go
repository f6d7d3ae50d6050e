package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-vox/internal/floor"
	"github.com/Faultbox/midgard-vox/pkg/math"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MidgardVox")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MidgardVox")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "midgard-vox")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "midgard-vox")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks the settings the floor cannot run without.
func (c *Config) Validate() error {
	for i, s := range c.Floor.Size {
		if s <= 0 {
			return fmt.Errorf("%w: floor.size[%d] = %v", ErrInvalid, i, s)
		}
	}
	if c.Floor.SectionsPerSide <= 0 {
		return fmt.Errorf("%w: floor.sections_per_side = %d", ErrInvalid, c.Floor.SectionsPerSide)
	}
	if c.Floor.VoxelSize <= 0 {
		return fmt.Errorf("%w: floor.voxel_size = %v", ErrInvalid, c.Floor.VoxelSize)
	}
	switch c.Floor.Content {
	case "", "rooms", "terrain", "empty":
	default:
		return fmt.Errorf("%w: floor.content = %q", ErrInvalid, c.Floor.Content)
	}
	return nil
}

// FloorSettings converts the floor and persistence sections to a floor.Config.
func (c *Config) FloorSettings() floor.Config {
	return floor.Config{
		Size:            math.Vec3{X: c.Floor.Size[0], Y: c.Floor.Size[1], Z: c.Floor.Size[2]},
		SectionsPerSide: c.Floor.SectionsPerSide,
		VoxelSize:       c.Floor.VoxelSize,
		Compress:        c.Persistence.Compress,
	}
}
