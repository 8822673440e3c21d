// Package config loads application configuration and provides the
// default ledger the dashboard starts from.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"screentime/internal/domain"
)

// Storage backend names.
const (
	BackendFile      = "file"
	BackendEncrypted = "encrypted"
)

// Config holds the complete application configuration.
type Config struct {
	ChildName string        `mapstructure:"child_name"`
	DataDir   string        `mapstructure:"data_dir"`
	Storage   StorageConfig `mapstructure:"storage"`
	Limits    LimitsConfig  `mapstructure:"limits"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

// StorageConfig selects and tunes the snapshot store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "encrypted"
}

// LimitsConfig holds the default limits applied when no snapshot exists.
type LimitsConfig struct {
	DefaultAppMinutes float64 `mapstructure:"default_app_minutes"`
	TotalMinutes      float64 `mapstructure:"total_minutes"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from the given file (optional) merged over
// built-in defaults. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("child_name", "Alex")
	v.SetDefault("data_dir", "~/.screentime")
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("limits.default_app_minutes", 60)
	v.SetDefault("limits.total_minutes", 240)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "screentime.log")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".screentime"))
		}
		// No config file is fine; defaults apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.DataDir = ExpandHome(cfg.DataDir)

	switch cfg.Storage.Backend {
	case BackendFile, BackendEncrypted:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return &cfg, nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}

// MinutesToSeconds converts a (possibly fractional) minutes value to
// whole seconds, rounding to nearest.
func MinutesToSeconds(minutes float64) int64 {
	return int64(math.Round(minutes * 60))
}

// DefaultApps returns the fixed set of tracked applications.
func DefaultApps(limitSeconds int64) []*domain.App {
	specs := []struct {
		id, label, color, icon string
	}{
		{"youtube", "YouTube", "#FF0000", "fab fa-youtube"},
		{"whatsapp", "WhatsApp", "#25D366", "fab fa-whatsapp"},
		{"tiktok", "TikTok", "#010101", "fab fa-tiktok"},
		{"instagram", "Instagram", "#C13584", "fab fa-instagram"},
		{"games", "Games", "#8B5CF6", "fas fa-gamepad"},
	}

	apps := make([]*domain.App, 0, len(specs))
	for _, s := range specs {
		apps = append(apps, &domain.App{
			ID:           s.id,
			Label:        s.label,
			Color:        s.color,
			Icon:         s.icon,
			LimitSeconds: limitSeconds,
		})
	}
	return apps
}

// NewDefaultLedger builds the ledger used when no snapshot exists, or
// after reset-all.
func (c *Config) NewDefaultLedger() *domain.Ledger {
	return &domain.Ledger{
		ChildName:         c.ChildName,
		TotalLimitSeconds: MinutesToSeconds(c.Limits.TotalMinutes),
		Apps:              DefaultApps(MinutesToSeconds(c.Limits.DefaultAppMinutes)),
	}
}
