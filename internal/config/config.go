// Package config provides configuration loading and management for
// ticketforge.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig `json:"database"  mapstructure:"database"`
	Workspace string         `json:"workspace" mapstructure:"workspace"`
	Export    ExportConfig   `json:"export"    mapstructure:"export"`
}

// DatabaseConfig locates the ticket store.
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ExportConfig sets export defaults.
type ExportConfig struct {
	Format string `json:"format,omitempty" mapstructure:"format"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: filepath.Join(".ticketforge", "tickets.db")},
		Export:   ExportConfig{Format: "json"},
	}
}

// Load reads the configuration from viper's configured source, applying
// defaults for anything unset and validating the result against the config
// schema.
func Load() (Config, error) {
	cfg := Default()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	settings := viper.AllSettings()
	// The config flag is bound into viper for path resolution; it is not
	// part of the file schema.
	delete(settings, "config")
	if err := ValidateSettings(settings); err != nil {
		return Config{}, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &cfg,
		TagName: "mapstructure",
	})
	if err != nil {
		return Config{}, fmt.Errorf("create config decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate enforces field-level constraints defaults cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Export.Format {
	case "", "json", "csv":
	default:
		return fmt.Errorf("unsupported export format %q (allowed: json, csv)", c.Export.Format)
	}
	return nil
}
