// Package config loads and persists datui's process-wide configuration.
// Grounded on the teacher's settings.GetEffectiveSettings merge idiom
// (defaults overlaid with file contents, tolerant of missing fields) but
// switched from YAML to TOML per the versioned config.toml format in
// spec §6.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const CurrentVersion = "0.2"

// Config is process-wide and read-only after Load, per spec §5 ("config
// and theme are process-wide read-only after initialization").
type Config struct {
	Version string `toml:"version"`

	SamplingThreshold int `toml:"sampling_threshold"`

	PagesLookahead int `toml:"pages_lookahead"`
	PagesLookback  int `toml:"pages_lookback"`

	SingleSpineSchema   bool   `toml:"single_spine_schema"`
	DecompressInMemory  bool   `toml:"decompress_in_memory"`
	TempDir             string `toml:"temp_dir"`
	WorkaroundPivotDate bool   `toml:"workaround_pivot_date_index"`

	HistoryLimit int `toml:"history_limit"`

	S3 S3Config `toml:"s3"`
}

type S3Config struct {
	EndpointURL     string `toml:"endpoint_url"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Region          string `toml:"region"`
}

// Defaults returns the built-in configuration before any file is applied.
func Defaults() Config {
	return Config{
		Version:             CurrentVersion,
		SamplingThreshold:   50000,
		PagesLookahead:      3,
		PagesLookback:       3,
		SingleSpineSchema:   true,
		DecompressInMemory:  true,
		TempDir:             os.TempDir(),
		WorkaroundPivotDate: false,
		HistoryLimit:        1000,
	}
}

// Dir returns the config directory, honoring XDG_CONFIG_HOME with a
// "datui" subdirectory fallback under os.UserConfigDir.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "datui"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "datui"), nil
}

// Path returns the full path to config.toml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config.toml if present, overlaying its fields on Defaults.
// A missing file is not an error; a malformed file is.
func Load() (Config, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	return cfg, nil
}

// Generate writes a fresh config.toml containing the defaults, failing
// if one already exists unless force is true.
func Generate(force bool) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.toml")
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, os.ErrExist
		}
	}
	data, err := toml.Marshal(Defaults())
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

// CacheDir returns the cache directory for history files.
func CacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "datui"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "datui"), nil
}

// TemplatesDir returns <config_dir>/templates.
func TemplatesDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "templates"), nil
}
