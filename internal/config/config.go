package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go2tv.app/castgrid/gridsizer"
)

var (
	ErrInvalidConfig = errors.New("config: invalid value")
)

// Config is the persisted application settings. Missing keys keep their
// defaults.
type Config struct {
	Theme          string        `mapstructure:"theme"`
	Idiom          string        `mapstructure:"idiom"`
	MinCellWidth   float64       `mapstructure:"min_cell_width"`
	MinCellHeight  float64       `mapstructure:"min_cell_height"`
	ItemSpacing    float64       `mapstructure:"item_spacing"`
	DiscoveryDelay int           `mapstructure:"discovery_delay"`
	Chromecast     bool          `mapstructure:"chromecast"`
	DLNA           bool          `mapstructure:"dlna"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

func Default() *Config {
	return &Config{
		Theme:          "Default",
		Idiom:          "phone",
		ItemSpacing:    15,
		DiscoveryDelay: 2,
		Chromecast:     true,
		DLNA:           true,
		PollInterval:   4 * time.Second,
	}
}

// GetAppConfig loads the settings file from the user config directory,
// writing the defaults there on first use.
func GetAppConfig() (*Config, error) {
	path, err := appPath()
	if err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to access config path due to error %w", err)
	}

	return Load(path)
}

// Load reads the settings at path. A missing file is created with the
// defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("Load: failed to open config due to error %w", err)
		}

		conf := Default()
		if err := conf.Save(path); err != nil {
			return nil, fmt.Errorf("Load: failed to create default config due to error %w", err)
		}

		return conf, nil
	}

	return Parse(b)
}

// Parse merges a JSON settings document over the defaults.
func Parse(b []byte) (*Config, error) {
	raw := make(map[string]any)
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("Parse: failed to decode config due to error %w", err)
	}

	conf := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     conf,
	})
	if err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("Parse: failed to decode config due to error %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Theme {
	case "Default", "Dark", "Light":
	default:
		return fmt.Errorf("%w: theme %q", ErrInvalidConfig, c.Theme)
	}

	if _, err := gridsizer.ParseIdiom(c.Idiom); err != nil {
		return fmt.Errorf("%w: idiom %q", ErrInvalidConfig, c.Idiom)
	}

	switch {
	case c.MinCellWidth < 0:
		return fmt.Errorf("%w: min_cell_width %v", ErrInvalidConfig, c.MinCellWidth)
	case c.MinCellHeight < 0:
		return fmt.Errorf("%w: min_cell_height %v", ErrInvalidConfig, c.MinCellHeight)
	case c.ItemSpacing < 0:
		return fmt.Errorf("%w: item_spacing %v", ErrInvalidConfig, c.ItemSpacing)
	case c.DiscoveryDelay < 1:
		return fmt.Errorf("%w: discovery_delay %d", ErrInvalidConfig, c.DiscoveryDelay)
	case c.PollInterval < time.Second:
		return fmt.Errorf("%w: poll_interval %s", ErrInvalidConfig, c.PollInterval)
	}

	return nil
}

// GridIdiom returns the configured idiom, phone when unset.
func (c *Config) GridIdiom() gridsizer.Idiom {
	idiom, _ := gridsizer.ParseIdiom(c.Idiom)
	return idiom
}

// MinItemSize returns the configured minimum cell, falling back to the
// idiom default for zero values.
func (c *Config) MinItemSize() gridsizer.Size {
	size := gridsizer.DefaultMinItemSize(c.GridIdiom())
	if c.MinCellWidth > 0 {
		size.Width = c.MinCellWidth
	}
	if c.MinCellHeight > 0 {
		size.Height = c.MinCellHeight
	}

	return size
}

// SaveAppConfig writes the settings to the user config directory.
func (c *Config) SaveAppConfig() error {
	path, err := appPath()
	if err != nil {
		return fmt.Errorf("SaveAppConfig: failed to access config path due to error %w", err)
	}

	return c.Save(path)
}

// Save writes the settings to path, creating its directory.
func (c *Config) Save(path string) error {
	b, err := json.MarshalIndent(c.toMap(), "", "  ")
	if err != nil {
		return fmt.Errorf("Save: failed to marshal json due to error %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("Save: failed to create config path due to error %w", err)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("Save: failed save config due to error %w", err)
	}

	return nil
}

func (c *Config) toMap() map[string]any {
	return map[string]any{
		"theme":           c.Theme,
		"idiom":           c.Idiom,
		"min_cell_width":  c.MinCellWidth,
		"min_cell_height": c.MinCellHeight,
		"item_spacing":    c.ItemSpacing,
		"discovery_delay": c.DiscoveryDelay,
		"chromecast":      c.Chromecast,
		"dlna":            c.DLNA,
		"poll_interval":   c.PollInterval.String(),
	}
}

func appPath() (string, error) {
	oscfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("appPath: failed to get config file due to error %w", err)
	}

	return filepath.Join(oscfg, "castgrid", "settings.json"), nil
}
