package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults applied to fields left unset in the file.
const (
	DefaultImageWidth  = 40
	DefaultMaxMessages = 50
	DefaultTickMs      = 1000
	DefaultBudgetMs    = 50
	DefaultQueueSize   = 256
)

// Config represents the global ~/.tgcon/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	APIID          int    `toml:"api_id"`
	APIHash        string `toml:"api_hash"`
	ImageWidth     int    `toml:"image_width"`
	MaxMessages    int    `toml:"max_messages"`
	TickMs         int    `toml:"tick_ms"`
	RenderBudgetMs int    `toml:"render_budget_ms"`
	QueueSize      int    `toml:"queue_size"`
}

// Default returns a config with every tunable at its default.
func Default() *Config {
	return &Config{
		ImageWidth:     DefaultImageWidth,
		MaxMessages:    DefaultMaxMessages,
		TickMs:         DefaultTickMs,
		RenderBudgetMs: DefaultBudgetMs,
		QueueSize:      DefaultQueueSize,
	}
}

// Load reads config from the given path. Returns zero config and error if
// file missing. Unset tunables are filled with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// normalize clamps nonsense values back to defaults so a hand-edited file
// cannot wedge the renderer.
func (c *Config) normalize() {
	if c.ImageWidth <= 0 {
		c.ImageWidth = DefaultImageWidth
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.TickMs <= 0 {
		c.TickMs = DefaultTickMs
	}
	if c.RenderBudgetMs <= 0 {
		c.RenderBudgetMs = DefaultBudgetMs
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}
