// Package config holds the game server and client configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the TCP port a server listens on when none is given.
const DefaultPort = 2247

// Config is the on-disk configuration. CLI flags override loaded values.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Listen       string        `yaml:"listen"`        // TCP game listener address
	HTTPListen   string        `yaml:"http_listen"`   // /ws and /metrics; empty disables
	MaxPlayers   int           `yaml:"max_players"`   // Sessions beyond this are dropped as full
	StaleTimeout time.Duration `yaml:"stale_timeout"` // Silence after which a session is lost
	Cooldown     time.Duration `yaml:"cooldown"`      // Game over to lobby delay
	TickRate     int           `yaml:"tick_rate"`     // Updates per second
	AutoStart    bool          `yaml:"auto_start"`    // Start once every player is ready
}

type ClientConfig struct {
	Address        string        `yaml:"address"` // host:port, or ws:// / wss:// URL
	Name           string        `yaml:"name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	TickRate       int           `yaml:"tick_rate"`
}

type LogConfig struct {
	Debug         bool          `yaml:"debug"`
	StatsInterval time.Duration `yaml:"stats_interval"` // 0 disables the console reporter
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       fmt.Sprintf(":%d", DefaultPort),
			MaxPlayers:   8,
			StaleTimeout: 30 * time.Second,
			Cooldown:     5 * time.Second,
			TickRate:     60,
		},
		Client: ClientConfig{
			Address:        fmt.Sprintf("127.0.0.1:%d", DefaultPort),
			ConnectTimeout: 5 * time.Second,
			TickRate:       60,
		},
		Log: LogConfig{
			StatsInterval: 10 * time.Second,
		},
	}
}

// DefaultPath returns the default config file path: ~/.blockwire/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".blockwire", "config.yaml")
	}
	return filepath.Join(home, ".blockwire", "config.yaml")
}

// Load reads the configuration from the given YAML file path on top of
// Default. If the file does not exist, it returns the defaults with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Server.Listen == "":
		return errors.New("server.listen must not be empty")
	case c.Server.MaxPlayers < 1:
		return fmt.Errorf("server.max_players must be at least 1, got %d", c.Server.MaxPlayers)
	case c.Server.StaleTimeout <= 0:
		return fmt.Errorf("server.stale_timeout must be positive, got %s", c.Server.StaleTimeout)
	case c.Server.Cooldown < 0:
		return fmt.Errorf("server.cooldown must not be negative, got %s", c.Server.Cooldown)
	case c.Server.TickRate < 1 || c.Server.TickRate > 1000:
		return fmt.Errorf("server.tick_rate must be 1~1000, got %d", c.Server.TickRate)
	case c.Client.ConnectTimeout <= 0:
		return fmt.Errorf("client.connect_timeout must be positive, got %s", c.Client.ConnectTimeout)
	case c.Client.TickRate < 1 || c.Client.TickRate > 1000:
		return fmt.Errorf("client.tick_rate must be 1~1000, got %d", c.Client.TickRate)
	case c.Log.StatsInterval < 0:
		return fmt.Errorf("log.stats_interval must not be negative, got %s", c.Log.StatsInterval)
	}
	return nil
}

// TickInterval converts a tick rate into the duration between ticks.
func TickInterval(rate int) time.Duration {
	return time.Second / time.Duration(rate)
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
