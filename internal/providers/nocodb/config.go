package nocodb

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the provider's TOML configuration file.
type Config struct {
	BaseURL  string `toml:"base_url"`
	APIToken string `toml:"api_token"`
	RootName string `toml:"root_name"`
}

// LoadConfig reads and validates the config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("config %s: base_url is required", path)
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("config %s: api_token is required", path)
	}
	if cfg.RootName == "" {
		cfg.RootName = "NocoDB"
	}
	return &cfg, nil
}
