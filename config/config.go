package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress      string   `toml:"RPCAddress"`
	DataDir         string   `toml:"DataDir"`
	ServiceName     string   `toml:"ServiceName"`
	Environment     string   `toml:"Environment"`
	LogFile         string   `toml:"LogFile"`
	AdminSecretEnv  string   `toml:"AdminSecretEnv"`
	RateLimitPerSec float64  `toml:"RateLimitPerSec"`
	RateLimitBurst  int      `toml:"RateLimitBurst"`
	PausedModules   []string `toml:"PausedModules"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AdminSecret resolves the JWT signing secret for administrative RPC methods
// from the configured environment variable. An empty secret disables the
// admin surface entirely.
func (c *Config) AdminSecret() []byte {
	name := strings.TrimSpace(c.AdminSecretEnv)
	if name == "" {
		return nil
	}
	secret := strings.TrimSpace(os.Getenv(name))
	if secret == "" {
		return nil
	}
	return []byte(secret)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./dropgate-data"
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "dropd"
	}
	if strings.TrimSpace(cfg.AdminSecretEnv) == "" {
		cfg.AdminSecretEnv = "DROPGATE_ADMIN_SECRET"
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
}

func validate(cfg *Config) error {
	for _, module := range cfg.PausedModules {
		if strings.TrimSpace(module) == "" {
			return fmt.Errorf("config: PausedModules entries must not be blank")
		}
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
