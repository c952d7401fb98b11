// Package config loads CLI configuration from file, environment and .env
// files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/queryscope/queryscope/internal/core/connection"
	"github.com/queryscope/queryscope/internal/core/query/dialect"
)

// AppFs is the filesystem used for config probing; tests swap it for a
// memory fs.
var AppFs = afero.NewOsFs()

// ConnectionConfig is one connection entry in the config file.
type ConnectionConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Dialect      string `mapstructure:"dialect"`
	DSN          string `mapstructure:"dsn"`
	ReadOnly     bool   `mapstructure:"read_only"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Config holds the CLI configuration.
type Config struct {
	Connections    []ConnectionConfig
	TemplateDBPath string
	Debug          bool
}

// LoadConfig loads configuration from .queryscope.yaml (cwd, home,
// ~/.config/queryscope), QUERYSCOPE_* environment variables and .env.
func LoadConfig() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(".queryscope")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "queryscope"))

	v.SetEnvPrefix("QUERYSCOPE")
	v.AutomaticEnv()

	v.SetDefault("template_db", filepath.Join(home, ".queryscope", "templates.db"))
	v.SetDefault("debug", false)

	// Config file is optional; connections can come from the environment.
	_ = v.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		TemplateDBPath: v.GetString("template_db"),
		Debug:          v.GetBool("debug"),
	}
	if os.Getenv("QUERYSCOPE_DEBUG") != "" {
		cfg.Debug = true
	}
	if err := v.UnmarshalKey("connections", &cfg.Connections); err != nil {
		return nil, fmt.Errorf("invalid connections config: %w", err)
	}

	// A single connection can be supplied without a config file.
	if len(cfg.Connections) == 0 && os.Getenv("QUERYSCOPE_DSN") != "" {
		cfg.Connections = append(cfg.Connections, ConnectionConfig{
			ID:      "default",
			Name:    "default",
			Dialect: os.Getenv("QUERYSCOPE_DIALECT"),
			DSN:     os.Getenv("QUERYSCOPE_DSN"),
		})
	}

	return cfg, nil
}

// RegistryConfigs converts the file entries into registry configs,
// validating dialect names.
func (c *Config) RegistryConfigs() ([]connection.Config, error) {
	out := make([]connection.Config, 0, len(c.Connections))
	for _, cc := range c.Connections {
		d, err := dialect.Parse(cc.Dialect)
		if err != nil {
			return nil, fmt.Errorf("connection %q: %w", cc.ID, err)
		}
		name := cc.Name
		if name == "" {
			name = cc.ID
		}
		out = append(out, connection.Config{
			ID:           cc.ID,
			Name:         name,
			Dialect:      d,
			DSN:          cc.DSN,
			ReadOnly:     cc.ReadOnly,
			MaxOpenConns: cc.MaxOpenConns,
		})
	}
	return out, nil
}
