package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Path string `json:"path"`
}

type WebhookConfig struct {
	Secret string `json:"secret"`
}

type ListenConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Config is built once at startup and handed to every component; nothing
// reads configuration after that.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Webhook  WebhookConfig  `json:"webhook"`
	Backend  ListenConfig   `json:"backend"`
	Frontend ListenConfig   `json:"frontend"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Webhook: WebhookConfig{
			Secret: v.GetString("webhook.secret"),
		},
		Backend: ListenConfig{
			Host: v.GetString("backend.host"),
			Port: v.GetInt("backend.port"),
		},
		Frontend: ListenConfig{
			Host: v.GetString("frontend.host"),
			Port: v.GetInt("frontend.port"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Backend.Port == 0 {
		return fmt.Errorf("config: backend.port is required")
	}
	if c.Frontend.Port == 0 {
		return fmt.Errorf("config: frontend.port is required")
	}
	return nil
}

func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}
