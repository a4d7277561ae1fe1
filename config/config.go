// Package config loads service configuration from the environment with
// development defaults, using the LEDGER_ prefix (e.g. LEDGER_SERVER_PORT).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	AMQP   AMQPConfig
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type StoreConfig struct {
	// Path is the SQLite database path. ":memory:" runs without a file;
	// empty disables durability entirely (in-memory ledger store).
	Path string `mapstructure:"path"`
}

type AMQPConfig struct {
	// URL enables the event publisher when set; empty runs with the no-op
	// publisher.
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("store.path", "ledger.db")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "inventory.events")

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
