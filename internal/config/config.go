// Package config loads and validates collector configuration. The
// resulting struct is passed explicitly into each pipeline constructor;
// nothing reads the environment after startup.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for both collector entry points.
type Config struct {
	Broker   BrokerConfig   `mapstructure:"broker"`
	Database DatabaseConfig `mapstructure:"database"`
	DTE      DTEConfig      `mapstructure:"dte"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BrokerConfig addresses the energy bridge's local MQTT broker.
// Required by the bridge command only.
type BrokerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	ClientID    string `mapstructure:"client_id"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// DatabaseConfig addresses the series store. Required by both commands.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DTEConfig carries the utility portal credentials and the local
// timezone the usage report is keyed in. Required by the usage command
// only.
type DTEConfig struct {
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	SubscriptionKey string `mapstructure:"subscription_key"`
	Timezone        string `mapstructure:"timezone"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConfigurationError reports a missing or unusable required setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
}

// Load reads configuration from a YAML file, expanding $VAR references
// from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewReader([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.port", 1883)
	v.SetDefault("broker.client_id", "energy-bridge")
	v.SetDefault("broker.metrics_port", 9090)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// ValidateBridge checks the settings the live bridge needs.
func (c *Config) ValidateBridge() error {
	if err := c.Database.validate(); err != nil {
		return err
	}
	if c.Broker.Host == "" {
		return &ConfigurationError{Setting: "broker.host", Reason: "required"}
	}
	return nil
}

// ValidateUsage checks the settings the historical backfill needs.
func (c *Config) ValidateUsage() error {
	if err := c.Database.validate(); err != nil {
		return err
	}
	required := []struct {
		setting, value string
	}{
		{"dte.username", c.DTE.Username},
		{"dte.password", c.DTE.Password},
		{"dte.subscription_key", c.DTE.SubscriptionKey},
		{"dte.timezone", c.DTE.Timezone},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Setting: r.setting, Reason: "required"}
		}
	}
	return nil
}

func (c *DatabaseConfig) validate() error {
	required := []struct {
		setting, value string
	}{
		{"database.host", c.Host},
		{"database.name", c.Name},
		{"database.user", c.User},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Setting: r.setting, Reason: "required"}
		}
	}
	return nil
}

// ConnString assembles the lib/pq connection string.
func (c *DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
