// Package config loads the ztrace configuration from file and environment.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// DefaultDchPort is the TCP port the boards expose the debug channel on
const DefaultDchPort = 4905

// Config represents the application configuration
type Config struct {
	Sources  []SourceConfig `mapstructure:"sources"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Web      WebConfig      `mapstructure:"web"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Database DatabaseConfig `mapstructure:"database"`
}

// SourceConfig describes one capture source: a board exposing its debug
// channel over TCP.
type SourceConfig struct {
	Name string `mapstructure:"name"` // defaults to the host
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"` // defaults to DefaultDchPort
}

// Address returns the host:port of the debug channel
func (s SourceConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OutputConfig holds trace file output configuration
type OutputConfig struct {
	Dir string `mapstructure:"dir"` // ZLF and pcap files are written here
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// WebConfig holds the live dashboard configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MetricsConfig holds the Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// DatabaseConfig holds the capture index database configuration
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/ztrace")
	}

	viper.SetEnvPrefix("ZTRACE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// missing config file is fine, run on defaults
		} else if os.IsNotExist(err) {
			// an explicitly named file that does not exist is also fine
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applySourceDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("output.dir", "captures")

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "ztrace.db")
}

// applySourceDefaults fills per-source fields viper defaults cannot reach
func applySourceDefaults(config *Config) {
	for i := range config.Sources {
		if config.Sources[i].Port == 0 {
			config.Sources[i].Port = DefaultDchPort
		}
		if config.Sources[i].Name == "" {
			config.Sources[i].Name = config.Sources[i].Host
		}
	}
}

// validate checks the configuration for mistakes worth failing on
func validate(config *Config) error {
	names := make(map[string]bool)
	for i, source := range config.Sources {
		if source.Host == "" {
			return fmt.Errorf("source %d has no host", i)
		}
		if source.Port < 1 || source.Port > 65535 {
			return fmt.Errorf("source %q has invalid port %d", source.Name, source.Port)
		}
		if names[source.Name] {
			return fmt.Errorf("duplicate source name %q", source.Name)
		}
		names[source.Name] = true
	}

	if config.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if config.Web.Enabled && (config.Web.Port < 1 || config.Web.Port > 65535) {
		return fmt.Errorf("invalid web port %d", config.Web.Port)
	}
	if config.Metrics.Enabled && (config.Metrics.Port < 1 || config.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port %d", config.Metrics.Port)
	}
	if config.Database.Enabled && config.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	return nil
}
