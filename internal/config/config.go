package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // how long to wait for open connections on exit
}

// StoreConfig defines the behaviour of the in-memory store
type StoreConfig struct {
	StreamChunkSize int `mapstructure:"stream_chunk_size"` // 0 streams a value as a single chunk
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string   `mapstructure:"level"`  // debug, info, warn, error
	Format string   `mapstructure:"format"` // json, console
	Output []string `mapstructure:"output"` // stdout, stderr or file paths
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOONMOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Store.StreamChunkSize < 0 {
		return nil, errors.New("store.stream_chunk_size must not be negative")
	}

	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "6380")
	v.SetDefault("server.shutdown_timeout", "5s")

	// Store
	v.SetDefault("store.stream_chunk_size", 0)

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", []string{"stdout"})
}
