package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidYear is returned when the configured year is outside the API's range
	ErrInvalidYear = errors.New("year must be 2018 or later")
	// ErrInvalidBaseURL is returned when the API base URL cannot be parsed
	ErrInvalidBaseURL = errors.New("api.base_url must be an absolute http(s) URL")
	// ErrInvalidRetry is returned when retry settings are inconsistent
	ErrInvalidRetry = errors.New("api.retry.max_attempts must be at least 1")
	// ErrMissingBroker is returned when MQTT is enabled without a broker
	ErrMissingBroker = errors.New("mqtt.broker is required when enabled")
)

// Config holds the application configuration
type Config struct {
	API             APIConfig  `yaml:"api"`
	Year            int        `yaml:"year" default:"2022"`
	TrailingDays    int        `yaml:"trailing_days" default:"1"` // Days fetched after the year ends
	Output          string     `yaml:"output" default:"data/generation_data.csv"`
	XLSXOutput      string     `yaml:"xlsx_output,omitempty"`      // Optional Excel copy of the output
	Database        string     `yaml:"database,omitempty"`         // Checkpoint database, disabled when empty
	MetricsTextfile string     `yaml:"metrics_textfile,omitempty"` // node_exporter textfile path
	MQTT            MQTTConfig `yaml:"mqtt,omitempty"`
}

// APIConfig holds Carbon Intensity API settings
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" default:"https://api.carbonintensity.org.uk"`
	Timeout           time.Duration `yaml:"timeout" default:"60s"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"` // 0 = unlimited
	Retry             RetryConfig   `yaml:"retry"`
}

// RetryConfig controls retrying failed API requests
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" default:"1"` // 1 = no retry
	BaseDelay   time.Duration `yaml:"base_delay" default:"1s"`
	MaxDelay    time.Duration `yaml:"max_delay" default:"30s"`
	Multiplier  float64       `yaml:"multiplier" default:"2"`
}

// MQTTConfig holds MQTT broker configuration for publishing
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g., "homeassistant.local:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix" default:"generation_mix"`
	ClientID    string `yaml:"client_id" default:"gridmix"`
}

// Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the config file, applying defaults for anything not set
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Year < 2018 {
		return ErrInvalidYear
	}
	if c.TrailingDays < 0 {
		return fmt.Errorf("trailing_days must not be negative, got %d", c.TrailingDays)
	}
	if c.Output == "" {
		return errors.New("output path is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.API.Retry.MaxAttempts < 1 {
		return ErrInvalidRetry
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return ErrMissingBroker
	}

	return nil
}
