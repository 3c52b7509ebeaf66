package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2022, cfg.Year)
	assert.Equal(t, 1, cfg.TrailingDays)
	assert.Equal(t, "data/generation_data.csv", cfg.Output)
	assert.Equal(t, "https://api.carbonintensity.org.uk", cfg.API.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1, cfg.API.Retry.MaxAttempts)
	assert.Equal(t, "generation_mix", cfg.MQTT.TopicPrefix)
	assert.Empty(t, cfg.Database)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
year: 2023
trailing_days: 0
database: data/gridmix.db
api:
  timeout: 15s
  retry:
    max_attempts: 4
    base_delay: 250ms
mqtt:
  enabled: true
  broker: localhost:1883
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2023, cfg.Year)
	assert.Equal(t, 0, cfg.TrailingDays)
	assert.Equal(t, "data/gridmix.db", cfg.Database)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 4, cfg.API.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.API.Retry.MaxDelay)
	assert.Equal(t, "gridmix", cfg.MQTT.ClientID)
	assert.Equal(t, "https://api.carbonintensity.org.uk", cfg.API.BaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("year: [2022"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Year = 2021
	cfg.XLSXOutput = "data/generation_data.xlsx"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "year too early", mutate: func(c *Config) { c.Year = 2017 }, wantErr: ErrInvalidYear},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "api.example" }, wantErr: ErrInvalidBaseURL},
		{name: "zero attempts", mutate: func(c *Config) { c.API.Retry.MaxAttempts = 0 }, wantErr: ErrInvalidRetry},
		{name: "mqtt without broker", mutate: func(c *Config) { c.MQTT.Enabled = true }, wantErr: ErrMissingBroker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
