package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Tablecast backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Uploads     UploadsConfig     `mapstructure:"uploads"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	// PublicBaseURL overrides the scheme and host used when building
	// uploaded-map URLs. Leave empty to derive them from each request.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// CORSConfig restricts which origins may call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadsConfig describes map image storage.
type UploadsConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	SendBuffer int `mapstructure:"send_buffer"`
}

// MaintenanceConfig controls background pruning of idle sessions.
type MaintenanceConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Schedule         string        `mapstructure:"schedule"`
	SessionRetention time.Duration `mapstructure:"session_retention"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("TABLECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_base_url", "")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.max_bytes", 32<<20)

	v.SetDefault("realtime.send_buffer", 64)

	v.SetDefault("maintenance.enabled", false)
	v.SetDefault("maintenance.schedule", "@every 10m")
	v.SetDefault("maintenance.session_retention", "72h")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
