// Package config provides configuration management for typedbus.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for a typedbus process.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Bus is the event bus configuration.
	Bus BusConfig `mapstructure:"bus"`

	// Lanes are the named asynchronous execution contexts.
	Lanes []LaneConfig `mapstructure:"lanes" validate:"unique=Name,dive"`

	// Metrics is the Prometheus configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the OpenTelemetry configuration.
	Tracing TracingConfig `mapstructure:"tracing"`

	// Server is the introspection HTTP listener.
	Server ServerConfig `mapstructure:"server"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"env"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	// DefaultLane is the lane used for asynchronous deliveries when a
	// component does not pick one. Empty means GoExecutor.
	DefaultLane string `mapstructure:"default_lane"`

	// Shared installs the process-wide bus at startup.
	Shared bool `mapstructure:"shared"`
}

// LaneConfig describes one named lane.
type LaneConfig struct {
	Name         string  `mapstructure:"name" validate:"required"`
	Capacity     int     `mapstructure:"capacity" validate:"min=1"`
	Workers      int     `mapstructure:"workers" validate:"min=1"`
	Backpressure string  `mapstructure:"backpressure" validate:"omitempty,oneof=block drop redirect"`
	RedirectLane string  `mapstructure:"redirect_lane" validate:"required_if=Backpressure redirect"`
	RateLimit    float64 `mapstructure:"rate_limit" validate:"min=0"`
	Burst        int     `mapstructure:"burst" validate:"min=0"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path" validate:"startswith=/"`

	// Port is the standalone metrics server port. Zero serves metrics only
	// on the introspection server.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	// Enabled enables tracing.
	Enabled bool `mapstructure:"enabled"`

	// Exporter is the span exporter kind.
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=otlpgrpc"`

	// Endpoint is the collector endpoint.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true"`

	// Timeout bounds a single export.
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers are sent with every export.
	Headers map[string]string `mapstructure:"headers"`

	// Sampler is always_on, always_off or parentbased_traceidratio.
	Sampler string `mapstructure:"sampler" validate:"omitempty,oneof=always_on always_off parentbased_traceidratio"`

	// SampleRate is the fraction of traces to sample (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// ServerConfig holds the introspection listener settings.
type ServerConfig struct {
	// Enabled starts the introspection server.
	Enabled bool `mapstructure:"enabled"`

	// Host is the bind address.
	Host string `mapstructure:"host" validate:"omitempty,hostname_rfc1123|ip"`

	// Port is the HTTP port.
	Port int `mapstructure:"port" validate:"required_if=Enabled true,min=0,max=65535"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address of the server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Lane returns the lane configuration named name.
func (c *Config) Lane(name string) (LaneConfig, bool) {
	for _, l := range c.Lanes {
		if l.Name == name {
			return l, true
		}
	}
	return LaneConfig{}, false
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := ValidateWithDetails(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Env: %s, Lanes: %d, Server: %s}",
		c.App.Name, c.App.Environment, len(c.Lanes), c.Server.Addr())
}
