package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWithDetails(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing app name", func(c *Config) { c.App.Name = "" }, "Config.App.Name"},
		{"bad environment", func(c *Config) { c.App.Environment = "qa" }, "Config.App.Environment"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "Config.Log.Format"},
		{"zero lane capacity", func(c *Config) { c.Lanes[0].Capacity = 0 }, "Config.Lanes[0].Capacity"},
		{"bad backpressure", func(c *Config) { c.Lanes[1].Backpressure = "spill" }, "Config.Lanes[1].Backpressure"},
		{"redirect without target", func(c *Config) { c.Lanes[0].Backpressure = "redirect" }, "Config.Lanes[0].RedirectLane"},
		{"duplicate lane", func(c *Config) { c.Lanes[1].Name = c.Lanes[0].Name }, "Config.Lanes"},
		{"unknown default lane", func(c *Config) { c.Bus.DefaultLane = "gpu" }, "Config.Bus.DefaultLane"},
		{"self redirect", func(c *Config) {
			c.Lanes[0].Backpressure = "redirect"
			c.Lanes[0].RedirectLane = c.Lanes[0].Name
		}, "Config.Lanes[0].RedirectLane"},
		{"tracing without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Endpoint = ""
		}, "Config.Tracing.Endpoint"},
		{"sample rate out of range", func(c *Config) { c.Tracing.SampleRate = 2 }, "Config.Tracing.SampleRate"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "Config.Metrics.Path"},
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "Config.Server.Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateWithDetails(cfg)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)

			fields := make([]string, 0, len(verrs))
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidRedirect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lanes[0].Backpressure = "redirect"
	cfg.Lanes[0].RedirectLane = "background"
	assert.NoError(t, ValidateWithDetails(cfg))
}

func TestValidationErrorsMessage(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())

	errs := ValidationErrors{{Field: "Config.Log.Level", Message: "must be one of [debug info warn error]", Value: "loud"}}
	assert.Contains(t, errs.Error(), "Config.Log.Level: must be one of [debug info warn error] (got loud)")
}
