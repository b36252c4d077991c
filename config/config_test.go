package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "typedbus", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "ui", cfg.Bus.DefaultLane)
	require.Len(t, cfg.Lanes, 2)
	assert.Equal(t, "drop", cfg.Lanes[0].Backpressure)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestConfigLane(t *testing.T) {
	cfg := DefaultConfig()

	l, ok := cfg.Lane("background")
	require.True(t, ok)
	assert.Equal(t, 4, l.Workers)

	_, ok = cfg.Lane("missing")
	assert.False(t, ok)
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", DefaultConfig().Server.Addr())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().App, cfg.App)
	assert.Equal(t, DefaultConfig().Lanes, cfg.Lanes)
	assert.Equal(t, 5*time.Second, cfg.Tracing.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "typedbus.yaml", `
app:
  name: demo
log:
  level: debug
bus:
  default_lane: render
lanes:
  - name: render
    capacity: 8
    workers: 1
    backpressure: block
    rate_limit: 100
    burst: 10
server:
  port: 9000
  shutdown_timeout: 2s
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.App.Name)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Lanes, 1)
	assert.Equal(t, LaneConfig{
		Name:         "render",
		Capacity:     8,
		Workers:      1,
		Backpressure: "block",
		RateLimit:    100,
		Burst:        10,
	}, cfg.Lanes[0])
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadJSONFile(t *testing.T) {
	path := writeFile(t, "typedbus.json", `{"app": {"name": "json-demo"}, "metrics": {"enabled": false}}`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json-demo", cfg.App.Name)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := writeFile(t, "typedbus.toml", "x = 1")
		_, err := Load(path, nil)
		assert.ErrorContains(t, err, "unsupported config file format")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, "typedbus.yaml", "log:\n  level: loud\n")
		_, err := Load(path, nil)
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		require.Len(t, verrs, 1)
		assert.Equal(t, "Config.Log.Level", verrs[0].Field)
	})
}

func TestLoadEnvAndOverrides(t *testing.T) {
	t.Setenv("TYPEDBUS_SERVER_PORT", "9100")
	t.Setenv("TYPEDBUS_TRACING_SAMPLE_RATE", "0.5")
	t.Setenv("TYPEDBUS_LOG_LEVEL", "warn")

	cfg, err := Load("", map[string]any{"log.level": "error"})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Tracing.SampleRate, 1e-9)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("TYPEDBUS_SERVER_PORT"))
	assert.Equal(t, "tracing.sample_rate", envKey("TYPEDBUS_TRACING_SAMPLE_RATE"))
	assert.Equal(t, "bus.default_lane", envKey("TYPEDBUS_BUS_DEFAULT_LANE"))
	assert.Equal(t, "debug", envKey("TYPEDBUS_DEBUG"))
}

func TestLoaderGetters(t *testing.T) {
	l := NewLoader()
	_, err := l.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "typedbus", l.GetString("app.name"))
	assert.Equal(t, 8080, l.GetInt("server.port"))
	assert.True(t, l.GetBool("metrics.enabled"))
	assert.NotNil(t, l.Get("lanes"))
	assert.Contains(t, l.Print(), "app.name")
}

func TestLoadOrDie(t *testing.T) {
	assert.NotPanics(t, func() { LoadOrDie("", nil) })
	assert.Panics(t, func() { LoadOrDie("missing.yaml", nil) })
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
