package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "unknown", Level(99).String())
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&Config{Level: InfoLevel, Format: "json"}, &buf)

	log.With("component", "eventbus").Info("subscription added", "kind", "main.CountEvent")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "subscription added", line["message"])
	assert.Equal(t, "eventbus", line["component"])
	assert.Equal(t, "main.CountEvent", line["kind"])
}

func TestSlogLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&Config{Level: InfoLevel, Format: "text"}, &buf)

	log.Debug("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, InfoLevel, log.GetLevel())

	child := log.With("k", "v")
	log.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.GetLevel())

	child.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSlogLogger_TraceFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&Config{Level: InfoLevel, Format: "json"}, &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	log.InfoContext(ctx, "posted")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestFromContext(t *testing.T) {
	log := Nop()
	ctx := log.WithContext(context.Background())
	assert.Same(t, log, FromContext(ctx))

	assert.NotNil(t, FromContext(context.Background()))
}

func TestSetGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	var buf bytes.Buffer
	SetGlobal(NewWithWriter(&Config{Level: InfoLevel, Format: "text"}, &buf))
	Info("through global")
	assert.Contains(t, buf.String(), "through global")

	SetGlobal(nil)
	assert.NotNil(t, Global())
}

func TestSlogLogger_Close(t *testing.T) {
	t.Run("stdout has no closer", func(t *testing.T) {
		log := New(&Config{Level: InfoLevel, Format: "text", Output: "stdout"})
		assert.NoError(t, log.Close())
	})

	t.Run("file output is written and closed", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "bus.log")
		log := New(&Config{Level: InfoLevel, Format: "json", Output: logFile})

		log.Info("test message", "key", "value")
		require.NoError(t, log.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotEmpty(t, content)
	})

	t.Run("derived logger does not close parent output", func(t *testing.T) {
		log := New(&Config{Level: InfoLevel, Format: "text", Output: "stdout"}).With("component", "test")
		assert.NoError(t, log.Close())
	})

	t.Run("unwritable path falls back", func(t *testing.T) {
		log := New(&Config{Level: InfoLevel, Output: "/nonexistent/path/to/file.log"})
		assert.NoError(t, log.Close())
	})
}

func TestOpenOutput(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", ""} {
		_, closer := openOutput(out)
		assert.Nil(t, closer, out)
	}
}
