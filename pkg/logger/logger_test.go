package logger

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goingviral/pkg/config"
)

func jsonLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level, Format: "json"}, &buf)
	require.NoError(t, err)
	return l, &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info console", &config.LoggingConfig{Level: "info"}, false},
		{"debug json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"invalid format", &config.LoggingConfig{Level: "info", Format: "xml"}, true},
		{"with file", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "app.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := jsonLogger(t, "warn")

	l.Info("quiet")
	l.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestDefaultFields(t *testing.T) {
	l, buf := jsonLogger(t, "info")
	l.Info("hello")

	assert.Contains(t, buf.String(), `"app":"goingviral"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestFieldChaining(t *testing.T) {
	l, buf := jsonLogger(t, "debug")

	l.WithField("field1", "value1").
		WithFields(map[string]interface{}{"field2": 2, "field3": true}).
		Info("chained fields")

	out := buf.String()
	assert.Contains(t, out, `"field1":"value1"`)
	assert.Contains(t, out, `"field2":2`)
	assert.Contains(t, out, `"field3":true`)
}

func TestWithFieldDoesNotLeakIntoParent(t *testing.T) {
	l, buf := jsonLogger(t, "info")

	_ = l.WithField("child", "yes")
	l.Info("parent")

	assert.NotContains(t, buf.String(), "child")
}

func TestWithError(t *testing.T) {
	l, buf := jsonLogger(t, "info")

	assert.Equal(t, l, l.WithError(nil))

	l.WithError(errors.New("dataset unavailable")).Error("fetch failed")
	assert.Contains(t, buf.String(), "dataset unavailable")
}

func TestFieldTypes(t *testing.T) {
	l, buf := jsonLogger(t, "info")

	l.InfoWithFields("all types", map[string]interface{}{
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"cause":    errors.New("boom"),
		"custom":   struct{ Name string }{Name: "x"},
	})

	out := buf.String()
	assert.Contains(t, out, `"int64":456`)
	assert.Contains(t, out, `"strings":["a","b"]`)
	assert.Contains(t, out, `"cause":"boom"`)
	assert.Contains(t, out, `"custom":{"Name":"x"}`)
}

func TestContextRoundTrip(t *testing.T) {
	tl := NewTestLogger()
	ctx := IntoContext(context.Background(), tl.WithField("request_id", "abc"))

	FromContext(ctx, NewNopLogger()).Info("from ctx")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "abc", msgs[0].Fields["request_id"])

	assert.NotNil(t, FromContext(context.Background(), nil))
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "POST", "/functions/v1/instagram-data", 200, 12.5)
	LogRequest(tl, "POST", "/functions/v1/instagram-data", 400, 1)
	LogRequest(tl, "POST", "/functions/v1/instagram-data", 500, 1)

	msgs := tl.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "INFO", msgs[0].Level)
	assert.Equal(t, "WARN", msgs[1].Level)
	assert.Equal(t, "ERROR", msgs[2].Level)
	assert.Equal(t, 500, msgs[2].Fields["status_code"])
}

func TestTestLoggerSharesSink(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithError(errors.New("nope")).WithField("k", "v")
	child.Warn("child warn")

	assert.True(t, tl.HasMessage("child warn"))
	assert.True(t, tl.Contains("nope"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info", Format: "console"}, &buf)
	require.NoError(t, err)

	l.WithField("username", "natgeo").Info("Fetch started")
	out := buf.String()
	assert.True(t, strings.Contains(out, "| Fetch started"))
	assert.Contains(t, out, "natgeo")
}
