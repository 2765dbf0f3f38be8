package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(l *Logger, level string) {
	switch level {
	case "log":
		l.Log("test message")
	case "error":
		l.Error("test message")
	case "warn":
		l.Warn("test message")
	case "info":
		l.Info("test message")
	case "debug":
		l.Debug("test message")
	}
}

func TestLoggerCreation(t *testing.T) {
	l := New("test")
	assert.Equal(t, "test", l.GetName())
}

func TestEnvironmentVariablePrecedence(t *testing.T) {
	t.Setenv(LevelEnvVar, "error")

	var buf bytes.Buffer
	l := NewWithLevel("test", "debug", &buf)

	assert.Equal(t, 1, l.level, "env level should override the parameter")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	l := NewWithLevel("test", "verbose", &bytes.Buffer{})
	assert.Equal(t, 3, l.level)

	l = NewWithLevel("test", "WARNING", &bytes.Buffer{})
	assert.Equal(t, 2, l.level)
}

func TestLogLevelHierarchy(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	testCases := []struct {
		setLevel   string
		shouldShow []string
		shouldHide []string
	}{
		{"log", []string{"log"}, []string{"error", "warn", "info", "debug"}},
		{"error", []string{"log", "error"}, []string{"warn", "info", "debug"}},
		{"warn", []string{"log", "error", "warn"}, []string{"info", "debug"}},
		{"info", []string{"log", "error", "warn", "info"}, []string{"debug"}},
		{"debug", []string{"log", "error", "warn", "info", "debug"}, nil},
	}

	for _, tc := range testCases {
		t.Run("level_"+tc.setLevel, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithLevel("test", tc.setLevel, &buf)

			for _, level := range tc.shouldShow {
				buf.Reset()
				emit(l, level)
				assert.NotZero(t, buf.Len(), "level %s should be visible at %s", level, tc.setLevel)
			}

			for _, level := range tc.shouldHide {
				buf.Reset()
				emit(l, level)
				assert.Zero(t, buf.Len(), "level %s should be hidden at %s, got %s", level, tc.setLevel, buf.String())
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	t.Setenv(LevelEnvVar, "")
	t.Setenv(FormatEnvVar, "")

	var buf bytes.Buffer
	l := NewWithLevel("bridge", "debug", &buf)

	t.Run("info line carries logger name and level", func(t *testing.T) {
		buf.Reset()
		l.Info("server started")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "bridge", entry["logger"])
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "server started", entry["message"])
		assert.NotNil(t, entry["time"])
	})

	t.Run("debug attaches args", func(t *testing.T) {
		buf.Reset()
		l.Debug("captured", map[string]interface{}{"event": "signup"})

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "captured", entry["message"])
		args, ok := entry["args"].(map[string]interface{})
		require.True(t, ok, "args should be an object, got %v", entry["args"])
		assert.Equal(t, "signup", args["event"])
	})

	t.Run("named child", func(t *testing.T) {
		buf.Reset()
		l.Named("capture").Warn("slow")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "bridge.capture", entry["logger"])
	})
}

func TestConsoleFormat(t *testing.T) {
	t.Setenv(LevelEnvVar, "")
	t.Setenv(FormatEnvVar, "console")

	var buf bytes.Buffer
	l := NewWithLevel("test", "info", &buf)
	l.Info("hello console")

	out := buf.String()
	assert.Contains(t, out, "hello console")
	assert.False(t, strings.HasPrefix(out, "{"), "console output should not be JSON: %s", out)
}

func TestGoStyleMethods(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	var buf bytes.Buffer
	l := NewWithLevel("test", "debug", &buf)

	l.Logf("Log message %d", 1)
	assert.Contains(t, buf.String(), "Log message 1")

	buf.Reset()
	l.Errorf("Error %s", "occurred")
	assert.Contains(t, buf.String(), "Error occurred")

	buf.Reset()
	l.Infof("Info: %v", true)
	assert.Contains(t, buf.String(), "Info: true")

	buf.Reset()
	l.Debugf("Debug %d", 7)
	assert.Contains(t, buf.String(), "Debug 7")
}

func TestNopAndEnabled(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	n := Nop()
	assert.NotPanics(t, func() {
		n.Log("x")
		n.Debug("x")
	})
	assert.False(t, n.Enabled(LogLevelLog))

	l := NewWithLevel("test", "warn", &bytes.Buffer{})
	assert.True(t, l.Enabled(LogLevelError))
	assert.False(t, l.Enabled(LogLevelDebug))
}

func TestZerologHonorsThreshold(t *testing.T) {
	t.Setenv(LevelEnvVar, "")

	var buf bytes.Buffer
	l := NewWithLevel("test", "info", &buf)

	zl := l.Zerolog()
	zl.Debug().Str("k", "v").Msg("hidden")
	assert.Zero(t, buf.Len())

	zl.Info().Str("k", "v").Msg("shown")
	assert.Contains(t, buf.String(), `"k":"v"`)
	assert.Contains(t, buf.String(), `"logger":"test"`)
}
