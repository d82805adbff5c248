package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, ParseLevel(tc.in), "level %q", tc.in)
	}
}

func TestSetOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info", "json")
	t.Cleanup(func() { Init("info", "text") })

	Info("submission stored", "module", "service", "result", "ok")
	Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "submission stored", rec["msg"])
	require.Equal(t, "service", rec["module"])
	require.False(t, Enabled(slog.LevelDebug))
}
