package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerEmitsJSONWithRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, Options{Service: "loand", Env: "test", Level: "debug"})
	logger.Debug("rpc configured", slog.String("rpc_token", "s3cret"), slog.String("listen", ":8080"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "rpc configured", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "loand", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["rpc_token"])
	require.Equal(t, ":8080", line["listen"])
	require.Contains(t, line, "timestamp")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	require.Equal(t, "", MaskValue(""))
}
