package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json")
	log.Info().Str("exam_id", "e1").Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, ServiceName, line["service"])
	require.Equal(t, "e1", line["exam_id"])
	require.Equal(t, "hello", line["message"])
	require.Contains(t, line, "caller")
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty")
	log.Info().Msg("hello")

	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
	require.Equal(t, zerolog.InfoLevel, parseLevel(""))
}
