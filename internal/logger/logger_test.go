package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		" WARN ":   zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetAndDefault(t *testing.T) {
	t.Cleanup(func() { Set(zerolog.Nop()) })
	assert.Equal(t, zerolog.Disabled, L().GetLevel())

	var buf bytes.Buffer
	Set(New(&buf, zerolog.DebugLevel))
	L().Debug().Int("rows", 4).Msg("binned")
	L().Trace().Msg("dropped")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "binned", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, float64(4), entry["rows"])
	assert.Contains(t, entry, "time")
}
