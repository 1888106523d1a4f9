package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHelpersEmitKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})

	Info("scan complete", "root", `C:\drop`, "candidates", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "scan complete", entry["message"])
	require.Equal(t, `C:\drop`, entry["root"])
	require.EqualValues(t, 3, entry["candidates"])
	require.Equal(t, "prospect", entry["service"])
	require.Equal(t, "info", entry["level"])
}

func TestAllLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")

	out := buf.String()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		require.Contains(t, out, `"level":"`+level+`"`)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})

	Debug("quiet one")
	Info("quiet two")
	Warn("loud")

	require.NotContains(t, buf.String(), "quiet")
	require.Contains(t, buf.String(), "loud")
}

func TestOddKeyValueCount(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})

	Warn("odd pairs", "key", "value", "dangling")

	require.Contains(t, buf.String(), `"key":"value"`)
	require.Contains(t, buf.String(), `"extra":"dangling"`)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})

	log := WithComponent("scanner")
	log.Info().Msg("directory pruned")

	require.Contains(t, buf.String(), `"component":"scanner"`)
	require.Contains(t, buf.String(), "directory pruned")
}
