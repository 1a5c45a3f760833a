package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccolo-io/piccolo/pkg/errdefs"
)

func initBuffer(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: level, JSONOutput: true, Output: &buf})
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestComponentAndResourceFields(t *testing.T) {
	buf := initBuffer(t, "debug")

	logger := WithResource(WithNode(WithComponent("statemanager"), "vehicle-hpc-1"), "model", "m1")
	logger.Info().Msg("state changed")

	entry := lastLine(t, buf)
	assert.Equal(t, "statemanager", entry["component"])
	assert.Equal(t, "vehicle-hpc-1", entry["node_name"])
	assert.Equal(t, "model", entry["kind"])
	assert.Equal(t, "m1", entry["name"])
}

func TestFailureLevels(t *testing.T) {
	buf := initBuffer(t, "debug")
	logger := WithComponent("store")

	// Retryable transport loss logs at warn.
	Failure(logger, errdefs.Unavailable(nil, "etcd down"), "put failed")
	entry := lastLine(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Unavailable", entry["code"])

	// Domain and internal failures log at error.
	Failure(logger, errdefs.Conflict("name taken"), "registration failed")
	entry = lastLine(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "Conflict", entry["code"])
}

func TestInitLevelFallback(t *testing.T) {
	buf := initBuffer(t, "chatty")

	Logger.Debug().Msg("hidden")
	Logger.Info().Msg("visible")

	entry := lastLine(t, buf)
	assert.Equal(t, "visible", entry["message"])
}
