package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLoggerWritesToGivenWriter(t *testing.T) {
	var out bytes.Buffer
	log := MockLogger(&out)
	require.NotNil(t, log)

	log.Info("hello")
	assert.Contains(t, out.String(), "hello")
}

func TestDerivedLoggersCarryTheirTags(t *testing.T) {
	var out bytes.Buffer
	log := MockLogger(&out)
	require.NotNil(t, log)

	log.GetComponentLogger("websocket").
		GetConnectionLogger("conn-1").
		GetStreamLogger("stream-9").
		Infof("sent %d frames", 3)

	line := out.String()
	assert.Contains(t, line, "websocket")
	assert.Contains(t, line, "conn-1")
	assert.Contains(t, line, "stream-9")
	assert.Contains(t, line, "sent 3 frames")
}

func TestNewRequiresAtLeastOneWriter(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}
