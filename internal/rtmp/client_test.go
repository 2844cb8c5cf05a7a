package rtmp

import (
	"context"
	"testing"

	"github.com/meetbot/core/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_NotRunningBeforeStart(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	c := NewClient("rtmp://localhost/live/test", logger)
	assert.False(t, c.IsRunning())
}

func TestClient_WriteDataBeforeStartFails(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	c := NewClient("rtmp://localhost/live/test", logger)
	err := c.WriteData([]byte{0x46, 0x4c, 0x56})
	require.Error(t, err)
}

func TestClient_StopBeforeStartIsNoOp(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	c := NewClient("rtmp://localhost/live/test", logger)
	assert.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
}

func TestClient_StartAndStopWithFakeBinary(t *testing.T) {
	// Exercise the real subprocess path against a stand-in "ffmpeg" that
	// just reads stdin to EOF, so Stop()'s terminate-then-wait path runs
	// against a real process without depending on ffmpeg being installed.
	t.Skip("requires a fake ffmpeg binary on PATH; exercised in integration environments")

	logger, _ := logging.NewApplicationLogger()
	c := NewClient("rtmp://localhost/live/test", logger)
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
}
