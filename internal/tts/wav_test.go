package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_RoundTripsHeaderSize(t *testing.T) {
	pcm := make([]byte, 1000)
	wav := EncodeWAV(pcm, 8000)
	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "data", string(wav[36:40]))
}

func TestStripWAVHeader(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav := EncodeWAV(pcm, 8000)
	assert.Equal(t, pcm, StripWAVHeader(wav))
	assert.Nil(t, StripWAVHeader(make([]byte, 10)))
}

func TestDurationMs(t *testing.T) {
	// 8000 samples/sec * 2 bytes/sample = 16000 bytes/sec => 1000ms per 16000 bytes
	assert.Equal(t, int64(1000), DurationMs(16000, 8000))
	assert.Equal(t, int64(0), DurationMs(100, 0))
}
