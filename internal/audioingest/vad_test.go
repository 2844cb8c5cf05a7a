package audioingest

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pcmOfAmplitude(n int, amp int16) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(amp))
	}
	return buf
}

type fakeVoiceDetector struct{ speech bool }

func (f *fakeVoiceDetector) IsSpeech(pcm []byte, sampleRate int) (bool, error) {
	return f.speech, nil
}

func TestIsSilent_BelowRMSFloorIsSilentWithoutVAD(t *testing.T) {
	quiet := pcmOfAmplitude(100, 1)
	assert.True(t, IsSilent(&fakeVoiceDetector{speech: true}, quiet, 16000))
}

func TestIsSilent_AboveRMSFloorDefersToVAD(t *testing.T) {
	loud := pcmOfAmplitude(100, 20000)
	assert.False(t, IsSilent(&fakeVoiceDetector{speech: true}, loud, 16000))
	assert.True(t, IsSilent(&fakeVoiceDetector{speech: false}, loud, 16000))
}

func TestNormalizedRMS_Silence(t *testing.T) {
	assert.Zero(t, normalizedRMS(pcmOfAmplitude(10, 0)))
}
