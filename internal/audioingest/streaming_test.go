package audioingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	sent     [][]byte
	finished bool
}

func (f *fakeTranscriber) Send(chunk []byte) error {
	f.sent = append(f.sent, chunk)
	return nil
}

func (f *fakeTranscriber) Finish() error {
	f.finished = true
	return nil
}

func alwaysSpeech() *fakeVoiceDetector { return &fakeVoiceDetector{speech: true} }

func TestAddChunk_SilentChunkWithNoExistingTranscriberIsDropped(t *testing.T) {
	created := 0
	m := NewStreamingManager(&fakeVoiceDetector{speech: false}, 16000, func(id string) (StreamingTranscriber, error) {
		created++
		return &fakeTranscriber{}, nil
	})

	quiet := pcmOfAmplitude(100, 1)
	require.NoError(t, m.AddChunk("speaker-1", quiet))
	assert.Zero(t, created)
	assert.Empty(t, m.ActiveSpeakers())
}

func TestAddChunk_NonSilentCreatesTranscriberLazily(t *testing.T) {
	var tr *fakeTranscriber
	m := NewStreamingManager(alwaysSpeech(), 16000, func(id string) (StreamingTranscriber, error) {
		tr = &fakeTranscriber{}
		return tr, nil
	})

	loud := pcmOfAmplitude(100, 20000)
	require.NoError(t, m.AddChunk("speaker-1", loud))
	require.NotNil(t, tr)
	assert.Len(t, tr.sent, 1)
	assert.Equal(t, []string{"speaker-1"}, m.ActiveSpeakers())
}

func TestMonitor_EvictsAfterSilenceLimit(t *testing.T) {
	now := time.Now()
	var tr *fakeTranscriber
	m := NewStreamingManager(alwaysSpeech(), 16000, func(id string) (StreamingTranscriber, error) {
		tr = &fakeTranscriber{}
		return tr, nil
	})
	m.clock = func() time.Time { return now }

	loud := pcmOfAmplitude(100, 20000)
	require.NoError(t, m.AddChunk("speaker-1", loud))

	now = now.Add(silenceDurationLimit + time.Second)
	m.Monitor()

	assert.True(t, tr.finished)
	assert.Empty(t, m.ActiveSpeakers())
}

func TestMonitor_EvictsOldestWhenOverCap(t *testing.T) {
	now := time.Now()
	transcribers := map[string]*fakeTranscriber{}
	m := NewStreamingManager(alwaysSpeech(), 16000, func(id string) (StreamingTranscriber, error) {
		tr := &fakeTranscriber{}
		transcribers[id] = tr
		return tr, nil
	})
	m.clock = func() time.Time { return now }

	loud := pcmOfAmplitude(100, 20000)
	for i, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		now = now.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, m.AddChunk(id, loud))
	}

	m.Monitor()
	assert.Len(t, m.ActiveSpeakers(), maxConcurrentTranscribers)
	assert.True(t, transcribers["s1"].finished, "oldest-sent speaker should be evicted first")
}
