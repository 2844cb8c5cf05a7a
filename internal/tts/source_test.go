package tts

import (
	"context"
	"testing"

	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	pcm []byte
	err error
}

func (f *fakeDecoder) Decode(mp3 []byte, sampleRate int) ([]byte, error) {
	return f.pcm, f.err
}

type fakeSynthesizer struct {
	pcm   []byte
	durMs int64
	err   error
	last  Settings
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string, settings Settings) ([]byte, int64, error) {
	f.last = settings
	return f.pcm, f.durMs, f.err
}

func TestMediaSource_RawBlobUsesDecoder(t *testing.T) {
	dur := int64(500)
	decoder := &fakeDecoder{pcm: []byte{1, 2, 3}}
	src := NewMediaSource(decoder, &fakeSynthesizer{}, 8000)

	req := &store.MediaRequest{MediaBlob: []byte{0xFF, 0xFB, 0x90}, MediaBlobDurationMs: &dur}
	pcm, durMs, err := src.PCM(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, decoder.pcm, pcm)
	assert.Equal(t, dur, durMs)
}

func TestMediaSource_TextToSpeechUsesSynthesizer(t *testing.T) {
	text := "hello"
	synth := &fakeSynthesizer{pcm: []byte{9, 9}, durMs: 42}
	src := NewMediaSource(&fakeDecoder{}, synth, 8000)

	req := &store.MediaRequest{TextToSpeak: &text, TTSSettings: store.NewJSONMap(map[string]any{
		"google": map[string]any{"voice_language_code": "en-US", "voice_name": "en-US-Wavenet-D"},
	})}
	pcm, durMs, err := src.PCM(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, synth.pcm, pcm)
	assert.Equal(t, int64(42), durMs)
	assert.Equal(t, "en-US", synth.last.LanguageCode)
	assert.Equal(t, "en-US-Wavenet-D", synth.last.VoiceName)
}

func TestMediaSource_NeitherBlobNorTextErrors(t *testing.T) {
	src := NewMediaSource(&fakeDecoder{}, &fakeSynthesizer{}, 8000)
	_, _, err := src.PCM(context.Background(), &store.MediaRequest{ID: 7})
	assert.Error(t, err)
}
