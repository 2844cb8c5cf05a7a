package tts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meetbot/core/internal/store"
)

// MediaSource adapts a MediaRequest (raw MP3 blob or text-to-speech
// request) into PCM bytes, implementing audiooutput.Source.
type MediaSource struct {
	Decoder     MP3Decoder
	Synthesizer Synthesizer
	SampleRate  int
}

// NewMediaSource builds a MediaSource with the given decoder/synthesizer.
func NewMediaSource(decoder MP3Decoder, synth Synthesizer, sampleRate int) *MediaSource {
	return &MediaSource{Decoder: decoder, Synthesizer: synth, SampleRate: sampleRate}
}

// PCM resolves req.MediaBlob (a raw MP3) or req.TextToSpeak into PCM audio
// and its nominal playback duration, mirroring
// AudioOutputManager.start_playing_audio_media_request's branch between
// the blob and text-to-speech cases.
func (s *MediaSource) PCM(ctx context.Context, req *store.MediaRequest) ([]byte, int64, error) {
	if len(req.MediaBlob) > 0 {
		pcm, err := s.Decoder.Decode(req.MediaBlob, s.SampleRate)
		if err != nil {
			return nil, 0, err
		}
		durMs := int64(0)
		if req.MediaBlobDurationMs != nil {
			durMs = *req.MediaBlobDurationMs
		} else {
			durMs = DurationMs(len(pcm), s.SampleRate)
		}
		return pcm, durMs, nil
	}

	if req.TextToSpeak == nil {
		return nil, 0, fmt.Errorf("tts: media request %d has neither media_blob nor text_to_speak", req.ID)
	}

	settings := Settings{SampleRate: s.SampleRate}
	if len(req.TTSSettings) > 0 {
		var raw struct {
			Google struct {
				VoiceLanguageCode string `json:"voice_language_code"`
				VoiceName         string `json:"voice_name"`
			} `json:"google"`
		}
		if err := json.Unmarshal(req.TTSSettings, &raw); err == nil {
			settings.LanguageCode = raw.Google.VoiceLanguageCode
			settings.VoiceName = raw.Google.VoiceName
		}
	}

	return s.Synthesizer.Synthesize(ctx, *req.TextToSpeak, settings)
}
