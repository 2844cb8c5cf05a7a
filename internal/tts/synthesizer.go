package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// DefaultVoice mirrors internal/transformer/google/google.go's DefaultVoice
// fallback when a request carries no explicit voice selection.
const DefaultVoice = "en-US-Chirp-HD-F"

// Settings carries the per-request voice configuration
// (MediaRequest.TextToSpeechSettings in spec.md §4.6).
type Settings struct {
	LanguageCode string
	VoiceName    string
	SampleRate   int
}

// Synthesizer turns text into LINEAR16 PCM audio plus its duration.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, settings Settings) (pcm []byte, durationMs int64, err error)
}

// GoogleSynthesizer calls Google Cloud Text-to-Speech, requesting LINEAR16
// output and stripping the WAV header Google includes
// (text_to_speech.py's generate_audio_from_text).
type GoogleSynthesizer struct {
	clientOpts []option.ClientOption
}

// NewGoogleSynthesizer builds a GoogleSynthesizer authenticated with the
// given client options (service-account JSON or API key, per
// internal/transformer/google/google.go's NewGoogleOption).
func NewGoogleSynthesizer(opts ...option.ClientOption) *GoogleSynthesizer {
	return &GoogleSynthesizer{clientOpts: opts}
}

func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, settings Settings) ([]byte, int64, error) {
	client, err := texttospeech.NewClient(ctx, g.clientOpts...)
	if err != nil {
		return nil, 0, fmt.Errorf("tts: create client: %w", err)
	}
	defer client.Close()

	sampleRate := settings.SampleRate
	if sampleRate == 0 {
		sampleRate = 8000
	}
	voiceName := settings.VoiceName
	if voiceName == "" {
		voiceName = DefaultVoice
	}

	resp, err := client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: settings.LanguageCode,
			Name:         voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(sampleRate),
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("tts: synthesize speech: %w", err)
	}

	pcm := StripWAVHeader(resp.AudioContent)
	return pcm, DurationMs(len(pcm), sampleRate), nil
}
