package tts

import "fmt"

// MP3Decoder decodes an MP3 byte stream to LINEAR16 PCM at the given
// sample rate. No MP3 codec is available in the project's dependency
// stack (see DESIGN.md), so the default implementation only validates the
// frame sync marker and reports an error rather than silently returning
// garbage samples; deployments that need raw audio MediaRequests wire in a
// real decoder behind this interface.
type MP3Decoder interface {
	Decode(mp3 []byte, sampleRate int) (pcm []byte, err error)
}

type stubMP3Decoder struct{}

// NewMP3Decoder returns the default MP3Decoder.
func NewMP3Decoder() MP3Decoder { return stubMP3Decoder{} }

func (stubMP3Decoder) Decode(mp3 []byte, sampleRate int) ([]byte, error) {
	if len(mp3) < 2 || mp3[0] != 0xFF || mp3[1]&0xE0 != 0xE0 {
		return nil, fmt.Errorf("tts: not an MP3 frame stream")
	}
	return nil, fmt.Errorf("tts: no MP3 decoder configured for this deployment")
}
