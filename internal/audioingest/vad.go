// Package audioingest implements per-participant audio ingest helpers:
// RMS/VAD silence detection and a streaming mode that feeds live
// transcription providers. Batched recording into Utterance rows is done
// by internal/supervisor, not here. Grounded on
// original_source/bots/bot_controller/per_participant_streaming_audio_input_manager.py.
package audioingest

import (
	"encoding/binary"
	"math"

	"github.com/streamer45/silero-vad-go/speech"
)

// normalizedRMS mirrors calculate_normalized_rms: RMS of 16-bit PCM samples
// normalized against the maximum possible amplitude.
func normalizedRMS(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(chunk[i*2 : i*2+2]))
		v := float64(sample)
		sumSquares += v * v
	}
	rms := math.Sqrt(sumSquares / float64(n))
	return rms / 32768
}

// silenceRMSThreshold mirrors the Python manager's hardcoded 0.0025 cutoff:
// below this normalized RMS, a chunk is treated as silent without even
// consulting the VAD model.
const silenceRMSThreshold = 0.0025

// VoiceDetector classifies whether a chunk of LINEAR16 PCM contains speech.
type VoiceDetector interface {
	IsSpeech(pcm []byte, sampleRate int) (bool, error)
}

// SileroDetector wraps the silero-vad-go ONNX voice-activity model.
type SileroDetector struct {
	detector *speech.Detector
}

// NewSileroDetector loads the Silero VAD ONNX model from modelPath.
func NewSileroDetector(modelPath string, sampleRate int) (*SileroDetector, error) {
	d, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           sampleRate,
		Threshold:            0.5,
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, err
	}
	return &SileroDetector{detector: d}, nil
}

// IsSpeech converts 16-bit PCM to the float32 samples silero-vad-go expects
// and reports whether any speech segment was detected in the chunk.
func (s *SileroDetector) IsSpeech(pcm []byte, sampleRate int) (bool, error) {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768
	}
	segments, err := s.detector.Detect(samples)
	if err != nil {
		return false, err
	}
	return len(segments) > 0, nil
}

// Close releases the underlying ONNX runtime session.
func (s *SileroDetector) Close() error {
	return s.detector.Destroy()
}

// IsSilent reproduces silence_detected: a chunk below the RMS floor is
// silent outright; otherwise the VAD model has the final say.
func IsSilent(detector VoiceDetector, chunk []byte, sampleRate int) bool {
	if normalizedRMS(chunk) < silenceRMSThreshold {
		return true
	}
	speech, err := detector.IsSpeech(chunk, sampleRate)
	if err != nil {
		return true
	}
	return !speech
}
